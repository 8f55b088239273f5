// internal/handlers/events.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cardmeet/cardmeet-backend/internal/i18n"
	"github.com/cardmeet/cardmeet-backend/internal/models"
	"github.com/cardmeet/cardmeet-backend/internal/services"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

type EventHandler struct {
	eventService *services.EventService
	authService  *services.AuthService
}

func NewEventHandler(eventService *services.EventService, authService *services.AuthService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		authService:  authService,
	}
}

func (h *EventHandler) loadUser(c *gin.Context) (*models.User, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, false
	}

	user, err := h.authService.GetProfile(userID)
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	return user, true
}

// POST /events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	var req services.CreateEventRequest
	if !bindAndValidate(c, &req) {
		return
	}

	event, err := h.eventService.CreateEvent(user, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"event": event,
	})
}

// GET /events
func (h *EventHandler) ListEvents(c *gin.Context) {
	events, err := h.eventService.GetValidatedEvents()
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"events": events,
	})
}

// POST /events/:id/confirm
func (h *EventHandler) ConfirmPresence(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	participation, err := h.eventService.ConfirmPresence(eventID, user)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":       i18n.T(lang, i18n.KeyEventConfirmed),
		"participation": participation,
	})
}

// GET /events/:id/inventory
func (h *EventHandler) GetAggregatedInventory(c *gin.Context) {
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	items, err := h.eventService.GetAggregatedInventory(eventID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"items": items,
	})
}

// GET /events/participations
func (h *EventHandler) GetMyParticipations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	participations, err := h.eventService.GetMyParticipations(userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"participations": participations,
	})
}
