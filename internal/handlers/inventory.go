// internal/handlers/inventory.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cardmeet/cardmeet-backend/internal/i18n"
	"github.com/cardmeet/cardmeet-backend/internal/models"
	"github.com/cardmeet/cardmeet-backend/internal/services"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

type InventoryHandler struct {
	inventoryService   *services.InventoryService
	authService        *services.AuthService
	cardService        *services.CardAPIService
	recognitionService *services.RecognitionService
}

func NewInventoryHandler(
	inventoryService *services.InventoryService,
	authService *services.AuthService,
	cardService *services.CardAPIService,
	recognitionService *services.RecognitionService,
) *InventoryHandler {
	return &InventoryHandler{
		inventoryService:   inventoryService,
		authService:        authService,
		cardService:        cardService,
		recognitionService: recognitionService,
	}
}

func (h *InventoryHandler) loadUser(c *gin.Context) (*models.User, bool) {
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

// POST /inventory
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	var req services.CreateInventoryItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.inventoryService.CreateItem(c.Request.Context(), user, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyInventoryCreated),
		"item":    item,
	})
}

// GET /inventory
func (h *InventoryHandler) ListOwn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	includeArchived, _ := strconv.ParseBool(c.DefaultQuery("include_archived", "false"))

	items, total, err := h.inventoryService.ListOwn(userID, params, includeArchived)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(items, total, params))
}

// GET /users/:id/inventory
func (h *InventoryHandler) ListPublic(c *gin.Context) {
	ownerID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	items, total, err := h.inventoryService.ListPublic(ownerID, params)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(items, total, params))
}

// GET /inventory/:id
func (h *InventoryHandler) GetItem(c *gin.Context) {
	itemID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	item, err := h.inventoryService.GetItem(itemID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"item": item,
	})
}

// PATCH /inventory/:id
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	itemID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateInventoryItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.inventoryService.UpdateItem(userID, itemID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"item": item,
	})
}

// DELETE /inventory/:id
func (h *InventoryHandler) ArchiveItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	itemID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.inventoryService.ArchiveItem(userID, itemID); err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyInventoryArchived),
	})
}

// GET /cards/search
func (h *InventoryHandler) SearchCards(c *gin.Context) {
	name := c.Query("name")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	cards, err := h.cardService.SearchCards(c.Request.Context(), name, page, pageSize)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"cards": cards,
	})
}

// GET /cards/:id/prices
func (h *InventoryHandler) GetPriceHistory(c *gin.Context) {
	cardID := c.Param("id")
	condition := c.Query("condition")

	history, err := h.cardService.GetPriceHistory(c.Request.Context(), cardID, condition)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"prices": history,
	})
}

// POST /cards/scan
func (h *InventoryHandler) ScanCard(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		utils.BadRequestResponse(c, "image file is required", nil)
		return
	}
	defer file.Close()

	result, err := h.recognitionService.ScanCard(c.Request.Context(), file, header)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"scan": result,
	})
}
