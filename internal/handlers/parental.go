// internal/handlers/parental.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cardmeet/cardmeet-backend/internal/i18n"
	"github.com/cardmeet/cardmeet-backend/internal/models"
	"github.com/cardmeet/cardmeet-backend/internal/services"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

type ParentalHandler struct {
	parentalService *services.ParentalService
}

func NewParentalHandler(parentalService *services.ParentalService) *ParentalHandler {
	return &ParentalHandler{
		parentalService: parentalService,
	}
}

// POST /parental/link
func (h *ParentalHandler) LinkAccount(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	guardianID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.LinkAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.parentalService.LinkAccount(guardianID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyGuardianLinked),
		"link":    result,
	})
}

// GET /parental/dashboard
func (h *ParentalHandler) GetDashboard(c *gin.Context) {
	guardianID, ok := currentUserID(c)
	if !ok {
		return
	}

	dashboard, err := h.parentalService.GetDashboard(guardianID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"dependents": dashboard,
	})
}

// GET /parental/trades/pending
func (h *ParentalHandler) ListPendingTradeApprovals(c *gin.Context) {
	guardianID, ok := currentUserID(c)
	if !ok {
		return
	}

	approvals, err := h.parentalService.ListPendingTradeApprovals(guardianID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"approvals": approvals,
	})
}

// POST /parental/trades/:id/approve
func (h *ParentalHandler) ApproveTrade(c *gin.Context) {
	h.decideTrade(c, h.parentalService.ApproveTrade)
}

// POST /parental/trades/:id/reject
func (h *ParentalHandler) RejectTrade(c *gin.Context) {
	h.decideTrade(c, h.parentalService.RejectTrade)
}

// GET /parental/events/pending
func (h *ParentalHandler) ListPendingEventApprovals(c *gin.Context) {
	guardianID, ok := currentUserID(c)
	if !ok {
		return
	}

	participations, err := h.parentalService.ListPendingEventApprovals(guardianID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"participations": participations,
	})
}

// POST /parental/events/:id/approve
func (h *ParentalHandler) ApproveEventParticipation(c *gin.Context) {
	guardianID, ok := currentUserID(c)
	if !ok {
		return
	}

	participationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	req := h.optionalDecision(c)
	participation, err := h.parentalService.ApproveEventParticipation(guardianID, participationID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"participation": participation,
	})
}

// POST /parental/events/:id/reject
func (h *ParentalHandler) RejectEventParticipation(c *gin.Context) {
	guardianID, ok := currentUserID(c)
	if !ok {
		return
	}

	participationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	req := h.optionalDecision(c)
	participation, err := h.parentalService.RejectEventParticipation(guardianID, participationID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"participation": participation,
	})
}

func (h *ParentalHandler) decideTrade(c *gin.Context, fn func(uuid.UUID, uuid.UUID, *services.DecisionRequest) (*models.TradeApproval, error)) {
	guardianID, ok := currentUserID(c)
	if !ok {
		return
	}

	approvalID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	req := h.optionalDecision(c)
	approval, err := fn(guardianID, approvalID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"approval": approval,
	})
}

// optionalDecision tolerates an empty body; decision notes are not
// mandatory.
func (h *ParentalHandler) optionalDecision(c *gin.Context) *services.DecisionRequest {
	var req services.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return &services.DecisionRequest{}
	}
	return &req
}
