// internal/handlers/trading.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cardmeet/cardmeet-backend/internal/i18n"
	"github.com/cardmeet/cardmeet-backend/internal/models"
	"github.com/cardmeet/cardmeet-backend/internal/services"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

type TradingHandler struct {
	tradingService *services.TradingService
	authService    *services.AuthService
}

func NewTradingHandler(tradingService *services.TradingService, authService *services.AuthService) *TradingHandler {
	return &TradingHandler{
		tradingService: tradingService,
		authService:    authService,
	}
}

func (h *TradingHandler) loadUser(c *gin.Context) (*models.User, bool) {
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

// POST /trades
func (h *TradingHandler) ProposeTrade(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	var req services.ProposeTradeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	trade, err := h.tradingService.ProposeTrade(user, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTradeProposed),
		"trade":   trade,
	})
}

// GET /trades
func (h *TradingHandler) ListTrades(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	trades, err := h.tradingService.GetTradesForUser(userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"trades": trades,
	})
}

// GET /trades/:id
func (h *TradingHandler) GetTrade(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	tradeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	trade, err := h.tradingService.GetTrade(userID, tradeID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"trade": trade,
	})
}

// POST /trades/:id/accept
func (h *TradingHandler) AcceptTrade(c *gin.Context) {
	h.transition(c, i18n.KeyTradeAccepted, func(user *models.User, tradeID uuid.UUID) (*models.Trade, error) {
		return h.tradingService.AcceptTrade(c.Request.Context(), user, tradeID)
	})
}

// POST /trades/:id/handshake
func (h *TradingHandler) ConfirmHandshake(c *gin.Context) {
	h.transition(c, i18n.KeyTradeAccepted, h.tradingService.ConfirmHandshake)
}

// POST /trades/:id/cancel
func (h *TradingHandler) CancelTrade(c *gin.Context) {
	h.transition(c, i18n.KeyTradeCancelled, h.tradingService.CancelTrade)
}

// POST /trades/:id/reject
func (h *TradingHandler) RejectTrade(c *gin.Context) {
	h.transition(c, i18n.KeyTradeRejected, h.tradingService.RejectTrade)
}

func (h *TradingHandler) transition(c *gin.Context, messageKey string, fn func(*models.User, uuid.UUID) (*models.Trade, error)) {
	lang := utils.GetLangFromContext(c)

	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	tradeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	trade, err := fn(user, tradeID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	message := messageKey
	if trade.Status == models.TradeStatusCompleted {
		message = i18n.KeyTradeCompleted
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, message),
		"trade":   trade,
	})
}
