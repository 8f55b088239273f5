// internal/handlers/vendor.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cardmeet/cardmeet-backend/internal/i18n"
	"github.com/cardmeet/cardmeet-backend/internal/models"
	"github.com/cardmeet/cardmeet-backend/internal/services"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

type VendorHandler struct {
	vendorService *services.VendorService
	authService   *services.AuthService
}

func NewVendorHandler(vendorService *services.VendorService, authService *services.AuthService) *VendorHandler {
	return &VendorHandler{
		vendorService: vendorService,
		authService:   authService,
	}
}

func (h *VendorHandler) loadUser(c *gin.Context) (*models.User, bool) {
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

// POST /vendor/sales
func (h *VendorHandler) QuickSale(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	var req services.QuickSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	sale, err := h.vendorService.QuickSale(user, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeySaleRecorded),
		"sale":    sale,
	})
}

// POST /vendor/payments
func (h *VendorHandler) OpenCardPayment(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	var req struct {
		InventoryItemID uuid.UUID `json:"inventory_item_id" validate:"required"`
		Amount          float64   `json:"amount" validate:"required,gt=0"`
	}
	if !bindAndValidate(c, &req) {
		return
	}

	intent, err := h.vendorService.OpenCardPayment(user, req.InventoryItemID, req.Amount)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"payment": intent,
	})
}

// GET /vendor/sales
func (h *VendorHandler) ListSales(c *gin.Context) {
	vendorID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	sales, total, err := h.vendorService.GetSales(vendorID, params)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(sales, total, params))
}

// GET /vendor/dashboard
func (h *VendorHandler) GetDashboard(c *gin.Context) {
	vendorID, ok := currentUserID(c)
	if !ok {
		return
	}

	dashboard, err := h.vendorService.GetDashboard(vendorID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"dashboard": dashboard,
	})
}
