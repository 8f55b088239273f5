// internal/services/vendor_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/cardmeet/cardmeet-backend/internal/apperrors"
	"github.com/cardmeet/cardmeet-backend/internal/database"
	"github.com/cardmeet/cardmeet-backend/internal/models"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

type VendorService struct {
	db       *gorm.DB
	payments *PaymentService
}

type QuickSaleRequest struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id" validate:"required"`
	SalePrice       float64   `json:"sale_price" validate:"required,gt=0"`
	BuyerName       string    `json:"buyer_name,omitempty" validate:"omitempty,max=120"`
	PaymentMethod   string    `json:"payment_method,omitempty" validate:"omitempty,oneof=cash card"`
	PaymentRef      string    `json:"payment_ref,omitempty" validate:"omitempty,max=255"`
	Notes           string    `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type VendorDashboard struct {
	TotalSales     int64   `json:"total_sales"`
	TotalRevenue   float64 `json:"total_revenue"`
	SalesToday     int64   `json:"sales_today"`
	RevenueToday   float64 `json:"revenue_today"`
	AvailableItems int64   `json:"available_items"`
}

func NewVendorService(db *gorm.DB, payments *PaymentService) *VendorService {
	return &VendorService{db: db, payments: payments}
}

// QuickSale records an in-person sale of an available inventory item.
// Card payments must carry a succeeded PaymentIntent reference; the
// item is marked sold and the record written in one transaction.
func (s *VendorService) QuickSale(vendor *models.User, req *QuickSaleRequest) (*models.SaleRecord, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid sale request", err)
	}

	if vendor.Role != models.UserRoleVendor && vendor.Role != models.UserRoleAdmin {
		return nil, apperrors.Forbidden("only vendor accounts can record sales")
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cash"
	}
	if paymentMethod == "card" {
		if req.PaymentRef == "" {
			return nil, apperrors.Validation("card sales require a payment reference")
		}
		if err := s.payments.VerifyPaymentSucceeded(req.PaymentRef); err != nil {
			return nil, err
		}
	}

	var item models.InventoryItem
	if err := s.db.First(&item, "id = ?", req.InventoryItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("inventory item not found")
		}
		return nil, apperrors.Internal("database error", err)
	}
	if item.OwnerID != vendor.ID {
		return nil, apperrors.Forbidden("item does not belong to you")
	}

	record := &models.SaleRecord{
		VendorID:        vendor.ID,
		InventoryItemID: item.ID,
		SalePrice:       req.SalePrice,
		BuyerName:       req.BuyerName,
		PaymentMethod:   paymentMethod,
		PaymentRef:      req.PaymentRef,
		Notes:           req.Notes,
		SoldAt:          time.Now(),
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		result := tx.Model(&models.InventoryItem{}).
			Where("id = ? AND status = ?", item.ID, models.InventoryStatusAvailable).
			Update("status", models.InventoryStatusSold)
		if result.Error != nil {
			return apperrors.Internal("failed to mark item sold", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.Conflict("item is no longer available for sale")
		}

		if err := tx.Create(record).Error; err != nil {
			return apperrors.Internal("failed to record sale", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"sale_id":   record.ID,
		"vendor_id": vendor.ID,
		"item_id":   item.ID,
		"price":     req.SalePrice,
		"method":    paymentMethod,
	}).Info("Quick sale recorded")

	return record, nil
}

// OpenCardPayment starts a Stripe payment for a pending quick sale.
func (s *VendorService) OpenCardPayment(vendor *models.User, itemID uuid.UUID, amount float64) (*PaymentIntentResponse, error) {
	if vendor.Role != models.UserRoleVendor && vendor.Role != models.UserRoleAdmin {
		return nil, apperrors.Forbidden("only vendor accounts can take card payments")
	}

	var item models.InventoryItem
	if err := s.db.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("inventory item not found")
		}
		return nil, apperrors.Internal("database error", err)
	}
	if item.OwnerID != vendor.ID {
		return nil, apperrors.Forbidden("item does not belong to you")
	}
	if item.Status != models.InventoryStatusAvailable {
		return nil, apperrors.Conflict("item is not available for sale")
	}

	return s.payments.CreateSalePaymentIntent(vendor.ID, itemID, amount)
}

func (s *VendorService) GetSales(vendorID uuid.UUID, params utils.PaginationParams) ([]models.SaleRecord, int64, error) {
	query := s.db.Model(&models.SaleRecord{}).
		Preload("InventoryItem.CardDefinition").
		Where("vendor_id = ?", vendorID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to count sales", err)
	}

	allowedSortFields := []string{"sold_at", "sale_price", "created_at"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var sales []models.SaleRecord
	if err := query.Find(&sales).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to fetch sales", err)
	}

	return sales, total, nil
}

func (s *VendorService) GetDashboard(vendorID uuid.UUID) (*VendorDashboard, error) {
	dashboard := &VendorDashboard{}
	startOfDay := time.Now().Truncate(24 * time.Hour)

	if err := s.db.Model(&models.SaleRecord{}).
		Where("vendor_id = ?", vendorID).
		Count(&dashboard.TotalSales).Error; err != nil {
		return nil, apperrors.Internal("failed to count sales", err)
	}

	if err := s.db.Model(&models.SaleRecord{}).
		Where("vendor_id = ?", vendorID).
		Select("COALESCE(SUM(sale_price), 0)").Scan(&dashboard.TotalRevenue).Error; err != nil {
		return nil, apperrors.Internal("failed to sum revenue", err)
	}

	if err := s.db.Model(&models.SaleRecord{}).
		Where("vendor_id = ? AND sold_at >= ?", vendorID, startOfDay).
		Count(&dashboard.SalesToday).Error; err != nil {
		return nil, apperrors.Internal("failed to count today's sales", err)
	}

	if err := s.db.Model(&models.SaleRecord{}).
		Where("vendor_id = ? AND sold_at >= ?", vendorID, startOfDay).
		Select("COALESCE(SUM(sale_price), 0)").Scan(&dashboard.RevenueToday).Error; err != nil {
		return nil, apperrors.Internal("failed to sum today's revenue", err)
	}

	if err := s.db.Model(&models.InventoryItem{}).
		Where("owner_id = ? AND status = ?", vendorID, models.InventoryStatusAvailable).
		Count(&dashboard.AvailableItems).Error; err != nil {
		return nil, apperrors.Internal("failed to count available items", err)
	}

	return dashboard, nil
}
