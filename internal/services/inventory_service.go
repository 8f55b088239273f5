// internal/services/inventory_service.go
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cardmeet/cardmeet-backend/internal/apperrors"
	"github.com/cardmeet/cardmeet-backend/internal/models"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

type InventoryService struct {
	db    *gorm.DB
	cards *CardAPIService
}

type CreateInventoryItemRequest struct {
	CardDefinitionID string   `json:"card_definition_id" validate:"required"`
	Quantity         int      `json:"quantity,omitempty" validate:"omitempty,gte=1,lte=999"`
	Condition        string   `json:"condition,omitempty" validate:"omitempty,oneof=mint near_mint excellent good light_played heavily_played damaged"`
	Language         string   `json:"language,omitempty" validate:"omitempty,max=10"`
	Visibility       string   `json:"visibility,omitempty" validate:"omitempty,oneof=public trade_only personal"`
	AcquisitionNote  string   `json:"acquisition_note,omitempty" validate:"omitempty,max=240"`
	PurchasePrice    *float64 `json:"purchase_price,omitempty" validate:"omitempty,gte=0"`
	DesiredSalePrice *float64 `json:"desired_sale_price,omitempty" validate:"omitempty,gte=0"`
	EstimatedValue   *float64 `json:"estimated_value,omitempty" validate:"omitempty,gte=0"`
	PhotoURL         string   `json:"photo_url,omitempty" validate:"omitempty,max=512"`
	Notes            string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type UpdateInventoryItemRequest struct {
	Visibility       *string  `json:"visibility,omitempty" validate:"omitempty,oneof=public trade_only personal"`
	DesiredSalePrice *float64 `json:"desired_sale_price,omitempty" validate:"omitempty,gte=0"`
	EstimatedValue   *float64 `json:"estimated_value,omitempty" validate:"omitempty,gte=0"`
	Notes            *string  `json:"notes,omitempty" validate:"omitempty,max=500"`
	PhotoURL         *string  `json:"photo_url,omitempty" validate:"omitempty,max=512"`
}

func NewInventoryService(db *gorm.DB, cards *CardAPIService) *InventoryService {
	return &InventoryService{db: db, cards: cards}
}

// CreateItem adds a card to the user's inventory, upserting the card
// definition from the provider on first sight.
func (s *InventoryService) CreateItem(ctx context.Context, owner *models.User, req *CreateInventoryItemRequest) (*models.InventoryItem, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid inventory request", err)
	}

	def, err := s.cards.EnsureCardDefinition(ctx, req.CardDefinitionID)
	if err != nil {
		return nil, err
	}

	// Refresh the local copy of the provider card
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(def).Error; err != nil {
		return nil, apperrors.Internal("failed to persist card definition", err)
	}

	item := &models.InventoryItem{
		OwnerID:          owner.ID,
		CardDefinitionID: def.ID,
		Quantity:         req.Quantity,
		Condition:        models.CardCondition(req.Condition),
		Language:         req.Language,
		Visibility:       models.InventoryVisibility(req.Visibility),
		Status:           models.InventoryStatusAvailable,
		AcquisitionNote:  req.AcquisitionNote,
		PurchasePrice:    req.PurchasePrice,
		DesiredSalePrice: req.DesiredSalePrice,
		EstimatedValue:   req.EstimatedValue,
		PhotoURL:         req.PhotoURL,
		Notes:            req.Notes,
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if item.Condition == "" {
		item.Condition = models.CardConditionNearMint
	}
	if item.Visibility == "" {
		item.Visibility = models.InventoryVisibilityPublic
	}

	if err := s.db.Create(item).Error; err != nil {
		return nil, apperrors.Internal("failed to create inventory item", err)
	}

	logrus.WithFields(logrus.Fields{
		"item_id":  item.ID,
		"owner_id": owner.ID,
		"card_id":  def.ID,
	}).Info("Inventory item created")

	item.CardDefinition = *def
	return item, nil
}

// ListOwn returns the full inventory of the authenticated user,
// archived items included when requested.
func (s *InventoryService) ListOwn(ownerID uuid.UUID, params utils.PaginationParams, includeArchived bool) ([]models.InventoryItem, int64, error) {
	query := s.db.Model(&models.InventoryItem{}).
		Preload("CardDefinition").
		Where("owner_id = ?", ownerID)

	if !includeArchived {
		query = query.Where("status <> ?", models.InventoryStatusArchived)
	}
	if params.Condition != "" {
		query = query.Where("condition = ?", params.Condition)
	}
	if params.Search != "" {
		query = query.Joins("JOIN card_definitions ON card_definitions.id = inventory_items.card_definition_id").
			Where("card_definitions.name ILIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to count inventory", err)
	}

	allowedSortFields := []string{"created_at", "estimated_value", "desired_sale_price", "condition"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var items []models.InventoryItem
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to fetch inventory", err)
	}

	return items, total, nil
}

// ListPublic returns another user's visible inventory. Personal items
// never leave the owner's own listing.
func (s *InventoryService) ListPublic(ownerID uuid.UUID, params utils.PaginationParams) ([]models.InventoryItem, int64, error) {
	query := s.db.Model(&models.InventoryItem{}).
		Preload("CardDefinition").
		Where("owner_id = ?", ownerID).
		Where("visibility <> ?", models.InventoryVisibilityPersonal).
		Where("status <> ?", models.InventoryStatusArchived)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to count inventory", err)
	}

	allowedSortFields := []string{"created_at", "estimated_value", "condition"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var items []models.InventoryItem
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to fetch inventory", err)
	}

	return items, total, nil
}

func (s *InventoryService) GetItem(itemID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.Preload("CardDefinition").Preload("Owner").
		First(&item, "id = ?", itemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("inventory item not found")
		}
		return nil, apperrors.Internal("database error", err)
	}
	return &item, nil
}

// UpdateItem edits owner-facing fields. Items locked in a proposal
// cannot be edited; the frozen trade valuation must stay meaningful.
func (s *InventoryService) UpdateItem(ownerID, itemID uuid.UUID, req *UpdateInventoryItemRequest) (*models.InventoryItem, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid update request", err)
	}

	item, err := s.ownedItem(ownerID, itemID)
	if err != nil {
		return nil, err
	}

	if item.Status == models.InventoryStatusInProposal {
		return nil, apperrors.Conflict("item is locked in an active trade proposal")
	}

	updates := map[string]interface{}{}
	if req.Visibility != nil {
		updates["visibility"] = *req.Visibility
	}
	if req.DesiredSalePrice != nil {
		updates["desired_sale_price"] = *req.DesiredSalePrice
	}
	if req.EstimatedValue != nil {
		updates["estimated_value"] = *req.EstimatedValue
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.PhotoURL != nil {
		updates["photo_url"] = *req.PhotoURL
	}
	if len(updates) == 0 {
		return item, nil
	}

	if err := s.db.Model(item).Updates(updates).Error; err != nil {
		return nil, apperrors.Internal("failed to update inventory item", err)
	}

	return s.GetItem(itemID)
}

// ArchiveItem soft-retires an item from trading and sale listings.
func (s *InventoryService) ArchiveItem(ownerID, itemID uuid.UUID) error {
	item, err := s.ownedItem(ownerID, itemID)
	if err != nil {
		return err
	}

	if item.Status == models.InventoryStatusInProposal {
		return apperrors.Conflict("item is locked in an active trade proposal")
	}
	if item.Status == models.InventoryStatusArchived {
		return nil
	}

	err = s.db.Model(item).Update("status", models.InventoryStatusArchived).Error
	if err != nil {
		return apperrors.Internal("failed to archive inventory item", err)
	}
	return nil
}

func (s *InventoryService) ownedItem(ownerID, itemID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.First(&item, "id = ?", itemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("inventory item not found")
		}
		return nil, apperrors.Internal("database error", err)
	}
	if item.OwnerID != ownerID {
		return nil, apperrors.Forbidden("item does not belong to you")
	}
	return &item, nil
}
