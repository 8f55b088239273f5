// internal/models/inventory.go
package models

import (
	"github.com/google/uuid"
)

// InventoryItem is one owned stack of a card. Ownership is exclusive;
// the owner column is reassigned atomically when a trade completes.
// Status is the shared mutable state contested across trades: once an
// item is in a proposal only the trading service may write it.
type InventoryItem struct {
	BaseModel
	OwnerID          uuid.UUID           `json:"owner_id" gorm:"type:uuid;not null;index"`
	CardDefinitionID string              `json:"card_definition_id" gorm:"size:64;not null;index"`
	Quantity         int                 `json:"quantity" gorm:"default:1;not null"`
	Condition        CardCondition       `json:"condition" gorm:"type:varchar(20)"`
	Language         string              `json:"language" gorm:"size:10"`
	Visibility       InventoryVisibility `json:"visibility" gorm:"type:varchar(20);default:'public'"`
	Status           InventoryStatus     `json:"status" gorm:"type:varchar(20);default:'available';index"`
	AcquisitionNote  string              `json:"acquisition_note,omitempty" gorm:"size:240"`
	PurchasePrice    *float64            `json:"purchase_price,omitempty" gorm:"type:decimal(10,2)"`
	DesiredSalePrice *float64            `json:"desired_sale_price,omitempty" gorm:"type:decimal(10,2)"`
	EstimatedValue   *float64            `json:"estimated_value,omitempty" gorm:"type:decimal(10,2)"`
	PhotoURL         string              `json:"photo_url,omitempty" gorm:"size:512"`
	Notes            string              `json:"notes,omitempty" gorm:"size:500"`

	// Relationships
	Owner          User           `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	CardDefinition CardDefinition `json:"card_definition,omitempty" gorm:"foreignKey:CardDefinitionID"`
}
