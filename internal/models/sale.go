// internal/models/sale.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// SaleRecord is one vendor quick sale of an inventory item.
type SaleRecord struct {
	BaseModel
	VendorID        uuid.UUID `json:"vendor_id" gorm:"type:uuid;not null;index"`
	InventoryItemID uuid.UUID `json:"inventory_item_id" gorm:"type:uuid;not null;index"`
	SalePrice       float64   `json:"sale_price" gorm:"type:decimal(10,2);not null"`
	BuyerName       string    `json:"buyer_name,omitempty" gorm:"size:120"`
	PaymentMethod   string    `json:"payment_method" gorm:"size:20;default:'cash'"`
	PaymentRef      string    `json:"payment_ref,omitempty" gorm:"size:255"`
	Notes           string    `json:"notes,omitempty" gorm:"size:500"`
	SoldAt          time.Time `json:"sold_at" gorm:"not null;index"`

	// Relationships
	Vendor        User          `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
	InventoryItem InventoryItem `json:"inventory_item,omitempty" gorm:"foreignKey:InventoryItemID"`
}
