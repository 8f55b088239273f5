// internal/models/card.go
package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CardDefinition mirrors one card from the external card-data provider.
// The ID is the provider's card id, not a generated UUID, so upserts
// keyed on the provider id stay idempotent.
type CardDefinition struct {
	ID              string         `json:"id" gorm:"primary_key;size:64"`
	Name            string         `json:"name" gorm:"size:255;not null;index"`
	Series          string         `json:"series" gorm:"size:120"`
	SetName         string         `json:"set_name" gorm:"size:120"`
	CollectorNumber string         `json:"collector_number" gorm:"size:20"`
	Rarity          string         `json:"rarity" gorm:"size:60"`
	Supertype       string         `json:"supertype" gorm:"size:60"`
	Subtypes        pq.StringArray `json:"subtypes" gorm:"type:text[]"`
	SmallImageURL   string         `json:"small_image_url" gorm:"size:512"`
	LargeImageURL   string         `json:"large_image_url" gorm:"size:512"`
	TCGPlayerID     string         `json:"tcgplayer_product_id" gorm:"size:40"`
	CardMarketID    string         `json:"cardmarket_id" gorm:"size:40"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
