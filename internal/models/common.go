// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleMinor    UserRole = "minor"
	UserRoleAdult    UserRole = "adult"
	UserRoleGuardian UserRole = "guardian"
	UserRoleVendor   UserRole = "vendor"
	UserRoleAdmin    UserRole = "admin"
)

type InventoryStatus string

const (
	InventoryStatusAvailable  InventoryStatus = "available"
	InventoryStatusInProposal InventoryStatus = "in_proposal"
	InventoryStatusSold       InventoryStatus = "sold"
	InventoryStatusArchived   InventoryStatus = "archived"
)

type InventoryVisibility string

const (
	InventoryVisibilityPublic   InventoryVisibility = "public"
	InventoryVisibilityTrade    InventoryVisibility = "trade_only"
	InventoryVisibilityPersonal InventoryVisibility = "personal"
)

type TradeStatus string

const (
	TradeStatusPendingUser             TradeStatus = "pending_user"
	TradeStatusPendingParentalApproval TradeStatus = "pending_parental_approval"
	TradeStatusAccepted                TradeStatus = "accepted"
	TradeStatusCompleted               TradeStatus = "completed"
	TradeStatusCancelled               TradeStatus = "cancelled"
	TradeStatusRejected                TradeStatus = "rejected"
)

// IsTerminal reports whether no further state-mutating operation may succeed.
func (s TradeStatus) IsTerminal() bool {
	return s == TradeStatusCompleted || s == TradeStatusCancelled || s == TradeStatusRejected
}

type TradeSide string

const (
	TradeSideProposer TradeSide = "proposer"
	TradeSideReceiver TradeSide = "receiver"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusValidated EventStatus = "validated"
	EventStatusCancelled EventStatus = "cancelled"
)

type ParticipationStatus string

const (
	ParticipationStatusPendingParentalApproval ParticipationStatus = "pending_parental_approval"
	ParticipationStatusConfirmed               ParticipationStatus = "confirmed"
	ParticipationStatusRejected                ParticipationStatus = "rejected"
)

type CardCondition string

const (
	CardConditionMint          CardCondition = "mint"
	CardConditionNearMint      CardCondition = "near_mint"
	CardConditionExcellent     CardCondition = "excellent"
	CardConditionGood          CardCondition = "good"
	CardConditionLightPlayed   CardCondition = "light_played"
	CardConditionHeavilyPlayed CardCondition = "heavily_played"
	CardConditionDamaged       CardCondition = "damaged"
)
