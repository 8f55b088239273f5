// internal/models/trade.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Trade is a bilateral exchange proposal. Status only ever moves
// forward; the handshake timestamps fill in independently of each
// other while the trade sits in accepted.
type Trade struct {
	BaseModel
	EventID    uuid.UUID   `json:"event_id" gorm:"type:uuid;not null;index"`
	ProposerID uuid.UUID   `json:"proposer_id" gorm:"type:uuid;not null;index"`
	ReceiverID uuid.UUID   `json:"receiver_id" gorm:"type:uuid;not null;index"`
	Status     TradeStatus `json:"status" gorm:"type:varchar(30);not null;index"`

	ProposerCash float64 `json:"proposer_cash" gorm:"type:decimal(10,2);default:0"`
	ReceiverCash float64 `json:"receiver_cash" gorm:"type:decimal(10,2);default:0"`

	// Valuations frozen at proposal time. Later edits to item values
	// never retroactively invalidate an existing trade.
	ProposerValuation  float64 `json:"proposer_valuation" gorm:"type:decimal(10,2);not null"`
	ReceiverValuation  float64 `json:"receiver_valuation" gorm:"type:decimal(10,2);not null"`
	ValueDifference    float64 `json:"value_difference" gorm:"type:decimal(10,2);not null"`
	ValueDifferencePct float64 `json:"value_difference_pct" gorm:"type:decimal(5,2);not null"`

	AcceptedAt          *time.Time `json:"accepted_at,omitempty"`
	ProposerHandshakeAt *time.Time `json:"proposer_handshake_at,omitempty"`
	ReceiverHandshakeAt *time.Time `json:"receiver_handshake_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`

	ChatChannelID string `json:"chat_channel_id,omitempty" gorm:"size:120"`
	Notes         string `json:"notes,omitempty" gorm:"size:240"`

	// Relationships
	Event     Event           `json:"event,omitempty" gorm:"foreignKey:EventID"`
	Proposer  User            `json:"proposer,omitempty" gorm:"foreignKey:ProposerID"`
	Receiver  User            `json:"receiver,omitempty" gorm:"foreignKey:ReceiverID"`
	Items     []TradeItem     `json:"items,omitempty" gorm:"foreignKey:TradeID"`
	Approvals []TradeApproval `json:"approvals,omitempty" gorm:"foreignKey:TradeID"`
}

// TradeItem binds one inventory item to one side of a trade with the
// valuation captured at proposal time. Created once, never mutated.
type TradeItem struct {
	BaseModel
	TradeID         uuid.UUID `json:"trade_id" gorm:"type:uuid;not null;index"`
	InventoryItemID uuid.UUID `json:"inventory_item_id" gorm:"type:uuid;not null;index"`
	Side            TradeSide `json:"side" gorm:"type:varchar(10);not null"`
	Valuation       float64   `json:"valuation" gorm:"type:decimal(10,2);not null"`

	// Relationships
	Trade         Trade         `json:"trade,omitempty" gorm:"foreignKey:TradeID"`
	InventoryItem InventoryItem `json:"inventory_item,omitempty" gorm:"foreignKey:InventoryItemID"`
}

// TradeApproval is one guardian's pending or decided sign-off on a
// minor-involving trade. Decided exactly once.
type TradeApproval struct {
	BaseModel
	TradeID      uuid.UUID      `json:"trade_id" gorm:"type:uuid;not null;index"`
	GuardianID   uuid.UUID      `json:"guardian_id" gorm:"type:uuid;not null;index"`
	Status       ApprovalStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	DecisionAt   *time.Time     `json:"decision_at,omitempty"`
	DecisionNote string         `json:"decision_note,omitempty" gorm:"size:500"`

	// Relationships
	Trade    Trade `json:"trade,omitempty" gorm:"foreignKey:TradeID"`
	Guardian User  `json:"guardian,omitempty" gorm:"foreignKey:GuardianID"`
}
