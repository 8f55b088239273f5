// internal/models/event.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	BaseModel
	Slug        string      `json:"slug" gorm:"uniqueIndex;size:80;not null"`
	Title       string      `json:"title" gorm:"size:160;not null"`
	Description string      `json:"description" gorm:"type:text"`
	HostID      uuid.UUID   `json:"host_id" gorm:"type:uuid;not null;index"`
	VenueName   string      `json:"venue_name" gorm:"size:160"`
	AddressLine string      `json:"address_line" gorm:"size:255"`
	City        string      `json:"city" gorm:"size:80"`
	Country     string      `json:"country" gorm:"size:80"`
	Latitude    *float64    `json:"latitude,omitempty"`
	Longitude   *float64    `json:"longitude,omitempty"`
	StartAt     time.Time   `json:"start_at" gorm:"not null;index"`
	EndAt       time.Time   `json:"end_at" gorm:"not null"`
	Capacity    int         `json:"capacity" gorm:"default:0"`
	Status      EventStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`

	// Relationships
	Host           User                 `json:"host,omitempty" gorm:"foreignKey:HostID"`
	Participations []EventParticipation `json:"participations,omitempty" gorm:"foreignKey:EventID"`
}

// EventParticipation tracks one user's presence at one event. Minors
// enter pending_parental_approval and carry a parallel parental status.
type EventParticipation struct {
	BaseModel
	EventID              uuid.UUID           `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_event_user"`
	UserID               uuid.UUID           `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_event_user"`
	Status               ParticipationStatus `json:"status" gorm:"type:varchar(30);not null;index"`
	ParentalStatus       *ApprovalStatus     `json:"parental_status,omitempty" gorm:"type:varchar(20)"`
	ParentalDecidedByID  *uuid.UUID          `json:"parental_decided_by_id,omitempty" gorm:"type:uuid"`
	ParentalDecidedAt    *time.Time          `json:"parental_decided_at,omitempty"`
	ParentalDecisionNote string              `json:"parental_decision_note,omitempty" gorm:"size:500"`

	// Relationships
	Event Event `json:"event,omitempty" gorm:"foreignKey:EventID"`
	User  User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
