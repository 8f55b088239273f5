// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Name          string     `json:"name" gorm:"size:120;not null"`
	Email         string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash  string     `json:"-" gorm:"size:255;not null"`
	BirthDate     time.Time  `json:"birth_date" gorm:"not null"`
	Role          UserRole   `json:"role" gorm:"type:varchar(20);not null;index"`
	IsKYCVerified bool       `json:"is_kyc_verified" gorm:"default:false"`

	// Guardian link for minors. A minor without a guardian can register
	// but cannot clear parental-approval gates until linked.
	GuardianID            *uuid.UUID `json:"guardian_id" gorm:"type:uuid;index"`
	ParentLinkCode        *string    `json:"parent_link_code,omitempty" gorm:"size:16;index"`
	ParentLinkCodeExpires *time.Time `json:"parent_link_code_expires_at,omitempty"`

	// Relationships
	Guardian       *User           `json:"guardian,omitempty" gorm:"foreignKey:GuardianID"`
	Dependents     []User          `json:"dependents,omitempty" gorm:"foreignKey:GuardianID"`
	InventoryItems []InventoryItem `json:"inventory_items,omitempty" gorm:"foreignKey:OwnerID"`
	Participations []EventParticipation `json:"participations,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *User) IsMinor() bool {
	return u.Role == UserRoleMinor
}
