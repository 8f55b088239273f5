// internal/services/auth_service.go
package services

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/cardmeet/cardmeet-backend/internal/apperrors"
	"github.com/cardmeet/cardmeet-backend/internal/config"
	"github.com/cardmeet/cardmeet-backend/internal/models"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

const (
	adultAge          = 18
	parentLinkCodeTTL = 72 * time.Hour
)

type AuthService struct {
	db     *gorm.DB
	config *config.Config
}

type RegisterRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=120"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,strong_password"`
	BirthDate string `json:"birth_date" validate:"required"`
	Vendor    bool   `json:"vendor,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
	// Minors without a linked guardian must complete the parental
	// link before approval-gated flows can ever unblock.
	RequiresParentalLink bool `json:"requires_parental_link"`
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{db: db, config: cfg}
}

// Register creates an account, deriving the role from the birth date:
// under-18s become minors and receive a one-time parent link code.
func (s *AuthService) Register(req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid registration request", err)
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, apperrors.Validation("birth_date must be a valid YYYY-MM-DD date")
	}
	if birthDate.After(time.Now()) {
		return nil, apperrors.Validation("birth_date must be in the past")
	}

	email := strings.ToLower(req.Email)
	var existing models.User
	if err := s.db.First(&existing, "email = ?", email).Error; err == nil {
		return nil, apperrors.Conflict("email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("database error", err)
	}

	user := &models.User{
		Name:      req.Name,
		Email:     email,
		BirthDate: birthDate,
		Role:      resolveRole(birthDate, req.Vendor),
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}

	if user.Role == models.UserRoleMinor {
		code := generateParentLinkCode()
		expires := time.Now().Add(parentLinkCodeTTL)
		user.ParentLinkCode = &code
		user.ParentLinkCodeExpires = &expires
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, apperrors.Internal("failed to create user", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User registered")

	return s.buildAuthResponse(user)
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid login request", err)
	}

	var user models.User
	err := s.db.First(&user, "email = ?", strings.ToLower(req.Email)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Forbidden("invalid email or password")
		}
		return nil, apperrors.Internal("database error", err)
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, apperrors.Forbidden("invalid email or password")
	}

	return s.buildAuthResponse(&user)
}

// GetProfile returns the authenticated user.
func (s *AuthService) GetProfile(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal("database error", err)
	}
	return &user, nil
}

func (s *AuthService) buildAuthResponse(user *models.User) (*AuthResponse, error) {
	token, err := utils.GenerateJWT(user.ID, user.Email, string(user.Role), s.config.JWT.AccessTokenTTL)
	if err != nil {
		return nil, apperrors.Internal("failed to sign token", err)
	}

	return &AuthResponse{
		AccessToken:          token,
		User:                 user,
		RequiresParentalLink: user.Role == models.UserRoleMinor && user.GuardianID == nil,
	}, nil
}

func resolveRole(birthDate time.Time, vendor bool) models.UserRole {
	if calculateAge(birthDate) < adultAge {
		return models.UserRoleMinor
	}
	if vendor {
		return models.UserRoleVendor
	}
	return models.UserRoleAdult
}

func calculateAge(birthDate time.Time) int {
	now := time.Now()
	age := now.Year() - birthDate.Year()
	if now.YearDay() < birthDate.YearDay() {
		age--
	}
	return age
}

const linkCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateParentLinkCode() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = linkCodeAlphabet[int(b)%len(linkCodeAlphabet)]
	}
	return string(buf)
}
