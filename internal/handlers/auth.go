// internal/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cardmeet/cardmeet-backend/internal/i18n"
	"github.com/cardmeet/cardmeet-backend/internal/services"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.RegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}

	authResponse, err := h.authService.Register(&req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":                i18n.T(lang, i18n.KeyAuthRegisterSuccess),
		"user":                   authResponse.User,
		"token":                  authResponse.AccessToken,
		"requires_parental_link": authResponse.RequiresParentalLink,
	})
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	authResponse, err := h.authService.Login(&req)
	if err != nil {
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":                i18n.T(lang, i18n.KeyAuthLoginSuccess),
		"user":                   authResponse.User,
		"token":                  authResponse.AccessToken,
		"requires_parental_link": authResponse.RequiresParentalLink,
	})
}

// GET /auth/me
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetProfile(userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"user": user,
	})
}
