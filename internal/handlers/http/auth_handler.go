package http

import (
	"errors"
	"net/http"
	"strings"

	"callroom/internal/core/domain"
	"callroom/internal/core/services"
	apperrors "callroom/pkg/errors"
	"callroom/pkg/validation"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func (h *AuthHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/auth")
	{
		api.POST("/refresh", h.RefreshToken)
	}
}

// RefreshTokenRequest trades a refresh token for a new token pair. The
// display fields are carried into the new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required,max=2048"`
	Nickname     string `json:"nickname" binding:"max=64"`
	ProfileURL   string `json:"profileUrl" binding:"max=2048"`
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidParamsError("invalid request format").WithContext("reason", err.Error()))
		return
	}

	claims, err := h.authService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRefreshToken) {
			c.Error(apperrors.WrapError(err, apperrors.CodeInvalidRefreshToken,
				apperrors.CodeInvalidRefreshToken.Message(), http.StatusUnauthorized))
			return
		}
		c.Error(apperrors.NewInternalError(err))
		return
	}

	nickname := strings.TrimSpace(req.Nickname)
	if nickname != "" {
		if err := validation.ValidateStringLength(nickname, 1, 64, "nickname"); err != nil {
			c.Error(apperrors.NewInvalidParamsError(err.Error()))
			return
		}
	}

	identity := domain.Identity{
		UserID:     claims.UserID,
		Name:       nickname,
		ProfileURL: strings.TrimSpace(req.ProfileURL),
	}

	accessToken, err := h.authService.GenerateToken(identity)
	if err != nil {
		c.Error(apperrors.NewInternalError(err))
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken(claims.UserID)
	if err != nil {
		c.Error(apperrors.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":         int(apperrors.CodeSuccess),
		"message":      apperrors.CodeSuccess.Message(),
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}
