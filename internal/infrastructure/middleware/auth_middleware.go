package middleware

import (
	"net/http"
	"strings"

	"callroom/internal/core/services"
	apperrors "callroom/pkg/errors"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID   = "user_id"
	ContextNickname = "nickname"
)

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    int(apperrors.CodeInvalidAccessToken),
		"message": message,
	})
}

// AuthMiddleware requires a valid access token in the Authorization header.
func AuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			unauthorized(c, "authorization header required")
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			unauthorized(c, apperrors.CodeInvalidAccessToken.Message())
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextNickname, claims.Nickname)
		c.Next()
	}
}

func OptionalAuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := authService.ValidateToken(token); err == nil {
				c.Set(ContextUserID, claims.UserID)
				c.Set(ContextNickname, claims.Nickname)
			}
		}
		c.Next()
	}
}
