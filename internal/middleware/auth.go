package middleware

import (
	"chapter_tracker_backend/internal/util"
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenVerifier 校验令牌并返回身份信息
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*util.Claims, error)
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := verifier.Verify(c.Request.Context(), bearerToken(c))
		if err != nil {
			util.HandleError(c, err)
			return
		}
		c.Set(util.ContextAdminKey, claims)
		c.Next()
	}
}
