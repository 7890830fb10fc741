package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/leon37/FinChatLedger/internal/api/response"
)

// ContextUserID 鉴权通过后写入 gin.Context 的 key
const ContextUserID = "userID"

// TokenParser 校验 token 并返回用户标识
type TokenParser interface {
	ParseToken(token string) (string, error)
}

func JWTAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header required")
			return
		}

		// 格式通常是 "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "Invalid authorization format")
			return
		}

		userID, err := tokens.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}
