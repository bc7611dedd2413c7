package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mshelf/internal/auth"
	"github.com/xxxsen/mshelf/internal/pkg/errcode"
	"github.com/xxxsen/mshelf/internal/pkg/jwt"
	"github.com/xxxsen/mshelf/internal/pkg/response"
)

const ContextUserIDKey = "user_id"

// JWTAuth binds the token's user id both to the gin context and to the
// request context, where the gateway implementations read the owner.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "missing authorization")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "invalid authorization")
			return
		}
		claims, err := jwt.ParseToken(strings.TrimSpace(parts[1]), secret)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "invalid token")
			return
		}
		c.Set(ContextUserIDKey, claims.UserID)
		c.Request = c.Request.WithContext(auth.WithOwner(c.Request.Context(), claims.UserID))
		c.Next()
	}
}
