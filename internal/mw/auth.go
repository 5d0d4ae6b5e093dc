package mw

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"equipment-tracker-backend/internal/auth"
)

// Identity is the authenticated caller: who they are and which school's
// equipment they may touch.
type Identity struct {
	UserID   int64
	SchoolID int64
	Role     string
}

const identityKey = "mw.identity"

// Auth is a middleware that validates the bearer token and stores the
// caller identity on the request context.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := auth.ValidateToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(identityKey, Identity{
			UserID:   claims.UserID,
			SchoolID: claims.SchoolID,
			Role:     claims.Role,
		})
		c.Next()
	}
}

// GetIdentity returns the caller identity set by Auth.
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	ident, ok := v.(Identity)
	return ident, ok
}

func identityCacheKey(schoolID int64, uri string) string {
	return fmt.Sprintf("school:%d:%s", schoolID, uri)
}
