package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/security"
)

// Context keys set by RequireAuth.
const (
	ContextUserIDKey = "auth_user_id"
	ContextRoleKey   = "auth_role"
	ContextClaimsKey = "auth_claims"
)

// AccessTokenParser validates bearer tokens. Satisfied by usecase.AuthService.
type AccessTokenParser interface {
	ParseAccessToken(token string) (*security.AccessClaims, error)
}

// RequireAuth rejects requests without a valid bearer access token and
// stores the verified claims on the Gin context.
func RequireAuth(parser AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header must be a bearer token"})
			return
		}

		claims, err := parser.ParseAccessToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired access token"})
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextRoleKey, string(claims.Role))
		c.Set(ContextClaimsKey, claims)

		c.Next()
	}
}

// UserIDFromContext returns the authenticated user id set by RequireAuth.
func UserIDFromContext(c *gin.Context) (string, bool) {
	value, ok := c.Get(ContextUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}
