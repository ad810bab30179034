package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenAuth enforces bearer JWT tokens signed with HS256 and stores the
// parsed claims on the request context.
func TokenAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

// RequireRole rejects requests whose token carries a different role.
// Admins pass every check.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsAny, ok := c.Get("claims")
		claims, _ := claimsAny.(Claims)
		if !ok || (claims.Role != role && claims.Role != RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}
