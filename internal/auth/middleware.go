package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeyOperator is the gin context key the middleware sets.
const ContextKeyOperator = "operator"

// Middleware creates a JWT bearer-token authentication middleware.
func Middleware(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization header format",
			})
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		c.Set(ContextKeyOperator, claims.Operator)
		c.Next()
	}
}

// GetOperator returns the authenticated operator name, if any.
func GetOperator(c *gin.Context) string {
	if operator, exists := c.Get(ContextKeyOperator); exists {
		if s, ok := operator.(string); ok {
			return s
		}
	}
	return ""
}
