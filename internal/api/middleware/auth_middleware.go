package middleware

import (
	"net/http"
	"strings"

	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/domain/notification"
	"github.com/PierluigiRizzuExagon/framework-gestionali/pkg/security/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	userIDKey = "user_id"
	roleIDKey = "role_id"
)

// NewAuthMiddleware validates the bearer token and stores the caller
// identity in the request context.
func NewAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(roleIDKey, claims.RoleID)
		c.Next()
	}
}

// CurrentUser retrieves the authenticated caller from the context. The role
// is the zero UUID for users without an assigned role.
func CurrentUser(c *gin.Context) (notification.UserContext, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return notification.UserContext{}, false
	}

	uid, ok := userID.(uuid.UUID)
	if !ok || uid == uuid.Nil {
		return notification.UserContext{}, false
	}

	uc := notification.UserContext{UserID: uid}
	if roleID, exists := c.Get(roleIDKey); exists {
		if rid, ok := roleID.(uuid.UUID); ok {
			uc.RoleID = rid
		}
	}

	return uc, true
}
