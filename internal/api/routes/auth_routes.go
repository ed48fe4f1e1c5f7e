package routes

import (
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/api/handlers"
	"github.com/gin-gonic/gin"
)

// AuthRoutes manages authentication endpoint routes
type AuthRoutes struct {
	handler *handlers.AuthHandler
}

// NewAuthRoutes creates a new auth routes handler
func NewAuthRoutes(handler *handlers.AuthHandler) *AuthRoutes {
	return &AuthRoutes{handler: handler}
}

// RegisterRoutes registers auth routes with the provided router
func (r *AuthRoutes) RegisterRoutes(router *gin.Engine) {
	authRoutes := router.Group("/api/auth")
	{
		authRoutes.POST("/login", r.handler.Login)
	}
}
