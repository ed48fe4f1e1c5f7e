package routes

import (
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/api/handlers"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/api/middleware"
	"github.com/PierluigiRizzuExagon/framework-gestionali/pkg/security/auth"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// NotificationRoutes manages notification endpoint routes
type NotificationRoutes struct {
	handler    *handlers.NotificationHandler
	jwtService *auth.JWTService
}

// NewNotificationRoutes creates a new notification routes handler
func NewNotificationRoutes(handler *handlers.NotificationHandler, jwtService *auth.JWTService) *NotificationRoutes {
	return &NotificationRoutes{
		handler:    handler,
		jwtService: jwtService,
	}
}

// RegisterRoutes registers notification routes with the provided router
func (r *NotificationRoutes) RegisterRoutes(router *gin.Engine) {
	authMiddleware := middleware.NewAuthMiddleware(r.jwtService)

	notificationRoutes := router.Group("/api/notifications")
	notificationRoutes.Use(authMiddleware)
	{
		// Feeds can grow large, compress them
		notificationRoutes.GET("/feed/:kind", gzip.Gzip(gzip.DefaultCompression), r.handler.Feed)
		notificationRoutes.GET("/count", r.handler.CountUnread)

		notificationRoutes.PUT("/:id/read", r.handler.MarkRead)
		notificationRoutes.PUT("/read-all", r.handler.MarkAllRead)

		// POST is for back-office publishing
		notificationRoutes.POST("", r.handler.Publish)

		notificationRoutes.GET("/ws", r.handler.WebSocketHandler)
	}
}
