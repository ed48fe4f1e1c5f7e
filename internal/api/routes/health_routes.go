package routes

import (
	"net/http"

	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/infrastructure/persistence/postgres/connection"
	"github.com/gin-gonic/gin"
)

// HealthRoutes manages health check endpoints
type HealthRoutes struct {
	db *connection.Database
}

// NewHealthRoutes creates a new health routes handler
func NewHealthRoutes(db *connection.Database) *HealthRoutes {
	return &HealthRoutes{db: db}
}

// RegisterRoutes registers health routes with the provided router
func (r *HealthRoutes) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := r.db.DB.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
