package migrations

import (
	"fmt"

	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/domain/notification"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/domain/roles"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/domain/user"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/infrastructure/persistence/postgres/connection"
	"go.uber.org/zap"
)

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *connection.Database, logger *zap.Logger) error {
	logger.Info("Starting automatic database migration...")

	// Enable UUID extension for PostgreSQL
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		logger.Error("Failed to create UUID extension", zap.Error(err))
		return fmt.Errorf("failed to create UUID extension: %v", err)
	}

	models := []interface{}{
		&roles.Role{},
		&user.User{},
		&notification.Notification{},
		&notification.ReadMark{},
	}

	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			logger.Error("Migration failed", zap.Error(err), zap.Any("model", fmt.Sprintf("%T", model)))
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	// The read ledger's correctness depends on this index existing: the
	// conflict-ignore insert targets it. AutoMigrate creates it from the
	// model tags, this guards against drift on pre-existing databases.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_read_marks_pair ON notification_reads (notification_id, user_id);`).Error; err != nil {
		logger.Error("Failed to ensure read mark uniqueness index", zap.Error(err))
		return fmt.Errorf("failed to ensure read mark uniqueness index: %w", err)
	}

	logger.Info("Database migration completed successfully")
	return nil
}
