package notification

import (
	"context"
	"errors"
	"strings"

	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/infrastructure/persistence/postgres/connection"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// feedOrder is the deterministic feed ordering: priority first, newest next,
// id as the final tie-break.
const feedOrder = "priority DESC, created_at DESC, id DESC"

// readMarkConflictTarget is the unique key the conflict-ignore inserts rely on
var readMarkConflictTarget = []clause.Column{{Name: "notification_id"}, {Name: "user_id"}}

// postgresRepository implements the Repository interface for PostgreSQL
type postgresRepository struct {
	db     *connection.Database
	logger *logrus.Logger
}

// NewRepository creates a new PostgreSQL notification repository
func NewRepository(db *connection.Database, logger *logrus.Logger) Repository {
	return &postgresRepository{
		db:     db,
		logger: logger,
	}
}

// withRecovery executes the given function with database error recovery.
// Connection-level failures get one reconnect-and-retry; whatever still fails
// surfaces as a StoreUnavailableError so callers know the operation is safe
// to retry.
func (r *postgresRepository) withRecovery(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	db := r.db.WithContext(ctx)

	err := fn(db)
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	r.logger.WithError(err).WithField("operation", operation).Error("Database operation failed")

	if !isConnectionError(err) {
		return &StoreUnavailableError{Op: operation, Err: err}
	}

	r.logger.WithField("operation", operation).Warn("Database connection error, attempting reconnection")
	if reconnectErr := r.db.Reconnect(); reconnectErr != nil {
		r.logger.WithError(reconnectErr).Error("Failed to reconnect to database")
		return &StoreUnavailableError{Op: operation, Err: err}
	}

	db = r.db.WithContext(ctx)
	if retryErr := fn(db); retryErr != nil {
		r.logger.WithError(retryErr).Error("Operation failed after reconnection")
		return &StoreUnavailableError{Op: operation, Err: retryErr}
	}

	return nil
}

// Check if an error is related to connection problems
func isConnectionError(err error) bool {
	errMsg := err.Error()
	for _, fragment := range []string{
		"connection refused",
		"bad connection",
		"connection reset by peer",
		"broken pipe",
		"connection closed",
		"driver: bad connection",
		"hostname resolving error",
		"operation was canceled",
	} {
		if strings.Contains(errMsg, fragment) {
			return true
		}
	}
	return false
}

// Create inserts a notification row
func (r *postgresRepository) Create(ctx context.Context, n *Notification) error {
	if err := n.applyDefaults(); err != nil {
		return err
	}
	return r.withRecovery(ctx, "Create", func(tx *gorm.DB) error {
		return tx.Create(n).Error
	})
}

// GetByID retrieves a notification by its ID
func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	var n Notification

	err := r.withRecovery(ctx, "GetByID", func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).First(&n).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "notification", ID: id.String()}
		}
		return nil, err
	}

	return &n, nil
}

// ListVisible returns ordered notifications matching the visibility condition
func (r *postgresRepository) ListVisible(ctx context.Context, vis Condition, kind *Kind) ([]*Notification, error) {
	var notifications []*Notification

	visSQL, visArgs := vis.Clause()

	err := r.withRecovery(ctx, "ListVisible", func(tx *gorm.DB) error {
		query := tx.Model(&Notification{}).
			Where(visSQL, visArgs...).
			Order(feedOrder)

		if kind != nil {
			query = query.Where("kind = ?", string(*kind))
		}

		return query.Find(&notifications).Error
	})

	if err != nil {
		return nil, err
	}

	return notifications, nil
}

// ReadMarksFor returns the subset of the given IDs the user has read
func (r *postgresRepository) ReadMarksFor(ctx context.Context, userID uuid.UUID, notificationIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	read := make(map[uuid.UUID]bool, len(notificationIDs))
	if len(notificationIDs) == 0 {
		return read, nil
	}

	var markedIDs []uuid.UUID

	err := r.withRecovery(ctx, "ReadMarksFor", func(tx *gorm.DB) error {
		return tx.Model(&ReadMark{}).
			Where("user_id = ? AND notification_id IN ?", userID, notificationIDs).
			Pluck("notification_id", &markedIDs).Error
	})

	if err != nil {
		return nil, err
	}

	for _, id := range markedIDs {
		read[id] = true
	}

	return read, nil
}

// CreateReadMark inserts a read mark with insert-conflict-ignore semantics.
// Two concurrent calls for the same pair both succeed; the unique index
// guarantees only one row lands, and RowsAffected tells the callers apart.
func (r *postgresRepository) CreateReadMark(ctx context.Context, mark *ReadMark) (bool, error) {
	if err := mark.applyDefaults(); err != nil {
		return false, err
	}

	var created bool

	err := r.withRecovery(ctx, "CreateReadMark", func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   readMarkConflictTarget,
			DoNothing: true,
		}).Create(mark)

		if result.Error != nil {
			return result.Error
		}

		created = result.RowsAffected > 0
		return nil
	})

	if err != nil {
		return false, err
	}

	return created, nil
}

// CreateReadMarks bulk-inserts read marks, ignoring pairs that already exist.
// Re-running a partially applied batch converges on the same end state.
func (r *postgresRepository) CreateReadMarks(ctx context.Context, marks []*ReadMark) (int64, error) {
	if len(marks) == 0 {
		return 0, nil
	}

	for _, mark := range marks {
		if err := mark.applyDefaults(); err != nil {
			return 0, err
		}
	}

	var created int64

	err := r.withRecovery(ctx, "CreateReadMarks", func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   readMarkConflictTarget,
			DoNothing: true,
		}).Create(&marks)

		if result.Error != nil {
			return result.Error
		}

		created = result.RowsAffected
		return nil
	})

	if err != nil {
		return 0, err
	}

	return created, nil
}

// CountUnread counts visible notifications lacking a read mark for the user
func (r *postgresRepository) CountUnread(ctx context.Context, vis Condition, kind *Kind, userID uuid.UUID) (int64, error) {
	var count int64

	visSQL, visArgs := vis.Clause()

	err := r.withRecovery(ctx, "CountUnread", func(tx *gorm.DB) error {
		query := tx.Model(&Notification{}).
			Where(visSQL, visArgs...).
			Where("NOT EXISTS (SELECT 1 FROM notification_reads WHERE notification_reads.notification_id = notifications.id AND notification_reads.user_id = ?)", userID)

		if kind != nil {
			query = query.Where("kind = ?", string(*kind))
		}

		return query.Count(&count).Error
	})

	if err != nil {
		return 0, err
	}

	return count, nil
}

// ListUnreadIDs returns IDs of visible notifications lacking a read mark
func (r *postgresRepository) ListUnreadIDs(ctx context.Context, vis Condition, kind *Kind, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	visSQL, visArgs := vis.Clause()

	err := r.withRecovery(ctx, "ListUnreadIDs", func(tx *gorm.DB) error {
		query := tx.Model(&Notification{}).
			Where(visSQL, visArgs...).
			Where("NOT EXISTS (SELECT 1 FROM notification_reads WHERE notification_reads.notification_id = notifications.id AND notification_reads.user_id = ?)", userID)

		if kind != nil {
			query = query.Where("kind = ?", string(*kind))
		}

		return query.Pluck("id", &ids).Error
	})

	if err != nil {
		return nil, err
	}

	return ids, nil
}
