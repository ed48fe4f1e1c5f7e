package notification

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for the notification store and read ledger.
// Both tables are append-only; the only conflict-sensitive write is the read
// mark insert, which implementations must make conflict-ignoring on the
// (notification_id, user_id) unique key.
type Repository interface {
	// Create inserts a notification row
	Create(ctx context.Context, n *Notification) error

	// GetByID retrieves a notification by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)

	// ListVisible returns the notifications matching the visibility condition,
	// optionally filtered by kind, ordered by priority, creation time and id,
	// all descending.
	ListVisible(ctx context.Context, vis Condition, kind *Kind) ([]*Notification, error)

	// ReadMarksFor returns the subset of the given notification IDs the user
	// has read.
	ReadMarksFor(ctx context.Context, userID uuid.UUID, notificationIDs []uuid.UUID) (map[uuid.UUID]bool, error)

	// CreateReadMark inserts a read mark unless one already exists for the
	// pair. Returns true when a row was actually written.
	CreateReadMark(ctx context.Context, mark *ReadMark) (bool, error)

	// CreateReadMarks bulk-inserts read marks with the same conflict-ignore
	// semantics and returns the number of rows actually written.
	CreateReadMarks(ctx context.Context, marks []*ReadMark) (int64, error)

	// CountUnread counts visible notifications without a read mark for the user
	CountUnread(ctx context.Context, vis Condition, kind *Kind, userID uuid.UUID) (int64, error)

	// ListUnreadIDs returns the IDs of visible notifications without a read
	// mark for the user.
	ListUnreadIDs(ctx context.Context, vis Condition, kind *Kind, userID uuid.UUID) ([]uuid.UUID, error)
}
