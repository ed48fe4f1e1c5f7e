package notification

import (
	"time"

	"github.com/google/uuid"
)

// Kind partitions feeds into standard notifications and direct messages
type Kind string

const (
	// KindStandard is a regular notification
	KindStandard Kind = "standard"
	// KindMessage is a direct message
	KindMessage Kind = "message"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	return k == KindStandard || k == KindMessage
}

// Priority is the primary feed ordering key. Values are stored numerically so
// the database sorts them in enum order.
type Priority int16

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
	PriorityUrgent Priority = 3
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	}
	return "unknown"
}

// TargetScope is the audience class of a notification
type TargetScope string

const (
	// ScopeGlobal addresses every user
	ScopeGlobal TargetScope = "global"
	// ScopeRole addresses the members of a single role
	ScopeRole TargetScope = "role"
	// ScopeUser addresses a single user
	ScopeUser TargetScope = "user"
)

// Valid reports whether s is a known scope
func (s TargetScope) Valid() bool {
	return s == ScopeGlobal || s == ScopeRole || s == ScopeUser
}

// Notification is an immutable announcement row. TargetID is set iff
// TargetScope is role or user; rows are never updated after creation.
type Notification struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string      `json:"title" gorm:"not null"`
	Body        string      `json:"body" gorm:"not null"`
	Kind        Kind        `json:"kind" gorm:"not null;index"`
	Priority    Priority    `json:"priority" gorm:"not null;default:1"`
	TargetScope TargetScope `json:"target_scope" gorm:"not null;index"`
	TargetID    *uuid.UUID  `json:"target_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt   time.Time   `json:"created_at" gorm:"not null"`
}

// applyDefaults assigns the id and creation time; the repository calls it
// before insert.
func (n *Notification) applyDefaults() error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return nil
}

// ReadMark records that a user has seen a notification. Read state is the
// existence of the row: at most one row per (notification, user) pair, which
// a unique composite index enforces.
type ReadMark struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	NotificationID uuid.UUID `json:"notification_id" gorm:"type:uuid;not null;uniqueIndex:idx_read_marks_pair"`
	UserID         uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_read_marks_pair"`
	ReadAt         time.Time `json:"read_at" gorm:"not null"`
}

// TableName overrides the gorm default
func (ReadMark) TableName() string {
	return "notification_reads"
}

// applyDefaults assigns the id and read time; the repository calls it
// before insert.
func (m *ReadMark) applyDefaults() error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.ReadAt.IsZero() {
		m.ReadAt = time.Now().UTC()
	}
	return nil
}

// UserContext is the caller identity supplied by the auth layer. RoleID is
// the zero UUID for users without an assigned role.
type UserContext struct {
	UserID uuid.UUID
	RoleID uuid.UUID
}

// FeedItem pairs a notification with the caller's read state
type FeedItem struct {
	Notification Notification `json:"notification"`
	IsRead       bool         `json:"is_read"`
}
