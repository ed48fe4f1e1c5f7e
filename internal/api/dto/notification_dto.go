package dto

import (
	"time"

	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/domain/notification"
	"github.com/google/uuid"
)

// NotificationDTO is the wire shape of a notification with the caller's read state
type NotificationDTO struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Kind        string     `json:"kind"`
	Priority    string     `json:"priority"`
	TargetScope string     `json:"target_scope"`
	TargetID    *uuid.UUID `json:"target_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	IsRead      bool       `json:"is_read"`
}

// FeedResponse is the ordered per-user feed
type FeedResponse struct {
	Items       []NotificationDTO `json:"items"`
	UnreadCount int64             `json:"unread_count"`
}

// UnreadCountResponse reports the caller's unread count
type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

// MarkReadResponse distinguishes first reads from repeats; both are success
type MarkReadResponse struct {
	AlreadyRead bool `json:"already_read"`
}

// MarkAllReadResponse reports how many notifications were newly marked
type MarkAllReadResponse struct {
	MarkedCount int64 `json:"marked_count"`
}

// PublishRequest creates a notification. TargetID is required for role and
// user scopes and must be absent for global.
type PublishRequest struct {
	Title       string     `json:"title" binding:"required"`
	Body        string     `json:"body" binding:"required"`
	Kind        string     `json:"kind" binding:"required,oneof=standard message"`
	Priority    string     `json:"priority" binding:"required,oneof=low normal high urgent"`
	TargetScope string     `json:"target_scope" binding:"required,oneof=global role user"`
	TargetID    *uuid.UUID `json:"target_id,omitempty"`
}

// PublishResponse returns the identifier of the created notification
type PublishResponse struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

// ParsePriority maps a wire priority name to the domain enum
func ParsePriority(s string) (notification.Priority, bool) {
	switch s {
	case "low":
		return notification.PriorityLow, true
	case "normal":
		return notification.PriorityNormal, true
	case "high":
		return notification.PriorityHigh, true
	case "urgent":
		return notification.PriorityUrgent, true
	}
	return 0, false
}

// ToDTO converts a feed item to its wire shape
func ToDTO(item notification.FeedItem) NotificationDTO {
	n := item.Notification
	return NotificationDTO{
		ID:          n.ID,
		Title:       n.Title,
		Body:        n.Body,
		Kind:        string(n.Kind),
		Priority:    n.Priority.String(),
		TargetScope: string(n.TargetScope),
		TargetID:    n.TargetID,
		CreatedAt:   n.CreatedAt,
		IsRead:      item.IsRead,
	}
}

// ToDTOs converts a feed to its wire shape
func ToDTOs(items []notification.FeedItem) []NotificationDTO {
	out := make([]NotificationDTO, len(items))
	for i, item := range items {
		out[i] = ToDTO(item)
	}
	return out
}
