package notification

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var publishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_published_total",
		Help: "Total number of notifications published",
	},
	[]string{"scope", "kind"},
)

// RoleDirectory is the role collaborator: the engine only needs existence checks
type RoleDirectory interface {
	RoleExists(ctx context.Context, roleID uuid.UUID) (bool, error)
}

// UserDirectory is the user collaborator: the engine only needs existence checks
type UserDirectory interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
}

// UnreadCache caches unread counts between polls. A nil-safe no-op
// implementation is acceptable; correctness never depends on it.
type UnreadCache interface {
	GetCount(ctx context.Context, userID uuid.UUID, kind *Kind) (int64, bool)
	SetCount(ctx context.Context, userID uuid.UUID, kind *Kind, count int64)
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// Service is the notification engine surface exposed to the transport layer
type Service interface {
	// PublishGlobal creates a notification addressed to every user
	PublishGlobal(ctx context.Context, title, body string, kind Kind, priority Priority) (*Notification, error)

	// PublishToRole creates a notification addressed to a role's members
	PublishToRole(ctx context.Context, roleID uuid.UUID, title, body string, kind Kind, priority Priority) (*Notification, error)

	// PublishToUser creates a notification addressed to a single user
	PublishToUser(ctx context.Context, userID uuid.UUID, title, body string, kind Kind, priority Priority) (*Notification, error)

	// PublishMessageToUser is PublishToUser with the message kind fixed
	PublishMessageToUser(ctx context.Context, userID uuid.UUID, title, body string, priority Priority) (*Notification, error)

	// Feed returns the caller's ordered notifications of a kind with read state
	Feed(ctx context.Context, uc UserContext, kind Kind) ([]FeedItem, error)

	// UnreadCount counts the caller's visible unread notifications, optionally
	// restricted to one kind.
	UnreadCount(ctx context.Context, uc UserContext, kind *Kind) (int64, error)

	// MarkRead records that the caller has seen a notification. Repeats are
	// success: alreadyRead reports whether the mark pre-existed.
	MarkRead(ctx context.Context, uc UserContext, notificationID uuid.UUID) (alreadyRead bool, err error)

	// MarkAllRead marks every visible unread notification, optionally of one
	// kind, and returns how many were newly marked.
	MarkAllRead(ctx context.Context, uc UserContext, kind *Kind) (marked int64, err error)

	// Subscribe registers for live delivery of notifications addressed to the caller
	Subscribe(uc UserContext) (<-chan *Notification, func(), error)
}

// ServiceConfig holds the dependencies of the notification service
type ServiceConfig struct {
	Repository Repository
	Roles      RoleDirectory
	Users      UserDirectory
	SignalRepo SignalRepository
	Cache      UnreadCache
	Logger     *logrus.Logger
}

// serviceImpl implements the notification Service interface
type serviceImpl struct {
	repo   Repository
	roles  RoleDirectory
	users  UserDirectory
	signal SignalRepository
	cache  UnreadCache
	logger *logrus.Logger
}

// NewService creates a new notification service
func NewService(config ServiceConfig) Service {
	return &serviceImpl{
		repo:   config.Repository,
		roles:  config.Roles,
		users:  config.Users,
		signal: config.SignalRepo,
		cache:  config.Cache,
		logger: config.Logger,
	}
}

func validatePublish(title, body string, kind Kind, priority Priority) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(body) == "" {
		return &ValidationError{Field: "body", Reason: "must not be empty"}
	}
	if !kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "unknown kind"}
	}
	if !priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "unknown priority"}
	}
	return nil
}

// publish creates the row and fans it out to live subscribers
func (s *serviceImpl) publish(ctx context.Context, n *Notification, topic string) (*Notification, error) {
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.WithError(err).Error("Failed to create notification")
		return nil, err
	}

	publishedTotal.WithLabelValues(string(n.TargetScope), string(n.Kind)).Inc()

	if s.signal != nil {
		if err := s.signal.Publish(topic, n); err != nil {
			s.logger.WithError(err).Warn("Failed to publish notification signal")
		}
	}

	return n, nil
}

// PublishGlobal creates a notification addressed to every user
func (s *serviceImpl) PublishGlobal(ctx context.Context, title, body string, kind Kind, priority Priority) (*Notification, error) {
	if err := validatePublish(title, body, kind, priority); err != nil {
		return nil, err
	}

	n := &Notification{
		ID:          uuid.New(),
		Title:       title,
		Body:        body,
		Kind:        kind,
		Priority:    priority,
		TargetScope: ScopeGlobal,
	}

	return s.publish(ctx, n, TopicGlobal)
}

// PublishToRole creates a notification addressed to a role's members
func (s *serviceImpl) PublishToRole(ctx context.Context, roleID uuid.UUID, title, body string, kind Kind, priority Priority) (*Notification, error) {
	if err := validatePublish(title, body, kind, priority); err != nil {
		return nil, err
	}

	exists, err := s.roles.RoleExists(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NotFoundError{Resource: "role", ID: roleID.String()}
	}

	target := roleID
	n := &Notification{
		ID:          uuid.New(),
		Title:       title,
		Body:        body,
		Kind:        kind,
		Priority:    priority,
		TargetScope: ScopeRole,
		TargetID:    &target,
	}

	return s.publish(ctx, n, TopicRole(roleID))
}

// PublishToUser creates a notification addressed to a single user
func (s *serviceImpl) PublishToUser(ctx context.Context, userID uuid.UUID, title, body string, kind Kind, priority Priority) (*Notification, error) {
	if err := validatePublish(title, body, kind, priority); err != nil {
		return nil, err
	}

	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NotFoundError{Resource: "user", ID: userID.String()}
	}

	target := userID
	n := &Notification{
		ID:          uuid.New(),
		Title:       title,
		Body:        body,
		Kind:        kind,
		Priority:    priority,
		TargetScope: ScopeUser,
		TargetID:    &target,
	}

	created, err := s.publish(ctx, n, TopicUser(userID))
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}

	return created, nil
}

// PublishMessageToUser is PublishToUser with the message kind fixed
func (s *serviceImpl) PublishMessageToUser(ctx context.Context, userID uuid.UUID, title, body string, priority Priority) (*Notification, error) {
	return s.PublishToUser(ctx, userID, title, body, KindMessage, priority)
}

// Feed returns the caller's ordered notifications of a kind with read state
func (s *serviceImpl) Feed(ctx context.Context, uc UserContext, kind Kind) ([]FeedItem, error) {
	if uc.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if !kind.Valid() {
		return nil, &ValidationError{Field: "kind", Reason: "unknown kind"}
	}

	notifications, err := s.repo.ListVisible(ctx, Visibility(uc), &kind)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(notifications))
	for i, n := range notifications {
		ids[i] = n.ID
	}

	read, err := s.repo.ReadMarksFor(ctx, uc.UserID, ids)
	if err != nil {
		return nil, err
	}

	items := make([]FeedItem, len(notifications))
	for i, n := range notifications {
		items[i] = FeedItem{Notification: *n, IsRead: read[n.ID]}
	}

	return items, nil
}

// UnreadCount counts the caller's visible unread notifications
func (s *serviceImpl) UnreadCount(ctx context.Context, uc UserContext, kind *Kind) (int64, error) {
	if uc.UserID == uuid.Nil {
		return 0, ErrUnauthenticated
	}
	if kind != nil && !kind.Valid() {
		return 0, &ValidationError{Field: "kind", Reason: "unknown kind"}
	}

	if s.cache != nil {
		if count, ok := s.cache.GetCount(ctx, uc.UserID, kind); ok {
			return count, nil
		}
	}

	count, err := s.repo.CountUnread(ctx, Visibility(uc), kind, uc.UserID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		s.cache.SetCount(ctx, uc.UserID, kind, count)
	}

	return count, nil
}

// MarkRead records that the caller has seen a notification
func (s *serviceImpl) MarkRead(ctx context.Context, uc UserContext, notificationID uuid.UUID) (bool, error) {
	if uc.UserID == uuid.Nil {
		return false, ErrUnauthenticated
	}

	if _, err := s.repo.GetByID(ctx, notificationID); err != nil {
		return false, err
	}

	created, err := s.repo.CreateReadMark(ctx, &ReadMark{
		NotificationID: notificationID,
		UserID:         uc.UserID,
	})
	if err != nil {
		return false, err
	}

	if created && s.cache != nil {
		s.cache.Invalidate(ctx, uc.UserID)
	}

	return !created, nil
}

// MarkAllRead marks every visible unread notification for the caller
func (s *serviceImpl) MarkAllRead(ctx context.Context, uc UserContext, kind *Kind) (int64, error) {
	if uc.UserID == uuid.Nil {
		return 0, ErrUnauthenticated
	}
	if kind != nil && !kind.Valid() {
		return 0, &ValidationError{Field: "kind", Reason: "unknown kind"}
	}

	ids, err := s.repo.ListUnreadIDs(ctx, Visibility(uc), kind, uc.UserID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	marks := make([]*ReadMark, len(ids))
	for i, id := range ids {
		marks[i] = &ReadMark{
			NotificationID: id,
			UserID:         uc.UserID,
		}
	}

	marked, err := s.repo.CreateReadMarks(ctx, marks)
	if err != nil {
		return 0, err
	}

	if marked > 0 && s.cache != nil {
		s.cache.Invalidate(ctx, uc.UserID)
	}

	return marked, nil
}

// Subscribe registers for live delivery of notifications addressed to the caller
func (s *serviceImpl) Subscribe(uc UserContext) (<-chan *Notification, func(), error) {
	if uc.UserID == uuid.Nil {
		return nil, nil, ErrUnauthenticated
	}
	return s.signal.Subscribe(TopicsFor(uc)...)
}
