package notification

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepo is an in-memory Repository. Its read mark insert mirrors the
// production unique index: check-and-insert under one lock.
type memoryRepo struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*Notification
	marks         map[string]*ReadMark
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		notifications: make(map[uuid.UUID]*Notification),
		marks:         make(map[string]*ReadMark),
	}
}

func pairKey(notificationID, userID uuid.UUID) string {
	return notificationID.String() + "/" + userID.String()
}

func (r *memoryRepo) Create(_ context.Context, n *Notification) error {
	if err := n.applyDefaults(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *n
	r.notifications[n.ID] = &copied
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, &NotFoundError{Resource: "notification", ID: id.String()}
	}
	copied := *n
	return &copied, nil
}

func (r *memoryRepo) visible(vis Condition, kind *Kind) []*Notification {
	var out []*Notification
	for _, n := range r.notifications {
		if !vis.Matches(n) {
			continue
		}
		if kind != nil && n.Kind != *kind {
			continue
		}
		copied := *n
		out = append(out, &copied)
	}
	return out
}

func (r *memoryRepo) ListVisible(_ context.Context, vis Condition, kind *Kind) ([]*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.visible(vis, kind)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (r *memoryRepo) ReadMarksFor(_ context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	read := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if _, ok := r.marks[pairKey(id, userID)]; ok {
			read[id] = true
		}
	}
	return read, nil
}

func (r *memoryRepo) CreateReadMark(_ context.Context, mark *ReadMark) (bool, error) {
	if err := mark.applyDefaults(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(mark.NotificationID, mark.UserID)
	if _, exists := r.marks[key]; exists {
		return false, nil
	}
	copied := *mark
	r.marks[key] = &copied
	return true, nil
}

func (r *memoryRepo) CreateReadMarks(ctx context.Context, marks []*ReadMark) (int64, error) {
	var created int64
	for _, mark := range marks {
		ok, err := r.CreateReadMark(ctx, mark)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (r *memoryRepo) CountUnread(ctx context.Context, vis Condition, kind *Kind, userID uuid.UUID) (int64, error) {
	ids, err := r.ListUnreadIDs(ctx, vis, kind, userID)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (r *memoryRepo) ListUnreadIDs(_ context.Context, vis Condition, kind *Kind, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for _, n := range r.visible(vis, kind) {
		if _, read := r.marks[pairKey(n.ID, userID)]; !read {
			ids = append(ids, n.ID)
		}
	}
	return ids, nil
}

func (r *memoryRepo) markCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.marks)
}

type staticRoles map[uuid.UUID]bool

func (d staticRoles) RoleExists(_ context.Context, id uuid.UUID) (bool, error) {
	return d[id], nil
}

type staticUsers map[uuid.UUID]bool

func (d staticUsers) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	return d[id], nil
}

type fixture struct {
	svc   Service
	repo  *memoryRepo
	roles staticRoles
	users staticUsers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemoryRepo()
	roles := staticRoles{}
	users := staticUsers{}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	svc := NewService(ServiceConfig{
		Repository: repo,
		Roles:      roles,
		Users:      users,
		SignalRepo: NewSignalRepository(8),
		Logger:     logger,
	})
	return &fixture{svc: svc, repo: repo, roles: roles, users: users}
}

func (f *fixture) addUser() uuid.UUID {
	id := uuid.New()
	f.users[id] = true
	return id
}

func (f *fixture) addRole() uuid.UUID {
	id := uuid.New()
	f.roles[id] = true
	return id
}

func TestPublishValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		title string
		body  string
		kind  Kind
		prio  Priority
		field string
	}{
		{"empty title", "", "body", KindStandard, PriorityNormal, "title"},
		{"blank title", "   ", "body", KindStandard, PriorityNormal, "title"},
		{"empty body", "title", "", KindStandard, PriorityNormal, "body"},
		{"bad kind", "title", "body", Kind("junk"), PriorityNormal, "kind"},
		{"bad priority", "title", "body", KindStandard, Priority(42), "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PublishGlobal(ctx, tt.title, tt.body, tt.kind, tt.prio)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}

	assert.Empty(t, f.repo.notifications, "failed publishes must write nothing")
}

func TestPublishTargetMustExist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.PublishToRole(ctx, uuid.New(), "title", "body", KindStandard, PriorityNormal)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.PublishToUser(ctx, uuid.New(), "title", "body", KindStandard, PriorityNormal)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, f.repo.notifications, "failed publishes must write nothing")
}

func TestPublishCreatesImmutableRowWithoutReadMarks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roleID := f.addRole()

	n, err := f.svc.PublishToRole(ctx, roleID, "Release", "1.2 is out", KindStandard, PriorityHigh)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.Equal(t, ScopeRole, n.TargetScope)
	require.NotNil(t, n.TargetID)
	assert.Equal(t, roleID, *n.TargetID)
	assert.False(t, n.CreatedAt.IsZero())

	assert.Len(t, f.repo.notifications, 1)
	assert.Zero(t, f.repo.markCount(), "publishing must not create read marks")
}

func TestPublishMessageToUserFixesKind(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser()

	n, err := f.svc.PublishMessageToUser(context.Background(), userID, "Hi", "direct message", PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, KindMessage, n.Kind)
	assert.Equal(t, ScopeUser, n.TargetScope)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := UserContext{UserID: f.addUser()}

	n, err := f.svc.PublishGlobal(ctx, "Maintenance", "tonight", KindStandard, PriorityHigh)
	require.NoError(t, err)

	alreadyRead, err := f.svc.MarkRead(ctx, uc, n.ID)
	require.NoError(t, err)
	assert.False(t, alreadyRead)

	alreadyRead, err = f.svc.MarkRead(ctx, uc, n.ID)
	require.NoError(t, err)
	assert.True(t, alreadyRead, "second mark is a success no-op")

	assert.Equal(t, 1, f.repo.markCount())
}

func TestMarkReadUnknownNotification(t *testing.T) {
	f := newFixture(t)
	uc := UserContext{UserID: f.addUser()}

	_, err := f.svc.MarkRead(context.Background(), uc, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkReadConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := UserContext{UserID: f.addUser()}

	n, err := f.svc.PublishGlobal(ctx, "Maintenance", "tonight", KindStandard, PriorityHigh)
	require.NoError(t, err)

	const workers = 32
	var wg sync.WaitGroup
	firstReads := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alreadyRead, err := f.svc.MarkRead(ctx, uc, n.ID)
			assert.NoError(t, err)
			if !alreadyRead {
				firstReads <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(firstReads)

	assert.Equal(t, 1, f.repo.markCount(), "concurrent marks must produce exactly one row")
	assert.Equal(t, 1, len(firstReads), "exactly one caller observes the first read")
}

func TestMarkAllRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := UserContext{UserID: f.addUser()}

	for i := 0; i < 3; i++ {
		_, err := f.svc.PublishGlobal(ctx, "n", "body", KindStandard, PriorityNormal)
		require.NoError(t, err)
	}
	_, err := f.svc.PublishGlobal(ctx, "m", "body", KindMessage, PriorityNormal)
	require.NoError(t, err)

	kind := KindStandard
	marked, err := f.svc.MarkAllRead(ctx, uc, &kind)
	require.NoError(t, err)
	assert.Equal(t, int64(3), marked, "only the filtered kind is marked")

	marked, err = f.svc.MarkAllRead(ctx, uc, &kind)
	require.NoError(t, err)
	assert.Zero(t, marked, "double submit marks nothing new")

	marked, err = f.svc.MarkAllRead(ctx, uc, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked, "unfiltered pass picks up the message")
}

func TestFeedVisibilityScenarios(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opsRole := f.addRole()
	supportRole := f.addRole()
	userX := f.addUser()
	userY := f.addUser()

	opsUser := UserContext{UserID: userX, RoleID: opsRole}
	supportUser := UserContext{UserID: userY, RoleID: supportRole}

	_, err := f.svc.PublishToRole(ctx, opsRole, "Ops message", "rotate keys", KindMessage, PriorityNormal)
	require.NoError(t, err)

	opsFeed, err := f.svc.Feed(ctx, opsUser, KindMessage)
	require.NoError(t, err)
	require.Len(t, opsFeed, 1)
	assert.False(t, opsFeed[0].IsRead)

	supportFeed, err := f.svc.Feed(ctx, supportUser, KindMessage)
	require.NoError(t, err)
	assert.Empty(t, supportFeed, "role scoped message is invisible to other roles")

	supportUnread, err := f.svc.UnreadCount(ctx, supportUser, nil)
	require.NoError(t, err)
	assert.Zero(t, supportUnread)

	// User-scoped notification is invisible to everyone else
	_, err = f.svc.PublishToUser(ctx, userX, "Just for X", "body", KindStandard, PriorityNormal)
	require.NoError(t, err)

	yFeed, err := f.svc.Feed(ctx, supportUser, KindStandard)
	require.NoError(t, err)
	assert.Empty(t, yFeed)
}

func TestMarkReadIsPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userA := UserContext{UserID: f.addUser()}
	userB := UserContext{UserID: f.addUser()}

	n, err := f.svc.PublishGlobal(ctx, "Maintenance", "window at 22:00", KindStandard, PriorityHigh)
	require.NoError(t, err)

	feedA, err := f.svc.Feed(ctx, userA, KindStandard)
	require.NoError(t, err)
	require.Len(t, feedA, 1)
	assert.False(t, feedA[0].IsRead)

	_, err = f.svc.MarkRead(ctx, userA, n.ID)
	require.NoError(t, err)

	feedA, err = f.svc.Feed(ctx, userA, KindStandard)
	require.NoError(t, err)
	assert.True(t, feedA[0].IsRead)

	feedB, err := f.svc.Feed(ctx, userB, KindStandard)
	require.NoError(t, err)
	require.Len(t, feedB, 1)
	assert.False(t, feedB[0].IsRead, "read state never leaks across users")
}

func TestFeedOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := UserContext{UserID: f.addUser()}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seed := func(priority Priority, createdAt time.Time) uuid.UUID {
		n := &Notification{
			ID:          uuid.New(),
			Title:       "t",
			Body:        "b",
			Kind:        KindStandard,
			Priority:    priority,
			TargetScope: ScopeGlobal,
			CreatedAt:   createdAt,
		}
		require.NoError(t, f.repo.Create(ctx, n))
		return n.ID
	}

	// Created in reverse priority order
	low := seed(PriorityLow, base.Add(2*time.Hour))
	high := seed(PriorityHigh, base.Add(1*time.Hour))
	urgent := seed(PriorityUrgent, base)

	// Equal priority, different timestamps
	oldNormal := seed(PriorityNormal, base.Add(-2*time.Hour))
	newNormal := seed(PriorityNormal, base.Add(-1*time.Hour))

	feed, err := f.svc.Feed(ctx, uc, KindStandard)
	require.NoError(t, err)
	require.Len(t, feed, 5)

	got := make([]uuid.UUID, len(feed))
	for i, item := range feed {
		got[i] = item.Notification.ID
	}
	assert.Equal(t, []uuid.UUID{urgent, high, newNormal, oldNormal, low}, got)
}

func TestUnreadCountMatchesFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	role := f.addRole()
	uc := UserContext{UserID: f.addUser(), RoleID: role}

	_, err := f.svc.PublishGlobal(ctx, "g1", "b", KindStandard, PriorityNormal)
	require.NoError(t, err)
	n2, err := f.svc.PublishGlobal(ctx, "g2", "b", KindMessage, PriorityLow)
	require.NoError(t, err)
	_, err = f.svc.PublishToRole(ctx, role, "r1", "b", KindStandard, PriorityUrgent)
	require.NoError(t, err)
	_, err = f.svc.PublishToUser(ctx, uc.UserID, "u1", "b", KindMessage, PriorityHigh)
	require.NoError(t, err)

	_, err = f.svc.MarkRead(ctx, uc, n2.ID)
	require.NoError(t, err)

	for _, kind := range []Kind{KindStandard, KindMessage} {
		kind := kind
		feed, err := f.svc.Feed(ctx, uc, kind)
		require.NoError(t, err)

		var unreadInFeed int64
		for _, item := range feed {
			if !item.IsRead {
				unreadInFeed++
			}
		}

		count, err := f.svc.UnreadCount(ctx, uc, &kind)
		require.NoError(t, err)
		assert.Equal(t, unreadInFeed, count, "unread count must agree with feed for kind %s", kind)
	}
}

func TestUnauthenticatedCalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	none := UserContext{}

	_, err := f.svc.Feed(ctx, none, KindStandard)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.svc.UnreadCount(ctx, none, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.svc.MarkRead(ctx, none, uuid.New())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.svc.MarkAllRead(ctx, none, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSubscribeReceivesPublishedNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := UserContext{UserID: f.addUser()}

	ch, cancel, err := f.svc.Subscribe(uc)
	require.NoError(t, err)
	defer cancel()

	published, err := f.svc.PublishGlobal(ctx, "Live", "push", KindStandard, PriorityNormal)
	require.NoError(t, err)

	select {
	case received := <-ch:
		assert.Equal(t, published.ID, received.ID)
	case <-time.After(time.Second):
		t.Fatal("expected live delivery of the published notification")
	}
}
