package notification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalCancelDuringPendingSend(t *testing.T) {
	repo := NewSignalRepository(0)

	ch, cancel, err := repo.Subscribe(TopicGlobal)
	require.NoError(t, err)

	// The subscriber never reads, so with no buffer the sender parks.
	// Cancelling while the send is pending must not bring the process down.
	n := &Notification{ID: uuid.New(), TargetScope: ScopeGlobal}
	require.NoError(t, repo.Publish(TopicGlobal, n))
	cancel()
	cancel() // repeated cancellation is a no-op

	select {
	case got := <-ch:
		// The send may have won the race against the cancel
		assert.Equal(t, n.ID, got.ID)
	case <-time.After(200 * time.Millisecond):
	}

	// A cancelled subscriber receives nothing further
	require.NoError(t, repo.Publish(TopicGlobal, &Notification{ID: uuid.New(), TargetScope: ScopeGlobal}))
	select {
	case got := <-ch:
		t.Fatalf("received notification %s after cancel", got.ID)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSignalTopicIsolation(t *testing.T) {
	repo := NewSignalRepository(1)

	userID := uuid.New()
	ch, cancel, err := repo.Subscribe(TopicUser(userID))
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, repo.Publish(TopicUser(uuid.New()), &Notification{ID: uuid.New()}))

	select {
	case got := <-ch:
		t.Fatalf("received notification %s addressed to another user", got.ID)
	case <-time.After(100 * time.Millisecond):
	}

	want := &Notification{ID: uuid.New(), TargetScope: ScopeUser}
	require.NoError(t, repo.Publish(TopicUser(userID), want))

	select {
	case got := <-ch:
		assert.Equal(t, want.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("notification was not delivered to its subscriber")
	}
}
