package notification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsFillsIdentityAndTimestamps(t *testing.T) {
	n := &Notification{Title: "t", Body: "b", Kind: KindStandard, TargetScope: ScopeGlobal}
	require.NoError(t, n.applyDefaults())
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.False(t, n.CreatedAt.IsZero())

	m := &ReadMark{NotificationID: n.ID, UserID: uuid.New()}
	require.NoError(t, m.applyDefaults())
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.False(t, m.ReadAt.IsZero())
}

func TestApplyDefaultsKeepsAssignedValues(t *testing.T) {
	id := uuid.New()
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	n := &Notification{ID: id, CreatedAt: created, Title: "t", Body: "b"}
	require.NoError(t, n.applyDefaults())
	assert.Equal(t, id, n.ID)
	assert.Equal(t, created, n.CreatedAt)
}
