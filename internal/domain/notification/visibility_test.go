package notification

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func notif(scope TargetScope, target *uuid.UUID) *Notification {
	return &Notification{
		ID:          uuid.New(),
		Title:       "t",
		Body:        "b",
		Kind:        KindStandard,
		Priority:    PriorityNormal,
		TargetScope: scope,
		TargetID:    target,
	}
}

func TestVisible(t *testing.T) {
	userID := uuid.New()
	roleID := uuid.New()
	otherUser := uuid.New()
	otherRole := uuid.New()

	tests := []struct {
		name     string
		n        *Notification
		uc       UserContext
		expected bool
	}{
		{
			name:     "global visible to anyone",
			n:        notif(ScopeGlobal, nil),
			uc:       UserContext{UserID: userID, RoleID: roleID},
			expected: true,
		},
		{
			name:     "global visible without role",
			n:        notif(ScopeGlobal, nil),
			uc:       UserContext{UserID: userID},
			expected: true,
		},
		{
			name:     "role scoped visible to member",
			n:        notif(ScopeRole, &roleID),
			uc:       UserContext{UserID: userID, RoleID: roleID},
			expected: true,
		},
		{
			name:     "role scoped invisible to other role",
			n:        notif(ScopeRole, &roleID),
			uc:       UserContext{UserID: userID, RoleID: otherRole},
			expected: false,
		},
		{
			name:     "role scoped invisible without role",
			n:        notif(ScopeRole, &roleID),
			uc:       UserContext{UserID: userID},
			expected: false,
		},
		{
			name:     "user scoped visible to addressee",
			n:        notif(ScopeUser, &userID),
			uc:       UserContext{UserID: userID, RoleID: roleID},
			expected: true,
		},
		{
			name:     "user scoped invisible to others",
			n:        notif(ScopeUser, &otherUser),
			uc:       UserContext{UserID: userID, RoleID: roleID},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Visible(tt.n, tt.uc))
		})
	}
}

func TestVisibleIsStable(t *testing.T) {
	userID := uuid.New()
	roleID := uuid.New()
	uc := UserContext{UserID: userID, RoleID: roleID}
	n := notif(ScopeRole, &roleID)

	first := Visible(n, uc)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Visible(n, uc), "visibility must be pure across evaluations")
	}
}

func TestVisibilityClause(t *testing.T) {
	userID := uuid.New()
	roleID := uuid.New()

	t.Run("with role", func(t *testing.T) {
		sql, args := Visibility(UserContext{UserID: userID, RoleID: roleID}).Clause()
		assert.Contains(t, sql, "target_scope = ?")
		assert.Contains(t, sql, " OR ")
		assert.Contains(t, args, string(ScopeGlobal))
		assert.Contains(t, args, userID)
		assert.Contains(t, args, roleID)
	})

	t.Run("without role omits role branch", func(t *testing.T) {
		_, args := Visibility(UserContext{UserID: userID}).Clause()
		assert.NotContains(t, args, string(ScopeRole))
	})
}

func TestEmptyConditionMatchesNothing(t *testing.T) {
	sql, args := Or{}.Clause()
	assert.Equal(t, "1=0", sql)
	assert.Empty(t, args)
	assert.False(t, Or{}.Matches(notif(ScopeGlobal, nil)))
}
