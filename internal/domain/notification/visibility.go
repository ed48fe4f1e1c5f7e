package notification

import (
	"strings"

	"github.com/google/uuid"
)

// Condition is a typed predicate over notifications. It evaluates in memory
// and renders to a parameterized SQL fragment, so the visibility rule is
// written once and applied identically on both paths.
type Condition interface {
	// Matches evaluates the condition against a notification in memory
	Matches(n *Notification) bool
	// Clause renders the condition as a SQL fragment with bind arguments
	Clause() (string, []interface{})
}

// ScopeIs matches notifications with the given target scope
type ScopeIs TargetScope

func (c ScopeIs) Matches(n *Notification) bool {
	return n.TargetScope == TargetScope(c)
}

func (c ScopeIs) Clause() (string, []interface{}) {
	return "target_scope = ?", []interface{}{string(c)}
}

// TargetIs matches notifications addressed to the given role or user
type TargetIs uuid.UUID

func (c TargetIs) Matches(n *Notification) bool {
	return n.TargetID != nil && *n.TargetID == uuid.UUID(c)
}

func (c TargetIs) Clause() (string, []interface{}) {
	return "target_id = ?", []interface{}{uuid.UUID(c)}
}

// KindIs matches notifications of the given kind
type KindIs Kind

func (c KindIs) Matches(n *Notification) bool {
	return n.Kind == Kind(c)
}

func (c KindIs) Clause() (string, []interface{}) {
	return "kind = ?", []interface{}{string(c)}
}

// And is the conjunction of its members
type And []Condition

func (c And) Matches(n *Notification) bool {
	for _, cond := range c {
		if !cond.Matches(n) {
			return false
		}
	}
	return true
}

func (c And) Clause() (string, []interface{}) {
	return joinClauses(c, " AND ")
}

// Or is the disjunction of its members
type Or []Condition

func (c Or) Matches(n *Notification) bool {
	for _, cond := range c {
		if cond.Matches(n) {
			return true
		}
	}
	return false
}

func (c Or) Clause() (string, []interface{}) {
	return joinClauses(c, " OR ")
}

func joinClauses(conds []Condition, sep string) (string, []interface{}) {
	if len(conds) == 0 {
		return "1=0", nil
	}
	parts := make([]string, 0, len(conds))
	var args []interface{}
	for _, cond := range conds {
		sql, condArgs := cond.Clause()
		parts = append(parts, "("+sql+")")
		args = append(args, condArgs...)
	}
	return strings.Join(parts, sep), args
}

// Visibility builds the audience predicate for a caller: global notifications
// always match, role-scoped ones match the caller's role, user-scoped ones
// match the caller. A caller without a role simply never matches role-scoped
// notifications; that is not an error.
func Visibility(uc UserContext) Condition {
	conds := Or{
		ScopeIs(ScopeGlobal),
		And{ScopeIs(ScopeUser), TargetIs(uc.UserID)},
	}
	if uc.RoleID != uuid.Nil {
		conds = append(conds, And{ScopeIs(ScopeRole), TargetIs(uc.RoleID)})
	}
	return conds
}

// Visible reports whether a notification is addressed to the caller
func Visible(n *Notification, uc UserContext) bool {
	return Visibility(uc).Matches(n)
}
