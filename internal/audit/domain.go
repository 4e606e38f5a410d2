// Package audit keeps the append-only change log. Entries are written
// exactly once per mutation and are never updated or deleted afterwards.
package audit

import "time"

// Action labels a mutation. The set is closed.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Valid reports whether the action is one of the closed set.
func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

// Entry is one immutable audit log row. ProductID is nil for entries
// whose subject no longer exists (deletes keep the original numeric id
// inside Details instead) and for non-product subjects such as settings.
type Entry struct {
	ID        int64          `json:"id"`
	ActorID   int64          `json:"user_id"`
	ProductID *int64         `json:"product_id,omitempty"`
	Action    Action         `json:"action"`
	Details   map[string]any `json:"details"`
	At        time.Time      `json:"timestamp"`
}

// Filter narrows audit listings. Zero values mean no filtering.
type Filter struct {
	ProductID *int64
	Limit     int
	Offset    int
}
