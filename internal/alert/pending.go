package alert

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind names a mutation sent to the backend.
type ActionKind string

const (
	ActionBuy      ActionKind = "buy"
	ActionSell     ActionKind = "sell"
	ActionClear    ActionKind = "clear"
	ActionClearAll ActionKind = "clearAll"
	ActionReset    ActionKind = "reset"
)

// PendingAction is an in-flight mutation. It lives only until the backend answers.
type PendingAction struct {
	ID          string     `json:"id"`
	Kind        ActionKind `json:"kind"`
	AlertID     string     `json:"alert_id,omitempty"`
	Symbol      string     `json:"symbol,omitempty"`
	Filter      Filter     `json:"filter,omitempty"`
	Qty         int        `json:"qty,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

// NewPendingAction stamps a new pending action with a fresh id.
func NewPendingAction(kind ActionKind) PendingAction {
	return PendingAction{
		ID:          uuid.NewString(),
		Kind:        kind,
		SubmittedAt: time.Now(),
	}
}
