package app

import (
	"alertdash/internal/alert"
	"sync"
	"time"
)

// Board is the client-side model: the last authoritative alerts snapshot,
// the connectivity status, optimistic hides and in-flight actions.
type Board struct {
	mu sync.RWMutex

	alerts    []alert.Alert
	alertsAt  time.Time
	status    alert.StatusSnapshot
	hasStatus bool

	// alert id -> owning action id -> settled
	hidden  map[string]map[string]bool
	pending []alert.PendingAction
}

func NewBoard() *Board {
	return &Board{
		hidden: make(map[string]map[string]bool),
	}
}

// ApplyAlerts replaces the snapshot. Hides whose action has succeeded are
// released here, since the snapshot now reflects the backend.
func (b *Board) ApplyAlerts(alerts []alert.Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.alerts = append([]alert.Alert(nil), alerts...)
	b.alertsAt = time.Now()

	for id, owners := range b.hidden {
		for actionID, settled := range owners {
			if settled {
				delete(owners, actionID)
			}
		}
		if len(owners) == 0 {
			delete(b.hidden, id)
		}
	}
}

// ApplyStatus replaces the status snapshot.
func (b *Board) ApplyStatus(s alert.StatusSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = s
	b.hasStatus = true
}

// Alerts returns a copy of the authoritative snapshot.
func (b *Board) Alerts() []alert.Alert {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]alert.Alert(nil), b.alerts...)
}

// Visible returns the snapshot minus optimistically hidden rows.
func (b *Board) Visible() []alert.Alert {
	b.mu.RLock()
	defer b.mu.RUnlock()

	visible := make([]alert.Alert, 0, len(b.alerts))
	for _, a := range b.alerts {
		if _, ok := b.hidden[a.ID]; ok {
			continue
		}
		visible = append(visible, a)
	}
	return visible
}

// Status returns the last status snapshot and whether one has arrived yet.
func (b *Board) Status() (alert.StatusSnapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status, b.hasStatus
}

// UpdatedAt is when the alerts snapshot was last replaced.
func (b *Board) UpdatedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.alertsAt
}

// Hide removes ids from the visible set on behalf of actionID.
func (b *Board) Hide(actionID string, ids ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		owners := b.hidden[id]
		if owners == nil {
			owners = make(map[string]bool)
			b.hidden[id] = owners
		}
		owners[actionID] = false
	}
}

// Settle marks the hides of a successful action for release on the next snapshot.
func (b *Board) Settle(actionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, owners := range b.hidden {
		if _, ok := owners[actionID]; ok {
			owners[actionID] = true
		}
	}
}

// Restore undoes the hides of a failed action. A row also hidden by another
// action stays hidden.
func (b *Board) Restore(actionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, owners := range b.hidden {
		delete(owners, actionID)
		if len(owners) == 0 {
			delete(b.hidden, id)
		}
	}
}

// HiddenCount returns how many rows are currently hidden.
func (b *Board) HiddenCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.hidden)
}

func (b *Board) AddPending(p alert.PendingAction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, p)
}

func (b *Board) RemovePending(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.pending {
		if p.ID == id {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return
		}
	}
}

// Pending returns the in-flight actions in submission order.
func (b *Board) Pending() []alert.PendingAction {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]alert.PendingAction(nil), b.pending...)
}
