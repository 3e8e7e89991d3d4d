package notifier

import (
	"time"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a user-facing message produced by an action outcome.
type Notice struct {
	Level   Level  `json:"level"`
	Action  string `json:"action"`
	Message string `json:"message"`

	// Action context, set when relevant.
	Symbol  string `json:"symbol,omitempty"`
	Qty     int    `json:"qty,omitempty"`
	AlertID string `json:"alert_id,omitempty"`
	Filter  string `json:"filter,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Notifier is the interface for delivering notices to a channel.
type Notifier interface {
	// SendNotice delivers the notice. Delivery failures are logged, not returned.
	SendNotice(n Notice)

	// Close cleans up any resources.
	Close() error
}

// MultiNotifier broadcasts notices to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	// Filter out nil notifiers
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

// Add appends a notifier after construction. Nil is ignored.
func (m *MultiNotifier) Add(n Notifier) {
	if n == nil {
		return
	}
	m.notifiers = append(m.notifiers, n)
}

// SendNotice sends the notice to all registered notifiers.
func (m *MultiNotifier) SendNotice(n Notice) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	for _, nt := range m.notifiers {
		nt.SendNotice(n)
	}
}

// Close closes all registered notifiers.
func (m *MultiNotifier) Close() error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
