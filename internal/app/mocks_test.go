package app

import (
	"alertdash/clients/alertapi"
	"alertdash/clients/notifier"
	"alertdash/internal/alert"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// MockAlertSource is a mock backend for the read side.
type MockAlertSource struct {
	mu      sync.Mutex
	records []json.RawMessage
	status  alertapi.StatusPayload
	err     error

	// alertsHook, when set, answers FetchAlerts instead of records.
	alertsHook func(ctx context.Context, call int, filter string) ([]json.RawMessage, error)

	alertCalls  atomic.Int32
	statusCalls atomic.Int32
	filters     []string
}

func NewMockAlertSource(records ...string) *MockAlertSource {
	m := &MockAlertSource{status: alertapi.StatusPayload{Yahoo: "open", Etrade: "ok"}}
	m.SetRecords(records...)
	return m
}

func (m *MockAlertSource) SetRecords(records ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = m.records[:0]
	for _, r := range records {
		m.records = append(m.records, json.RawMessage(r))
	}
}

// Remove drops the record whose id matches, the way the backend would on clear.
func (m *MockAlertSource) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	for _, r := range m.records {
		var probe struct {
			ID json.RawMessage `json:"id"`
		}
		_ = json.Unmarshal(r, &probe)
		if string(probe.ID) == fmt.Sprintf("%q", id) || string(probe.ID) == id {
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
}

func (m *MockAlertSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockAlertSource) Filters() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.filters...)
}

func (m *MockAlertSource) FetchAlerts(ctx context.Context, filter string) ([]json.RawMessage, error) {
	call := int(m.alertCalls.Add(1))

	m.mu.Lock()
	m.filters = append(m.filters, filter)
	hook := m.alertsHook
	err := m.err
	records := append([]json.RawMessage(nil), m.records...)
	m.mu.Unlock()

	if hook != nil {
		return hook(ctx, call, filter)
	}
	if err != nil {
		return nil, &alertapi.FeedUnavailableError{Op: alertapi.OpFetchAlerts, Err: err}
	}
	return records, nil
}

func (m *MockAlertSource) FetchStatus(ctx context.Context) (alertapi.StatusPayload, error) {
	m.statusCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return alertapi.StatusPayload{}, &alertapi.FeedUnavailableError{Op: alertapi.OpFetchStatus, Err: m.err}
	}
	return m.status, nil
}

// MockActionAPI is a mock backend for the write side. On success Clear and
// ClearAll also remove records from the linked source.
type MockActionAPI struct {
	mu     sync.Mutex
	source *MockAlertSource
	fail   map[string]error
	calls  []string

	// block, when set, holds every call until it is closed.
	block chan struct{}
}

func NewMockActionAPI(source *MockAlertSource) *MockActionAPI {
	return &MockActionAPI{source: source, fail: make(map[string]error)}
}

// FailWith makes the named action fail with err.
func (m *MockActionAPI) FailWith(action string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[action] = err
}

func (m *MockActionAPI) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockActionAPI) record(ctx context.Context, action, call string) error {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	err := m.fail[action]
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *MockActionAPI) Buy(ctx context.Context, symbol string, qty int) error {
	return m.record(ctx, "buy", fmt.Sprintf("buy %s %d", symbol, qty))
}

func (m *MockActionAPI) Sell(ctx context.Context, symbol string, qty int) error {
	return m.record(ctx, "sell", fmt.Sprintf("sell %s %d", symbol, qty))
}

func (m *MockActionAPI) Clear(ctx context.Context, id string) error {
	if err := m.record(ctx, "clear", "clear "+id); err != nil {
		return err
	}
	if m.source != nil {
		m.source.Remove(id)
	}
	return nil
}

func (m *MockActionAPI) ClearAll(ctx context.Context, filter string) error {
	if err := m.record(ctx, "clearAll", "clearAll "+filter); err != nil {
		return err
	}
	if m.source != nil && filter == "all" {
		m.source.SetRecords()
	}
	return nil
}

func (m *MockActionAPI) ResetSimulation(ctx context.Context) error {
	return m.record(ctx, "reset", "reset")
}

// recordingSink collects published views.
type recordingSink struct {
	mu    sync.Mutex
	views []View
}

func (s *recordingSink) PublishView(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = append(s.views, v)
}

func (s *recordingSink) Last() (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.views) == 0 {
		return View{}, false
	}
	return s.views[len(s.views)-1], true
}

func (s *recordingSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// recordingNotifier collects notices.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []notifier.Notice
}

func (r *recordingNotifier) SendNotice(n notifier.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) Close() error { return nil }

func (r *recordingNotifier) Last() (notifier.Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return notifier.Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// recordingTarget is a PollTarget that counts calls.
type recordingTarget struct {
	alerts atomic.Int32
	status atomic.Int32
	halted atomic.Bool

	// alertsBlock, when set, holds every alerts refresh until closed.
	alertsBlock chan struct{}
	alertsErr   error
}

func (r *recordingTarget) RefreshAlerts(ctx context.Context) error {
	r.alerts.Add(1)
	if r.alertsBlock != nil {
		<-r.alertsBlock
	}
	return r.alertsErr
}

func (r *recordingTarget) RefreshStatus(ctx context.Context) error {
	r.status.Add(1)
	return nil
}

func (r *recordingTarget) Halt() {
	r.halted.Store(true)
}

const (
	aaplRecord = `{"id":1,"symbol":"AAPL","name":"Apple Inc.","signal":"prime","confidence":87,"price":189.5,"timestamp":"2024-01-15T15:30:00Z","triggers":"MACD,VWAP"}`
	tslaRecord = `{"id":2,"symbol":"TSLA","name":"Tesla","signal":"sell","confidence":64,"price":212.1,"timestamp":"2024-01-15T15:31:00Z","triggers":"RSI"}`
	nvdaRecord = `{"id":3,"symbol":"NVDA","name":"NVIDIA","signal":"sharpshooter","confidence":91,"price":512.1,"timestamp":"2024-01-15T15:32:00Z"}`
)

// newTestDashboard builds a dashboard over source with a recording sink and
// no refresher, so refreshes run inline.
func newTestDashboard(source AlertSource, initial string) (*Dashboard, *recordingSink) {
	feed := NewFeedClient(nil, source, nil)
	d := NewDashboard(nil, feed, NewBoard(), alert.Filter(initial), RenderOptions{})
	sink := &recordingSink{}
	d.SetSink(sink)
	return d, sink
}
