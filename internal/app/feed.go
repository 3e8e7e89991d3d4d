package app

import (
	"alertdash/clients/alertapi"
	"alertdash/internal/alert"
	"alertdash/internal/metrics"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AlertSource is the read side of the alert backend.
type AlertSource interface {
	FetchAlerts(ctx context.Context, filter string) ([]json.RawMessage, error)
	FetchStatus(ctx context.Context) (alertapi.StatusPayload, error)
}

// sequencer orders the responses of one stream. Every request takes the next
// number when issued; a response is accepted only if nothing newer has been
// applied and it was issued after the last invalidation.
type sequencer struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
	floor   uint64
	halted  bool
}

func (s *sequencer) issue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

func (s *sequencer) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floor = s.issued + 1
}

func (s *sequencer) halt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halted = true
}

// commit runs apply under the stream lock if seq is still current.
func (s *sequencer) commit(seq uint64, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted || seq < s.floor || seq <= s.applied {
		return false
	}
	s.applied = seq
	apply()
	return true
}

// AlertsTicket is an alerts request that has been numbered but not yet sent.
type AlertsTicket struct {
	seq    uint64
	Filter alert.Filter
}

// FeedClient fetches alerts and status and applies them last-issued-wins.
type FeedClient struct {
	logger  *zap.Logger
	source  AlertSource
	metrics *metrics.Recorder
	// location reads the backend's zone-less timestamps.
	location *time.Location

	alerts sequencer
	status sequencer
}

func NewFeedClient(logger *zap.Logger, source AlertSource, rec *metrics.Recorder) *FeedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedClient{
		logger:  logger,
		source:  source,
		metrics: rec,
	}
}

// SetLocation sets the timezone the backend writes wall-clock timestamps in.
// Call before the first fetch.
func (f *FeedClient) SetLocation(loc *time.Location) {
	f.location = loc
}

// IssueAlerts numbers an alerts request for filter.
func (f *FeedClient) IssueAlerts(filter alert.Filter) AlertsTicket {
	return AlertsTicket{seq: f.alerts.issue(), Filter: filter}
}

// SendAlerts performs an issued request. The bool reports whether apply ran.
func (f *FeedClient) SendAlerts(ctx context.Context, t AlertsTicket, apply func([]alert.Alert)) (bool, error) {
	start := time.Now()
	records, err := f.source.FetchAlerts(ctx, string(t.Filter))
	f.metrics.ObserveLatency("fetch_alerts", start)
	if err != nil {
		f.metrics.RecordFetch(metrics.StreamAlerts, metrics.ResultError)
		return false, err
	}

	alerts := f.decode(records)

	applied := f.alerts.commit(t.seq, func() { apply(alerts) })
	if !applied {
		f.metrics.RecordFetch(metrics.StreamAlerts, metrics.ResultStale)
		f.logger.Debug("discarding stale alerts response",
			zap.Uint64("seq", t.seq),
			zap.String("filter", string(t.Filter)),
		)
		return false, nil
	}

	f.metrics.RecordFetch(metrics.StreamAlerts, metrics.ResultOK)
	return true, nil
}

// FetchAlerts issues and sends an alerts request in one step.
func (f *FeedClient) FetchAlerts(ctx context.Context, filter alert.Filter, apply func([]alert.Alert)) (bool, error) {
	return f.SendAlerts(ctx, f.IssueAlerts(filter), apply)
}

// FetchStatus fetches the connectivity snapshot.
func (f *FeedClient) FetchStatus(ctx context.Context, apply func(alert.StatusSnapshot)) (bool, error) {
	seq := f.status.issue()

	start := time.Now()
	payload, err := f.source.FetchStatus(ctx)
	f.metrics.ObserveLatency("fetch_status", start)
	if err != nil {
		f.metrics.RecordFetch(metrics.StreamStatus, metrics.ResultError)
		return false, err
	}

	snap := alert.ParseStatus(payload.Yahoo, payload.Etrade)
	snap.FetchedAt = time.Now()

	applied := f.status.commit(seq, func() { apply(snap) })
	if !applied {
		f.metrics.RecordFetch(metrics.StreamStatus, metrics.ResultStale)
		f.logger.Debug("discarding stale status response", zap.Uint64("seq", seq))
		return false, nil
	}

	f.metrics.RecordFetch(metrics.StreamStatus, metrics.ResultOK)
	return true, nil
}

// InvalidateAlerts makes every alerts request issued so far inert.
func (f *FeedClient) InvalidateAlerts() {
	f.alerts.invalidate()
}

// Halt drops every response that completes from now on, on both streams.
func (f *FeedClient) Halt() {
	f.alerts.halt()
	f.status.halt()
}

func (f *FeedClient) decode(records []json.RawMessage) []alert.Alert {
	alerts := make([]alert.Alert, 0, len(records))
	skipped := 0
	for i, raw := range records {
		a, err := alert.ParseIn(raw, f.location)
		if err != nil {
			skipped++
			var malformed *alert.MalformedAlertError
			field := ""
			if errors.As(err, &malformed) {
				field = malformed.Field
			}
			f.logger.Warn("skipping malformed alert",
				zap.Int("index", i),
				zap.String("field", field),
				zap.Error(err),
			)
			continue
		}
		alerts = append(alerts, a)
	}
	f.metrics.RecordMalformed(skipped)
	return alerts
}
