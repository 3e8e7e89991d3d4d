package app

import (
	"alertdash/internal/alert"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// View is everything a page needs to draw the dashboard.
type View struct {
	Filter    alert.Filter          `json:"filter"`
	Controls  []FilterControl       `json:"controls"`
	Rows      []RowView             `json:"rows"`
	Status    *StatusView           `json:"status,omitempty"`
	Pending   []alert.PendingAction `json:"pending"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// StatusView is the rendered connectivity indicator.
type StatusView struct {
	MarketOpen      bool      `json:"market_open"`
	MarketLabel     string    `json:"market_label"`
	BrokerConnected bool      `json:"broker_connected"`
	BrokerLabel     string    `json:"broker_label"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// ViewSink receives every redrawn view.
type ViewSink interface {
	PublishView(v View)
}

// AlertsRefresher issues an out-of-cycle alerts fetch.
type AlertsRefresher interface {
	RefreshAlertsNow(ctx context.Context)
}

// Dashboard glues the feed, the board and the filter to a view sink.
type Dashboard struct {
	logger *zap.Logger
	feed   *FeedClient
	board  *Board
	filter *FilterState
	opts   RenderOptions

	sinkMu    sync.RWMutex
	sink      ViewSink
	refresher AlertsRefresher

	drawMu sync.Mutex
}

func NewDashboard(logger *zap.Logger, feed *FeedClient, board *Board, initial alert.Filter, opts RenderOptions) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dashboard{
		logger: logger,
		feed:   feed,
		board:  board,
		opts:   opts,
	}
	d.filter = NewFilterState(initial, feed.InvalidateAlerts)
	d.filter.OnChange(d.onFilterChange)
	return d
}

// SetSink sets where redrawn views go.
func (d *Dashboard) SetSink(sink ViewSink) {
	d.sinkMu.Lock()
	defer d.sinkMu.Unlock()
	d.sink = sink
}

// SetRefresher routes out-of-cycle refreshes through r. Without one they run inline.
func (d *Dashboard) SetRefresher(r AlertsRefresher) {
	d.sinkMu.Lock()
	defer d.sinkMu.Unlock()
	d.refresher = r
}

func (d *Dashboard) Board() *Board { return d.board }

func (d *Dashboard) Filter() *FilterState { return d.filter }

// RefreshAlerts fetches alerts for the current filter and redraws if the
// response was applied.
func (d *Dashboard) RefreshAlerts(ctx context.Context) error {
	var ticket AlertsTicket
	d.filter.Read(func(f alert.Filter) {
		ticket = d.feed.IssueAlerts(f)
	})

	applied, err := d.feed.SendAlerts(ctx, ticket, d.board.ApplyAlerts)
	if err != nil {
		return err
	}
	if applied {
		d.Redraw()
	}
	return nil
}

// RefreshStatus fetches the connectivity snapshot and redraws if applied.
func (d *Dashboard) RefreshStatus(ctx context.Context) error {
	applied, err := d.feed.FetchStatus(ctx, d.board.ApplyStatus)
	if err != nil {
		return err
	}
	if applied {
		d.Redraw()
	}
	return nil
}

// InvalidateAlerts makes every alerts fetch issued so far inert.
func (d *Dashboard) InvalidateAlerts() {
	d.feed.InvalidateAlerts()
}

// Reconcile discards in-flight alerts fetches, which predate a mutation,
// and requests a fresh snapshot.
func (d *Dashboard) Reconcile(ctx context.Context) {
	d.feed.InvalidateAlerts()
	d.requestRefresh(ctx)
}

// Halt drops every response that completes from now on.
func (d *Dashboard) Halt() {
	d.feed.Halt()
}

// View builds the current view without publishing it.
func (d *Dashboard) View() View {
	filter := d.filter.Current()
	v := View{
		Filter:    filter,
		Controls:  d.filter.Controls(),
		Rows:      RenderWith(d.board.Visible(), filter, d.opts),
		Pending:   d.board.Pending(),
		UpdatedAt: d.board.UpdatedAt(),
	}
	if s, ok := d.board.Status(); ok {
		v.Status = renderStatus(s)
	}
	return v
}

// Redraw builds the view and publishes it. Redraws are serialised so sinks
// never see an older view after a newer one.
func (d *Dashboard) Redraw() View {
	d.drawMu.Lock()
	defer d.drawMu.Unlock()

	v := d.View()

	d.sinkMu.RLock()
	sink := d.sink
	d.sinkMu.RUnlock()
	if sink != nil {
		sink.PublishView(v)
	}
	return v
}

func (d *Dashboard) onFilterChange(ctx context.Context, f alert.Filter) {
	d.logger.Info("filter changed", zap.String("filter", string(f)))
	d.Redraw()
	d.requestRefresh(ctx)
}

func (d *Dashboard) requestRefresh(ctx context.Context) {
	d.sinkMu.RLock()
	r := d.refresher
	d.sinkMu.RUnlock()

	if r != nil {
		r.RefreshAlertsNow(ctx)
		return
	}
	if err := d.RefreshAlerts(ctx); err != nil {
		d.logger.Warn("alerts refresh failed", zap.Error(err))
	}
}

func renderStatus(s alert.StatusSnapshot) *StatusView {
	v := &StatusView{
		MarketOpen:      s.MarketOpen,
		MarketLabel:     "Closed",
		BrokerConnected: s.BrokerConnected,
		BrokerLabel:     "Disconnected",
		FetchedAt:       s.FetchedAt,
	}
	if s.MarketOpen {
		v.MarketLabel = "Open"
	}
	if s.BrokerConnected {
		v.BrokerLabel = "Connected"
	}
	return v
}
