package app

import (
	"alertdash/clients/alertapi"
	"alertdash/clients/notifier"
	"alertdash/internal/alert"
	"alertdash/internal/metrics"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ActionAPI is the write side of the alert backend.
type ActionAPI interface {
	Buy(ctx context.Context, symbol string, qty int) error
	Sell(ctx context.Context, symbol string, qty int) error
	Clear(ctx context.Context, id string) error
	ClearAll(ctx context.Context, filter string) error
	ResetSimulation(ctx context.Context) error
}

// Dispatcher runs user actions against the backend. Removals are shown
// optimistically and rolled back when the backend refuses them.
type Dispatcher struct {
	logger    *zap.Logger
	api       ActionAPI
	dashboard *Dashboard
	notifier  notifier.Notifier
	metrics   *metrics.Recorder
}

func NewDispatcher(logger *zap.Logger, api ActionAPI, dashboard *Dashboard, n notifier.Notifier, rec *metrics.Recorder) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if n == nil {
		n = notifier.NewMultiNotifier()
	}
	return &Dispatcher{
		logger:    logger,
		api:       api,
		dashboard: dashboard,
		notifier:  n,
		metrics:   rec,
	}
}

// Buy submits a simulated purchase. The alert is left in place; the backend
// decides whether it goes away.
func (d *Dispatcher) Buy(ctx context.Context, symbol, qtyInput string) error {
	return d.trade(ctx, alert.ActionBuy, symbol, qtyInput)
}

// Sell submits a simulated sale.
func (d *Dispatcher) Sell(ctx context.Context, symbol, qtyInput string) error {
	return d.trade(ctx, alert.ActionSell, symbol, qtyInput)
}

func (d *Dispatcher) trade(ctx context.Context, kind alert.ActionKind, symbol, qtyInput string) error {
	symbol = strings.TrimSpace(symbol)
	qty := alert.ParseQuantity(qtyInput)

	if symbol == "" {
		return d.fail(kind, notifier.Notice{}, &alertapi.ActionFailedError{
			Action:  string(kind),
			Message: "symbol is required",
		})
	}

	p := alert.NewPendingAction(kind)
	p.Symbol = symbol
	p.Qty = qty
	d.begin(p)

	var err error
	if kind == alert.ActionSell {
		err = d.api.Sell(ctx, symbol, qty)
	} else {
		err = d.api.Buy(ctx, symbol, qty)
	}

	d.end(p)
	notice := notifier.Notice{Symbol: symbol, Qty: qty}
	if err != nil {
		return d.fail(kind, notice, err)
	}

	verb := "Bought"
	if kind == alert.ActionSell {
		verb = "Sold"
	}
	notice.Message = fmt.Sprintf("%s %d share(s) of %s", verb, qty, symbol)
	d.dashboard.Reconcile(ctx)
	d.succeed(kind, notice)
	return nil
}

// Clear hides one row at once and asks the backend to delete it. On failure
// the row comes back unchanged.
func (d *Dispatcher) Clear(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return d.fail(alert.ActionClear, notifier.Notice{}, &alertapi.ActionFailedError{
			Action:  string(alert.ActionClear),
			Message: "alert id is required",
		})
	}

	p := alert.NewPendingAction(alert.ActionClear)
	p.AlertID = id
	board := d.dashboard.Board()
	board.Hide(p.ID, id)
	d.begin(p)

	err := d.api.Clear(ctx, id)
	notice := notifier.Notice{AlertID: id}
	if err != nil {
		board.Restore(p.ID)
		d.end(p)
		return d.fail(alert.ActionClear, notice, err)
	}

	// Responses issued before the mutation landed must not release the hide.
	d.dashboard.InvalidateAlerts()
	board.Settle(p.ID)
	d.end(p)
	notice.Message = "Alert cleared"
	d.dashboard.Reconcile(ctx)
	d.succeed(alert.ActionClear, notice)
	return nil
}

// ClearAll clears every alert under the active filter.
func (d *Dispatcher) ClearAll(ctx context.Context) error {
	filter := d.dashboard.Filter().Current()
	board := d.dashboard.Board()

	var ids []string
	for _, a := range board.Visible() {
		if filter.Matches(a.Signal) {
			ids = append(ids, a.ID)
		}
	}

	p := alert.NewPendingAction(alert.ActionClearAll)
	p.Filter = filter
	board.Hide(p.ID, ids...)
	d.begin(p)

	err := d.api.ClearAll(ctx, string(filter))
	notice := notifier.Notice{Filter: string(filter)}
	if err != nil {
		board.Restore(p.ID)
		d.end(p)
		return d.fail(alert.ActionClearAll, notice, err)
	}

	// Responses issued before the mutation landed must not release the hide.
	d.dashboard.InvalidateAlerts()
	board.Settle(p.ID)
	d.end(p)
	notice.Message = fmt.Sprintf("Cleared %s alerts", filter.Label())
	if filter == alert.FilterAll {
		notice.Message = "Cleared all alerts"
	}
	d.dashboard.Reconcile(ctx)
	d.succeed(alert.ActionClearAll, notice)
	return nil
}

// ResetSimulation wipes the simulated ledger. Alerts are unaffected.
func (d *Dispatcher) ResetSimulation(ctx context.Context) error {
	p := alert.NewPendingAction(alert.ActionReset)
	d.begin(p)

	err := d.api.ResetSimulation(ctx)
	d.end(p)
	if err != nil {
		return d.fail(alert.ActionReset, notifier.Notice{}, err)
	}

	d.succeed(alert.ActionReset, notifier.Notice{Message: "Simulation reset"})
	return nil
}

func (d *Dispatcher) begin(p alert.PendingAction) {
	d.logger.Debug("action submitted",
		zap.String("action", string(p.Kind)),
		zap.String("actionId", shortID(p.ID)),
	)
	d.dashboard.Board().AddPending(p)
	d.dashboard.Redraw()
}

func (d *Dispatcher) end(p alert.PendingAction) {
	d.dashboard.Board().RemovePending(p.ID)
	d.dashboard.Redraw()
}

func (d *Dispatcher) succeed(kind alert.ActionKind, n notifier.Notice) {
	n.Level = notifier.LevelSuccess
	n.Action = string(kind)
	n.Timestamp = time.Now()
	d.metrics.RecordAction(string(kind), metrics.ResultOK)
	d.logger.Info("action succeeded",
		zap.String("action", string(kind)),
		zap.String("message", n.Message),
	)
	d.notifier.SendNotice(n)
}

// fail reports err to the user and returns it as an *alertapi.ActionFailedError.
func (d *Dispatcher) fail(kind alert.ActionKind, n notifier.Notice, err error) error {
	var actionErr *alertapi.ActionFailedError
	if !errors.As(err, &actionErr) {
		actionErr = &alertapi.ActionFailedError{Action: string(kind), Err: err}
	}

	reason := actionErr.Message
	switch {
	case reason != "":
	case actionErr.Err != nil:
		reason = actionErr.Err.Error()
	case actionErr.StatusCode != 0:
		reason = fmt.Sprintf("status %d", actionErr.StatusCode)
	default:
		reason = "unknown error"
	}

	n.Level = notifier.LevelError
	n.Action = string(kind)
	n.Message = fmt.Sprintf("%s failed: %s", actionLabel(kind), reason)
	n.Timestamp = time.Now()

	d.metrics.RecordAction(string(kind), metrics.ResultError)
	d.logger.Warn("action failed",
		zap.String("action", string(kind)),
		zap.Error(actionErr),
	)
	d.notifier.SendNotice(n)
	return actionErr
}

func actionLabel(kind alert.ActionKind) string {
	switch kind {
	case alert.ActionBuy:
		return "Buy"
	case alert.ActionSell:
		return "Sell"
	case alert.ActionClear:
		return "Clear"
	case alert.ActionClearAll:
		return "Clear all"
	case alert.ActionReset:
		return "Reset"
	default:
		return nz(string(kind), "Action")
	}
}
