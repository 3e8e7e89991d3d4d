package app

import (
	"alertdash/clients/alertapi"
	"alertdash/internal/alert"
	"alertdash/internal/metrics"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// TradeRequest is the body of the buy and sell endpoints. Qty is whatever
// the quantity field held and is normalised by alert.ParseQuantity.
type TradeRequest struct {
	Symbol string `json:"symbol" validate:"required,max=16"`
	Qty    any    `json:"qty"`
}

// FilterRequest is the body of POST /api/filter.
type FilterRequest struct {
	Filter string `json:"filter" validate:"required,oneof=all prime sharpshooter opportunist sell"`
}

// FieldError is one request validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ViewServer serves the dashboard page, its websocket and the action endpoints.
type ViewServer struct {
	logger     *zap.Logger
	dashboard  *Dashboard
	dispatcher *Dispatcher
	hub        *Hub
	metrics    *metrics.Recorder
	settings   *SettingsHandler
	stats      func() any
	validate   *validator.Validate
}

func NewViewServer(logger *zap.Logger, dashboard *Dashboard, dispatcher *Dispatcher, hub *Hub, rec *metrics.Recorder) *ViewServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewServer{
		logger:     logger,
		dashboard:  dashboard,
		dispatcher: dispatcher,
		hub:        hub,
		metrics:    rec,
		validate:   validator.New(),
	}
}

// WithSettings mounts the settings routes.
func (s *ViewServer) WithSettings(h *SettingsHandler) *ViewServer {
	s.settings = h
	return s
}

// WithStats mounts GET /stats, answering with whatever fn returns.
func (s *ViewServer) WithStats(fn func() any) *ViewServer {
	s.stats = fn
	return s
}

// Handler builds the route table.
func (s *ViewServer) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.settings != nil {
		s.settings.RegisterRoutes(mux)
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if s.stats != nil {
		mux.HandleFunc("GET /stats", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, s.stats())
		})
	}

	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /ws", s.hub.ServeWS)

	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("POST /api/filter", s.handleFilter)
	mux.HandleFunc("POST /api/actions/buy", s.handleTrade(alert.ActionBuy))
	mux.HandleFunc("POST /api/actions/sell", s.handleTrade(alert.ActionSell))
	mux.HandleFunc("POST /api/actions/clear/{id}", s.handleClear)
	mux.HandleFunc("POST /api/actions/clear-all", s.handleClearAll)
	mux.HandleFunc("POST /api/actions/reset", s.handleReset)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(dashboardHTML))
	})

	return mux
}

// NewHTTPServer wraps Handler in a server listening on port.
func (s *ViewServer) NewHTTPServer(port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *ViewServer) handleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.View())
}

func (s *ViewServer) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if !s.decode(w, r, &req) {
		return
	}

	f, err := alert.ParseFilter(req.Filter)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": []FieldError{{Field: "filter", Message: err.Error()}},
		})
		return
	}

	changed := s.dashboard.Filter().Set(actionContext(r), f)
	writeJSON(w, http.StatusOK, map[string]any{
		"changed": changed,
		"view":    s.dashboard.View(),
	})
}

func (s *ViewServer) handleTrade(kind alert.ActionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TradeRequest
		if !s.decode(w, r, &req) {
			return
		}

		ctx := actionContext(r)
		qty := quantityInput(req.Qty)

		var err error
		if kind == alert.ActionSell {
			err = s.dispatcher.Sell(ctx, req.Symbol, qty)
		} else {
			err = s.dispatcher.Buy(ctx, req.Symbol, qty)
		}
		s.respondAction(w, err)
	}
}

func (s *ViewServer) handleClear(w http.ResponseWriter, r *http.Request) {
	s.respondAction(w, s.dispatcher.Clear(actionContext(r), r.PathValue("id")))
}

func (s *ViewServer) handleClearAll(w http.ResponseWriter, r *http.Request) {
	s.respondAction(w, s.dispatcher.ClearAll(actionContext(r)))
}

func (s *ViewServer) handleReset(w http.ResponseWriter, r *http.Request) {
	s.respondAction(w, s.dispatcher.ResetSimulation(actionContext(r)))
}

func (s *ViewServer) respondAction(w http.ResponseWriter, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	var actionErr *alertapi.ActionFailedError
	if errors.As(err, &actionErr) && actionErr.StatusCode == 0 && actionErr.Err == nil {
		// Rejected locally before reaching the backend.
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
}

// decode reads and validates a JSON body, answering 400 itself on failure.
func (s *ViewServer) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": []FieldError{{Field: "body", Message: "invalid JSON: " + err.Error()}},
		})
		return false
	}

	if err := s.validate.StructCtx(r.Context(), req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": fieldErrors(err)})
		return false
	}
	return true
}

func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		msg := fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
		switch fe.Tag() {
		case "required":
			msg = field + " is required"
		case "max":
			msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "oneof":
			msg = fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
		}
		out = append(out, FieldError{Field: field, Message: msg})
	}
	return out
}

// quantityInput turns the decoded qty field back into the text a quantity
// input would hold.
func quantityInput(v any) string {
	switch q := v.(type) {
	case string:
		return q
	case float64:
		return strconv.FormatFloat(q, 'f', -1, 64)
	default:
		return ""
	}
}

// actionContext detaches an action from its request. Once submitted, a
// mutation is tracked to completion even if the page goes away.
func actionContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
