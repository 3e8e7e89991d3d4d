package alertapi

import (
	"alertdash/config"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Op names used in transport errors.
const (
	OpFetchAlerts = "fetch alerts"
	OpFetchStatus = "fetch status"
)

// FeedUnavailableError is returned when a read from the backend fails at the
// transport level or answers with a non-2xx status.
type FeedUnavailableError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FeedUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: feed unavailable: status=%d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: feed unavailable: %v", e.Op, e.Err)
}

func (e *FeedUnavailableError) Unwrap() error { return e.Err }

// ActionFailedError is returned when a mutation is rejected or cannot be
// delivered. Message carries the backend's explanation when it gave one.
type ActionFailedError struct {
	Action     string
	StatusCode int
	Message    string
	Err        error
}

func (e *ActionFailedError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s failed: %s", e.Action, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Action, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s failed: status=%d", e.Action, e.StatusCode)
	default:
		return e.Action + " failed"
	}
}

func (e *ActionFailedError) Unwrap() error { return e.Err }

// StatusPayload is the raw body of GET /api/status.
type StatusPayload struct {
	Yahoo  string `json:"yahoo"`
	Etrade string `json:"etrade"`
}

// TradeRequest is the body of a simulated buy or sell.
type TradeRequest struct {
	Symbol string `json:"symbol"`
	Qty    int    `json:"qty"`
}

// ActionResult is the envelope the backend answers mutations with.
type ActionResult struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Client talks to the alert backend over HTTP.
type Client struct {
	logger      *zap.Logger
	httpClient  *http.Client
	baseURL     string
	clearMethod string
}

func NewClient(logger *zap.Logger, cfg *config.Config) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.Backend.RequestTimeout,
		},
		baseURL:     strings.TrimRight(cfg.Backend.BaseURL, "/"),
		clearMethod: cfg.Backend.ClearMethod,
	}
}

// FetchAlerts returns the raw alert records for filter. Records are left
// undecoded so a single malformed entry can be skipped by the caller. Both a
// bare array and an {"alerts": [...]} envelope are accepted.
func (c *Client) FetchAlerts(ctx context.Context, filter string) ([]json.RawMessage, error) {
	u, err := c.endpoint("/api/alerts")
	if err != nil {
		return nil, &FeedUnavailableError{Op: OpFetchAlerts, Err: err}
	}
	q := u.Query()
	q.Set("filter", filter)
	u.RawQuery = q.Encode()

	body, status, err := c.do(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FeedUnavailableError{Op: OpFetchAlerts, Err: err}
	}
	if status/100 != 2 {
		return nil, &FeedUnavailableError{Op: OpFetchAlerts, StatusCode: status}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Alerts []json.RawMessage `json:"alerts"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, &FeedUnavailableError{Op: OpFetchAlerts, Err: fmt.Errorf("decode json: %w", err)}
		}
		return envelope.Alerts, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, &FeedUnavailableError{Op: OpFetchAlerts, Err: fmt.Errorf("decode json: %w", err)}
	}
	return records, nil
}

// FetchStatus returns the market and broker connectivity flags.
func (c *Client) FetchStatus(ctx context.Context) (StatusPayload, error) {
	var payload StatusPayload

	u, err := c.endpoint("/api/status")
	if err != nil {
		return payload, &FeedUnavailableError{Op: OpFetchStatus, Err: err}
	}

	body, status, err := c.do(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return payload, &FeedUnavailableError{Op: OpFetchStatus, Err: err}
	}
	if status/100 != 2 {
		return payload, &FeedUnavailableError{Op: OpFetchStatus, StatusCode: status}
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, &FeedUnavailableError{Op: OpFetchStatus, Err: fmt.Errorf("decode json: %w", err)}
	}
	return payload, nil
}

// Buy submits a simulated purchase.
func (c *Client) Buy(ctx context.Context, symbol string, qty int) error {
	return c.trade(ctx, "buy", symbol, qty)
}

// Sell submits a simulated sale.
func (c *Client) Sell(ctx context.Context, symbol string, qty int) error {
	return c.trade(ctx, "sell", symbol, qty)
}

func (c *Client) trade(ctx context.Context, side, symbol string, qty int) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return &ActionFailedError{Action: side, Message: "symbol is empty"}
	}
	return c.mutate(ctx, side, http.MethodPost, "/simulation/"+side, TradeRequest{Symbol: symbol, Qty: qty})
}

// Clear removes a single alert from the backend store.
func (c *Client) Clear(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &ActionFailedError{Action: "clear", Message: "alert id is empty"}
	}
	if c.clearMethod == "delete" {
		return c.mutate(ctx, "clear", http.MethodDelete, "/api/alerts/"+url.PathEscape(id), nil)
	}
	return c.mutate(ctx, "clear", http.MethodPost, "/alerts/"+url.PathEscape(id)+"/clear", nil)
}

// ClearAll removes every alert matching filter.
func (c *Client) ClearAll(ctx context.Context, filter string) error {
	return c.mutate(ctx, "clear all", http.MethodPost, "/api/alerts/clear?filter="+url.QueryEscape(filter), nil)
}

// ResetSimulation wipes the simulated ledger.
func (c *Client) ResetSimulation(ctx context.Context) error {
	return c.mutate(ctx, "reset", http.MethodPost, "/simulation/reset", nil)
}

// mutate sends a mutation and interprets the {success, error} envelope. An
// empty or non-JSON 2xx body counts as success.
func (c *Client) mutate(ctx context.Context, action, method, path string, payload any) error {
	u, err := c.endpoint(path)
	if err != nil {
		return &ActionFailedError{Action: action, Err: err}
	}

	var reqBody []byte
	if payload != nil {
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return &ActionFailedError{Action: action, Err: fmt.Errorf("encode json: %w", err)}
		}
	}

	body, status, err := c.do(ctx, method, u.String(), reqBody)
	if err != nil {
		return &ActionFailedError{Action: action, Err: err}
	}

	var result ActionResult
	decoded := json.Unmarshal(body, &result) == nil

	if status/100 != 2 {
		msg := ""
		if decoded {
			msg = firstNonEmpty(result.Error, result.Message)
		}
		return &ActionFailedError{Action: action, StatusCode: status, Message: msg}
	}

	if decoded && result.Success != nil && !*result.Success {
		return &ActionFailedError{Action: action, StatusCode: status, Message: firstNonEmpty(result.Error, "rejected by backend")}
	}

	c.logger.Debug("action accepted",
		zap.String("action", action),
		zap.String("path", path),
	)
	return nil
}

func (c *Client) endpoint(path string) (*url.URL, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	return u, nil
}

// do performs the request and returns the body along with the status code.
func (c *Client) do(ctx context.Context, method, rawURL string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
