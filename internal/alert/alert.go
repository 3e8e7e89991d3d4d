package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Alert is one trading signal event as reported by the backend.
// Values are snapshots; a fetch replaces the whole list.
type Alert struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name,omitempty"`
	Signal     Signal    `json:"signal"`
	Confidence float64   `json:"confidence"`
	Price      float64   `json:"price"`
	VWAP       float64   `json:"vwap,omitempty"`
	HasVWAP    bool      `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	Triggers   []string  `json:"triggers,omitempty"`
	ChartURL   string    `json:"chart_url,omitempty"`
}

// StatusSnapshot is the backend's view of the market and broker.
// The two flags are independent.
type StatusSnapshot struct {
	MarketOpen      bool      `json:"market_open"`
	BrokerConnected bool      `json:"broker_connected"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// MalformedAlertError is returned when a record lacks a usable id, symbol or price.
type MalformedAlertError struct {
	Field  string
	Reason string
}

func (e *MalformedAlertError) Error() string {
	return fmt.Sprintf("malformed alert: %s %s", e.Field, e.Reason)
}

// wallClockLayouts carry no zone; the backend writes them in its local time.
var wallClockLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999",
}

// Parse decodes one raw backend record, reading zone-less timestamps as
// process-local wall clock.
func Parse(raw []byte) (Alert, error) {
	return ParseIn(raw, time.Local)
}

// ParseIn is Parse with zone-less timestamps read as wall clock in loc.
func ParseIn(raw []byte, loc *time.Location) (Alert, error) {
	if loc == nil {
		loc = time.Local
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Alert{}, &MalformedAlertError{Field: "record", Reason: "is not a JSON object"}
	}

	var a Alert

	id, err := parseID(fields["id"])
	if err != nil {
		// Scanner payloads carry their own identifier.
		if fallback, ferr := parseID(fields["alert_id"]); ferr == nil {
			id, err = fallback, nil
		}
	}
	if err != nil {
		return Alert{}, &MalformedAlertError{Field: "id", Reason: err.Error()}
	}
	a.ID = id

	symbol, ok := stringField(fields["symbol"])
	if !ok || strings.TrimSpace(symbol) == "" {
		return Alert{}, &MalformedAlertError{Field: "symbol", Reason: "is missing or not a string"}
	}
	a.Symbol = strings.TrimSpace(symbol)

	price, ok := numberField(fields["price"])
	if !ok {
		return Alert{}, &MalformedAlertError{Field: "price", Reason: "is missing or not a number"}
	}
	if price < 0 {
		return Alert{}, &MalformedAlertError{Field: "price", Reason: "is negative"}
	}
	a.Price = price

	a.Name, _ = stringField(fields["name"])

	signal, _ := stringField(fields["signal"])
	a.Signal = ParseSignal(signal)
	if a.Signal == SignalUnknown {
		legacy, _ := stringField(fields["type"])
		a.Signal = ParseSignal(legacy)
	}

	if c, ok := numberField(fields["confidence"]); ok {
		a.Confidence = clamp(c, 0, 100)
	}

	if v, ok := numberField(fields["vwap"]); ok {
		a.VWAP = v
		a.HasVWAP = true
	}

	a.Timestamp = parseTimestamp(fields["timestamp"], loc)
	a.Triggers = parseTriggers(fields["triggers"])
	a.ChartURL, _ = stringField(fields["chart_url"])

	return a, nil
}

// ParseStatus maps the backend status payload onto a snapshot.
func ParseStatus(yahoo, etrade string) StatusSnapshot {
	return StatusSnapshot{
		MarketOpen:      strings.EqualFold(strings.TrimSpace(yahoo), "open"),
		BrokerConnected: strings.EqualFold(strings.TrimSpace(etrade), "ok"),
	}
}

func parseID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return "", fmt.Errorf("is missing")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("is not a valid string")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", fmt.Errorf("is empty")
		}
		return s, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("must be a string or number")
		}
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		f, err := n.Float64()
		if err != nil {
			return "", fmt.Errorf("must be a string or number")
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
}

func stringField(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func numberField(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

func parseTimestamp(raw json.RawMessage, loc *time.Location) time.Time {
	if s, ok := stringField(raw); ok {
		s = strings.TrimSpace(s)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
		for _, layout := range wallClockLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t
			}
		}
		return time.Time{}
	}

	if f, ok := numberField(raw); ok && f > 0 {
		// Values past year 2286 in seconds are milliseconds.
		if f > 1e10 {
			return time.UnixMilli(int64(f)).UTC()
		}
		return time.Unix(int64(f), 0).UTC()
	}

	return time.Time{}
}

func parseTriggers(raw json.RawMessage) []string {
	if s, ok := stringField(raw); ok {
		return SplitTriggers(s)
	}

	var arr []string
	if !isNull(raw) && json.Unmarshal(raw, &arr) == nil {
		return SplitTriggers(strings.Join(arr, ","))
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
