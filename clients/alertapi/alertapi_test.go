package alertapi

import (
	"alertdash/config"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(baseURL string) *Client {
	cfg := config.Defaults()
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.RequestTimeout = 2 * time.Second
	return NewClient(nil, cfg)
}

func TestNewClient(t *testing.T) {
	cfg := config.Defaults()
	cfg.Backend.BaseURL = "http://scanner:5000/"

	client := NewClient(nil, cfg)

	if client.logger == nil {
		t.Error("expected logger to be set")
	}
	if client.baseURL != "http://scanner:5000" {
		t.Errorf("expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient.Timeout != 10*time.Second {
		t.Errorf("unexpected timeout: %v", client.httpClient.Timeout)
	}
}

func TestFetchAlerts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/alerts" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("filter") != "sell" {
			t.Errorf("unexpected filter: %s", r.URL.Query().Get("filter"))
		}
		w.Write([]byte(`[{"id":1,"symbol":"AAPL","price":1},{"id":2}]`))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchAlerts(context.Background(), "sell")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 raw records, got %d", len(records))
	}
}

func TestFetchAlerts_Envelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"alerts":[{"id":"a"}]}`))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchAlerts(context.Background(), "all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestFetchAlerts_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchAlerts(context.Background(), "all")
	var feedErr *FeedUnavailableError
	if !errors.As(err, &feedErr) {
		t.Fatalf("expected FeedUnavailableError, got %v", err)
	}
	if feedErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unexpected status: %d", feedErr.StatusCode)
	}
	if feedErr.Op != OpFetchAlerts {
		t.Errorf("unexpected op: %s", feedErr.Op)
	}
}

func TestFetchAlerts_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchAlerts(context.Background(), "all")
	var feedErr *FeedUnavailableError
	if !errors.As(err, &feedErr) {
		t.Fatalf("expected FeedUnavailableError, got %v", err)
	}
}

func TestFetchAlerts_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).FetchAlerts(context.Background(), "all")
	var feedErr *FeedUnavailableError
	if !errors.As(err, &feedErr) {
		t.Fatalf("expected FeedUnavailableError, got %v", err)
	}
	if feedErr.Err == nil {
		t.Error("expected wrapped transport error")
	}
}

func TestFetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(StatusPayload{Yahoo: "open", Etrade: "ok"})
	}))
	defer server.Close()

	status, err := newTestClient(server.URL).FetchStatus(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Yahoo != "open" || status.Etrade != "ok" {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestBuy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/simulation/buy" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req TradeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Symbol != "AAPL" || req.Qty != 3 {
			t.Errorf("unexpected body: %+v", req)
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	if err := newTestClient(server.URL).Buy(context.Background(), " AAPL ", 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuy_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"Insufficient cash"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).Buy(context.Background(), "AAPL", 1)
	var actionErr *ActionFailedError
	if !errors.As(err, &actionErr) {
		t.Fatalf("expected ActionFailedError, got %v", err)
	}
	if actionErr.Message != "Insufficient cash" {
		t.Errorf("unexpected message: %s", actionErr.Message)
	}
}

func TestBuy_EmptySymbol(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	err := newTestClient(server.URL).Buy(context.Background(), "  ", 1)
	var actionErr *ActionFailedError
	if !errors.As(err, &actionErr) {
		t.Fatalf("expected ActionFailedError, got %v", err)
	}
	if called {
		t.Error("empty symbol must not reach the backend")
	}
}

func TestSell_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simulation/sell" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"No holdings"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).Sell(context.Background(), "AAPL", 1)
	var actionErr *ActionFailedError
	if !errors.As(err, &actionErr) {
		t.Fatalf("expected ActionFailedError, got %v", err)
	}
	if actionErr.StatusCode != http.StatusBadRequest || actionErr.Message != "No holdings" {
		t.Errorf("unexpected error: %+v", actionErr)
	}
}

func TestClear(t *testing.T) {
	tests := []struct {
		name   string
		method string
		want   string
		verb   string
	}{
		{"post", "post", "/alerts/42/clear", http.MethodPost},
		{"delete", "delete", "/api/alerts/42", http.MethodDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != tt.verb || r.URL.Path != tt.want {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			client.clearMethod = tt.method
			if err := client.Clear(context.Background(), "42"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestClearAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/alerts/clear" || r.URL.Query().Get("filter") != "prime" {
			t.Errorf("unexpected request: %s", r.URL.String())
		}
		w.Write([]byte(`{"message":"cleared"}`))
	}))
	defer server.Close()

	if err := newTestClient(server.URL).ClearAll(context.Background(), "prime"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResetSimulation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simulation/reset" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := newTestClient(server.URL).ResetSimulation(context.Background())
	var actionErr *ActionFailedError
	if !errors.As(err, &actionErr) {
		t.Fatalf("expected ActionFailedError, got %v", err)
	}
	if actionErr.Error() != "reset failed: status=500" {
		t.Errorf("unexpected message: %s", actionErr.Error())
	}
}
