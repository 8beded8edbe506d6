package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MintFaced/timeline/internal/domain"
)

func TestClient_ContractActivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/nft/activity" {
			t.Errorf("expected path /nft/activity, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("contract_address") != "0xabc" || q.Get("type") != "sale" || q.Get("limit") != "50" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("cursor") != "c1" {
			t.Errorf("expected cursor c1, got %q", q.Get("cursor"))
		}
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("expected api key header, got %q", r.Header.Get("x-api-key"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"token_id":"115792089237316195423570985008687907853269984665640564039457584007913129639935"},{"token_id":2}],"next_page":"c2"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithAPIKey("secret"))
	page, err := client.ContractActivity(context.Background(), ActivityRequest{
		Chain: "1", Contract: "0xabc", Type: "sale", Cursor: "c1", Limit: 50,
	})
	if err != nil {
		t.Fatalf("ContractActivity: %v", err)
	}

	if len(page.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(page.Rows))
	}
	if page.Cursor != "c2" {
		t.Errorf("expected cursor c2, got %q", page.Cursor)
	}
	if id, ok := page.Rows[1]["token_id"].(json.Number); !ok || id.String() != "2" {
		t.Errorf("expected json.Number token id, got %#v", page.Rows[1]["token_id"])
	}
}

func TestClient_WalletTransactions_NestedRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req WalletRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Address != "0xwallet" || req.Limit != 10 {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Write([]byte(`{"result":{"items":[{"hash":"0x1"}],"cursor":"next"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	page, err := client.WalletTransactions(context.Background(), WalletRequest{Chain: "1", Address: "0xwallet", Limit: 10})
	if err != nil {
		t.Fatalf("WalletTransactions: %v", err)
	}
	if len(page.Rows) != 1 || page.Cursor != "next" {
		t.Errorf("expected 1 row and cursor next, got %d rows, cursor %q", len(page.Rows), page.Cursor)
	}
}

func TestClient_ContractMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{"name":"Genesis","deployed_at":"2021-03-01T00:00:00Z"}}`))
	}))
	defer server.Close()

	meta, err := NewClient(server.URL).ContractMetadata(context.Background(), "1", "0xabc")
	if err != nil {
		t.Fatalf("ContractMetadata: %v", err)
	}
	if meta["name"] != "Genesis" {
		t.Errorf("expected unwrapped metadata, got %v", meta)
	}
}

func TestClient_RetryOnTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		switch n {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte(`{"data":[]}`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetryDelay(time.Millisecond))
	_, err := client.ContractActivity(context.Background(), ActivityRequest{Contract: "0xabc"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClient_RetryExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("try later"))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithMaxAttempts(4), WithRetryDelay(time.Millisecond))
	_, err := client.ContractActivity(context.Background(), ActivityRequest{Contract: "0xabc"})

	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.Status != http.StatusServiceUnavailable || upErr.Body != "try later" {
		t.Errorf("unexpected upstream error: %+v", upErr)
	}
	if calls.Load() != 4 {
		t.Errorf("expected 4 attempts, got %d", calls.Load())
	}
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"bad key"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetryDelay(time.Millisecond))
	_, err := client.WalletTransactions(context.Background(), WalletRequest{Address: "0xwallet"})

	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) || upErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 UpstreamError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestClient_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(server.URL, WithRetryDelay(time.Second))
	_, err := client.ContractActivity(ctx, ActivityRequest{Contract: "0xabc"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestClient_FetchDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var out map[string]any
	err := NewClient("").Fetch(context.Background(), EndpointResolver, server.URL+"/x", &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestParsePage_Variants(t *testing.T) {
	tests := []struct {
		name       string
		raw        map[string]any
		wantRows   int
		wantCursor string
	}{
		{"flat data", map[string]any{"data": []any{map[string]any{}}, "cursor": "a"}, 1, "a"},
		{"nested items", map[string]any{"data": map[string]any{"items": []any{map[string]any{}, map[string]any{}}, "next": "b"}}, 2, "b"},
		{"numeric offset", map[string]any{"results": []any{}, "next_page": json.Number("3")}, 0, "3"},
		{"no cursor", map[string]any{"transactions": []any{map[string]any{}, "skip"}}, 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := parsePage(tt.raw)
			if len(page.Rows) != tt.wantRows {
				t.Errorf("expected %d rows, got %d", tt.wantRows, len(page.Rows))
			}
			if page.Cursor != tt.wantCursor {
				t.Errorf("expected cursor %q, got %q", tt.wantCursor, page.Cursor)
			}
		})
	}
}
