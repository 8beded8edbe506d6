package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/MintFaced/timeline/internal/domain"
	"github.com/MintFaced/timeline/internal/provider"
)

const wallet = "0x52bc44d5378309ee2abf1539bf71de1b7d7be3b5"

func TestResolve_AddressPassthrough(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	r := NewResolver(provider.NewClient(""), []string{server.URL + "/{name}"}, []string{".eth"}, nil)
	addr, err := r.Resolve(context.Background(), "0x52BC44D5378309EE2ABF1539BF71DE1B7D7BE3B5")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if addr != wallet {
		t.Errorf("expected %s, got %s", wallet, addr)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no network calls, got %d", calls.Load())
	}
}

func TestResolve_FallsThroughEndpoints(t *testing.T) {
	var firstCalls, secondCalls, thirdCalls atomic.Int32
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		firstCalls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer first.Close()
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondCalls.Add(1)
		w.Write([]byte(`{"address":"not-an-address"}`))
	}))
	defer second.Close()
	third := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		thirdCalls.Add(1)
		if r.URL.Path != "/resolve/artist.eth" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"result":{"address":"0x52BC44D5378309EE2ABF1539BF71DE1B7D7BE3B5"}}`))
	}))
	defer third.Close()

	r := NewResolver(provider.NewClient(""), []string{
		first.URL + "/{name}",
		second.URL + "/{name}",
		third.URL + "/resolve/{name}",
	}, []string{".eth"}, nil)

	addr, err := r.Resolve(context.Background(), "Artist.eth")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if addr != wallet {
		t.Errorf("expected %s, got %s", wallet, addr)
	}
	if firstCalls.Load() != 1 || secondCalls.Load() != 1 || thirdCalls.Load() != 1 {
		t.Errorf("expected one call per endpoint, got %d/%d/%d", firstCalls.Load(), secondCalls.Load(), thirdCalls.Load())
	}
}

func TestResolve_DoesNotSendProviderKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("x-api-key"); key != "" {
			t.Errorf("resolver received x-api-key %q", key)
		}
		w.Write([]byte(`{"address":"` + wallet + `"}`))
	}))
	defer server.Close()

	client := provider.NewClient("", provider.WithAPIKey("provider-secret"))
	r := NewResolver(client, []string{server.URL + "/{name}"}, []string{".eth"}, nil)
	addr, err := r.Resolve(context.Background(), "artist.eth")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if addr != wallet {
		t.Errorf("expected %s, got %s", wallet, addr)
	}
}

func TestResolve_AllFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	r := NewResolver(provider.NewClient(""), []string{server.URL + "/{name}"}, []string{".eth"}, nil)
	_, err := r.Resolve(context.Background(), "nobody.eth")
	if !errors.Is(err, domain.ErrResolutionFailed) {
		t.Errorf("expected ErrResolutionFailed, got %v", err)
	}
}

func TestResolve_UnrecognizedInput(t *testing.T) {
	r := NewResolver(provider.NewClient(""), nil, []string{".eth"}, nil)
	for _, input := range []string{"", "artist", "0x123", ".eth"} {
		if _, err := r.Resolve(context.Background(), input); !errors.Is(err, domain.ErrResolutionFailed) {
			t.Errorf("input %q: expected ErrResolutionFailed, got %v", input, err)
		}
	}
}

func TestAddressFromBody(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"top level", map[string]any{"address": wallet}, wallet},
		{"resolvedAddress", map[string]any{"resolvedAddress": wallet}, wallet},
		{"nested data", map[string]any{"data": map[string]any{"address": wallet}}, wallet},
		{"first invalid then valid", map[string]any{"address": "bogus", "data": map[string]any{"address": wallet}}, wallet},
		{"missing", map[string]any{"name": "x"}, ""},
		{"wrong type", map[string]any{"result": "x"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := addressFromBody(tt.body); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
