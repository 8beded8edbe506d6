package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MintFaced/timeline/internal/domain"
	"github.com/MintFaced/timeline/internal/observability"
	"github.com/MintFaced/timeline/internal/storage"
	"github.com/MintFaced/timeline/internal/timeline"
)

const defaultHistoryLimit = 20

// builder is the part of timeline.Service the handlers use.
type builder interface {
	Build(ctx context.Context, q domain.Query) (*domain.TimelineResult, error)
}

// API serves the timeline endpoints.
type API struct {
	builder      builder
	archive      storage.TimelineArchive // nil disables /api/timeline/history
	defaultChain string
	logger       *log.Logger
}

// Routes returns the server mux.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/api/timeline", a.handleTimeline)
	mux.HandleFunc("/api/timeline/history", a.handleHistory)

	return mux
}

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

func (a *API) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}

	q := a.parseQuery(r)
	result, err := a.builder.Build(r.Context(), q)
	if err != nil {
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			a.logger.Printf("timeline %s/%s: %v", q.Chain, subjectOf(q), err)
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HistoryEntry is one archived snapshot in a history response.
type HistoryEntry struct {
	ID        string                `json:"id"`
	CreatedAt string                `json:"created_at"`
	Result    domain.TimelineResult `json:"result"`
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}
	if a.archive == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "archive not configured"})
		return
	}

	subject := strings.TrimSpace(r.URL.Query().Get("subject"))
	if subject == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "subject is required"})
		return
	}
	if addr := domain.NormalizeAddress(subject); addr != "" {
		subject = addr
	} else if strings.Contains(subject, ",") {
		subject = timeline.ContractSubject(strings.Split(subject, ","))
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	snaps, err := a.archive.ListBySubject(r.Context(), subject, limit)
	if err != nil {
		a.logger.Printf("history %s: %v", subject, err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "archive unavailable"})
		return
	}

	entries := make([]HistoryEntry, 0, len(snaps))
	for _, s := range snaps {
		entries = append(entries, HistoryEntry{
			ID:        s.ID,
			CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
			Result:    s.Result,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) parseQuery(r *http.Request) domain.Query {
	v := r.URL.Query()

	chain := strings.TrimSpace(v.Get("chain"))
	if chain == "" {
		chain = a.defaultChain
	}
	address := strings.TrimSpace(v.Get("address"))
	if address == "" {
		address = strings.TrimSpace(v.Get("name"))
	}

	var contracts []string
	for _, raw := range v["contracts"] {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				contracts = append(contracts, c)
			}
		}
	}

	return domain.Query{
		Chain:     chain,
		Address:   address,
		Contracts: contracts,
		Artist:    strings.TrimSpace(v.Get("artist")),
	}
}

// errorResponse maps pipeline errors onto HTTP statuses.
func errorResponse(err error) (int, ErrorResponse) {
	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrResolutionFailed):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	case errors.As(err, &upstream):
		return http.StatusBadGateway, ErrorResponse{Error: upstream.Error(), UpstreamStatus: upstream.Status}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal error"}
	}
}

func subjectOf(q domain.Query) string {
	if len(q.Contracts) > 0 {
		return strings.Join(q.Contracts, ",")
	}
	return q.Address
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
