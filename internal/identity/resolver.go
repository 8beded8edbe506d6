// Package identity resolves human-readable names to canonical addresses.
package identity

import (
	"context"
	"io"
	"log"
	"net/url"
	"strings"

	"github.com/MintFaced/timeline/internal/domain"
	"github.com/MintFaced/timeline/internal/observability"
	"github.com/MintFaced/timeline/internal/provider"
)

// Fetcher performs one non-retried GET of an absolute URL.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint, rawURL string, out any) error
}

// Resolver tries a fixed ordered list of resolver endpoints and returns the
// first well-formed address. Endpoints are URL templates containing {name}.
type Resolver struct {
	fetcher   Fetcher
	endpoints []string
	suffixes  []string
	logger    *log.Logger
}

// NewResolver creates a Resolver. A nil logger discards output.
func NewResolver(fetcher Fetcher, endpoints, suffixes []string, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Resolver{
		fetcher:   fetcher,
		endpoints: endpoints,
		suffixes:  suffixes,
		logger:    logger,
	}
}

// IsName reports whether input ends in a recognized naming-service suffix.
func (r *Resolver) IsName(input string) bool {
	lower := strings.ToLower(strings.TrimSpace(input))
	for _, suffix := range r.suffixes {
		if suffix != "" && strings.HasSuffix(lower, strings.ToLower(suffix)) && len(lower) > len(suffix) {
			return true
		}
	}
	return false
}

// Resolve returns the canonical lowercase address for input. Inputs that
// are already addresses are returned without any network call.
func (r *Resolver) Resolve(ctx context.Context, input string) (string, error) {
	if addr := domain.NormalizeAddress(input); addr != "" {
		return addr, nil
	}
	if !r.IsName(input) {
		return "", domain.ErrResolutionFailed
	}

	name := strings.ToLower(strings.TrimSpace(input))
	for _, tmpl := range r.endpoints {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rawURL := strings.ReplaceAll(tmpl, "{name}", url.PathEscape(name))

		var body map[string]any
		if err := r.fetcher.Fetch(ctx, provider.EndpointResolver, rawURL, &body); err != nil {
			r.logger.Printf("resolver %s failed for %s: %v", endpointHost(rawURL), name, err)
			continue
		}
		if addr := addressFromBody(body); addr != "" {
			observability.RecordResolution("resolved")
			return addr, nil
		}
		r.logger.Printf("resolver %s returned no address for %s", endpointHost(rawURL), name)
	}

	observability.RecordResolution("failed")
	return "", domain.ErrResolutionFailed
}

// addressPaths are probed in order on each resolver response.
var addressPaths = [][]string{
	{"address"},
	{"resolvedAddress"},
	{"result", "address"},
	{"data", "address"},
}

func addressFromBody(body map[string]any) string {
	for _, path := range addressPaths {
		var cur any = body
		for _, key := range path {
			m, ok := cur.(map[string]any)
			if !ok {
				cur = nil
				break
			}
			cur = m[key]
		}
		if s, ok := cur.(string); ok {
			if addr := domain.NormalizeAddress(s); addr != "" {
				return addr
			}
		}
	}
	return ""
}

func endpointHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
