// Package config builds the explicit configuration value shared by the cmd
// tools. It is loaded once at process start and passed down by parameter.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Archive backends.
const (
	ArchiveNone       = "none"
	ArchiveMemory     = "memory"
	ArchivePostgres   = "postgres"
	ArchiveClickhouse = "clickhouse"
)

// Default configuration values.
const (
	DefaultProviderBaseURL  = "https://api.chainbase.online/v1"
	DefaultProviderTimeout  = 30 * time.Second
	DefaultMaxAttempts      = 4
	DefaultRetryDelay       = 500 * time.Millisecond
	DefaultPageSize         = 100
	DefaultMaxContractPages = 20
	DefaultMaxWalletPages   = 40
	DefaultMinWalletPages   = 3
	DefaultRecentWindowDays = 30
	DefaultLookbackDays     = 730
	DefaultPeakWindowDays   = 90
	DefaultHTTPAddr         = ":8080"
	DefaultChain            = "ethereum"
)

// DefaultResolverEndpoints are tried in order; {name} is replaced by the
// name being resolved.
var DefaultResolverEndpoints = []string{
	"https://api.ensideas.com/ens/resolve/{name}",
	"https://ensdata.net/{name}",
}

// Config is the process configuration.
type Config struct {
	// Provider
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration
	MaxAttempts     int
	RetryDelay      time.Duration
	ProviderRPS     float64 // 0 disables pacing
	ProviderBurst   int

	// Retrieval
	PageSize         int
	MaxContractPages int
	MaxWalletPages   int
	MinWalletPages   int

	// Derivation
	RecentWindowDays int
	LookbackDays     int
	PeakWindowDays   int

	// Identity
	NameSuffixes      []string
	ResolverEndpoints []string

	// Archive
	ArchiveBackend string
	PostgresDSN    string
	ClickhouseDSN  string

	HTTPAddr     string
	DefaultChain string // used when a query names no chain
}

// Load reads .env (if present) and the environment into a Config.
// Existing environment variables take precedence over .env entries.
// The result is not validated; callers apply flag overrides first and
// then call Validate.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: ignoring .env: %v", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Only parse errors are
// returned.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		ProviderBaseURL:   p.str("PROVIDER_BASE_URL", DefaultProviderBaseURL),
		ProviderAPIKey:    p.str("PROVIDER_API_KEY", ""),
		ProviderTimeout:   p.duration("PROVIDER_TIMEOUT", DefaultProviderTimeout),
		MaxAttempts:       p.int("PROVIDER_MAX_ATTEMPTS", DefaultMaxAttempts),
		RetryDelay:        p.duration("PROVIDER_RETRY_DELAY", DefaultRetryDelay),
		ProviderRPS:       p.float("PROVIDER_RPS", 0),
		ProviderBurst:     p.int("PROVIDER_BURST", 1),
		PageSize:          p.int("PAGE_SIZE", DefaultPageSize),
		MaxContractPages:  p.int("MAX_CONTRACT_PAGES", DefaultMaxContractPages),
		MaxWalletPages:    p.int("MAX_WALLET_PAGES", DefaultMaxWalletPages),
		MinWalletPages:    p.int("MIN_WALLET_PAGES", DefaultMinWalletPages),
		RecentWindowDays:  p.int("RECENT_WINDOW_DAYS", DefaultRecentWindowDays),
		LookbackDays:      p.int("LOOKBACK_DAYS", DefaultLookbackDays),
		PeakWindowDays:    p.int("PEAK_WINDOW_DAYS", DefaultPeakWindowDays),
		NameSuffixes:      p.list("NAME_SUFFIXES", []string{".eth"}),
		ResolverEndpoints: p.list("RESOLVER_ENDPOINTS", DefaultResolverEndpoints),
		ArchiveBackend:    strings.ToLower(p.str("ARCHIVE_BACKEND", ArchiveNone)),
		PostgresDSN:       p.str("POSTGRES_DSN", ""),
		ClickhouseDSN:     p.str("CLICKHOUSE_DSN", ""),
		HTTPAddr:          p.str("HTTP_ADDR", DefaultHTTPAddr),
		DefaultChain:      p.str("DEFAULT_CHAIN", DefaultChain),
	}

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return cfg, nil
}

// Validate rejects impossible values.
func (c *Config) Validate() error {
	var errs []error
	if c.ProviderBaseURL == "" {
		errs = append(errs, errors.New("PROVIDER_BASE_URL is required"))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("PROVIDER_MAX_ATTEMPTS must be >= 1, got %d", c.MaxAttempts))
	}
	if c.PageSize < 1 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be >= 1, got %d", c.PageSize))
	}
	if c.MaxContractPages < 1 || c.MaxWalletPages < 1 {
		errs = append(errs, errors.New("page ceilings must be >= 1"))
	}
	if c.MinWalletPages > c.MaxWalletPages {
		errs = append(errs, fmt.Errorf("MIN_WALLET_PAGES (%d) exceeds MAX_WALLET_PAGES (%d)", c.MinWalletPages, c.MaxWalletPages))
	}
	if c.RecentWindowDays < 1 || c.PeakWindowDays < 1 {
		errs = append(errs, errors.New("window sizes must be >= 1 day"))
	}
	if c.LookbackDays < c.RecentWindowDays {
		errs = append(errs, fmt.Errorf("LOOKBACK_DAYS (%d) must cover RECENT_WINDOW_DAYS (%d)", c.LookbackDays, c.RecentWindowDays))
	}
	switch c.ArchiveBackend {
	case ArchiveNone, ArchiveMemory:
	case ArchivePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for postgres archive"))
		}
	case ArchiveClickhouse:
		if c.ClickhouseDSN == "" {
			errs = append(errs, errors.New("CLICKHOUSE_DSN is required for clickhouse archive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ARCHIVE_BACKEND %q", c.ArchiveBackend))
	}
	return errors.Join(errs...)
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (p *parser) list(key string, def []string) []string {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
