// Package app wires configuration into a ready timeline.Service.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/MintFaced/timeline/internal/config"
	"github.com/MintFaced/timeline/internal/identity"
	"github.com/MintFaced/timeline/internal/provider"
	"github.com/MintFaced/timeline/internal/retrieval"
	"github.com/MintFaced/timeline/internal/storage"
	chstore "github.com/MintFaced/timeline/internal/storage/clickhouse"
	"github.com/MintFaced/timeline/internal/storage/memory"
	"github.com/MintFaced/timeline/internal/storage/migrations"
	pgstore "github.com/MintFaced/timeline/internal/storage/postgres"
	"github.com/MintFaced/timeline/internal/timeline"
)

// NewClient builds the provider client from cfg.
func NewClient(cfg *config.Config) *provider.Client {
	opts := []provider.ClientOption{
		provider.WithTimeout(cfg.ProviderTimeout),
		provider.WithMaxAttempts(cfg.MaxAttempts),
		provider.WithRetryDelay(cfg.RetryDelay),
	}
	if cfg.ProviderAPIKey != "" {
		opts = append(opts, provider.WithAPIKey(cfg.ProviderAPIKey))
	}
	if cfg.ProviderRPS > 0 {
		opts = append(opts, provider.WithRateLimit(cfg.ProviderRPS, cfg.ProviderBurst))
	}
	return provider.NewClient(cfg.ProviderBaseURL, opts...)
}

// NewService builds the full pipeline. The returned cleanup closes any
// archive connection and must be called once the service is no longer used.
func NewService(ctx context.Context, cfg *config.Config, logger *log.Logger) (*timeline.Service, func(), error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client := NewClient(cfg)
	resolver := identity.NewResolver(client, cfg.ResolverEndpoints, cfg.NameSuffixes, logger)
	engine := retrieval.NewEngine(client, retrieval.Options{
		PageSize:         cfg.PageSize,
		MaxContractPages: cfg.MaxContractPages,
		MaxWalletPages:   cfg.MaxWalletPages,
		MinWalletPages:   cfg.MinWalletPages,
	}, logger)

	archive, cleanup, err := OpenArchive(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []timeline.ServiceOption{timeline.WithLogger(logger)}
	if archive != nil {
		opts = append(opts, timeline.WithArchive(archive, cfg.ArchiveBackend))
		logger.Printf("Archiving timelines to %s", cfg.ArchiveBackend)
	}

	svc := timeline.NewService(resolver, engine, timeline.Options{
		RecentWindowDays: cfg.RecentWindowDays,
		LookbackDays:     cfg.LookbackDays,
		PeakSpan:         time.Duration(cfg.PeakWindowDays) * 24 * time.Hour,
	}, opts...)
	return svc, cleanup, nil
}

// OpenArchive connects the configured archive backend and applies its
// migrations. It returns a nil archive for ArchiveNone.
func OpenArchive(ctx context.Context, cfg *config.Config) (storage.TimelineArchive, func(), error) {
	switch cfg.ArchiveBackend {
	case config.ArchiveMemory:
		return memory.NewTimelineArchive(), func() {}, nil

	case config.ArchivePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, 0)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return pgstore.NewTimelineArchive(pool), pool.Close, nil

	case config.ArchiveClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		return chstore.NewTimelineArchive(conn), func() { conn.Close() }, nil

	default:
		return nil, func() {}, nil
	}
}
