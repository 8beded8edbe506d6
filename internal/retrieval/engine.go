// Package retrieval fetches every page of the upstream activity feeds.
package retrieval

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MintFaced/timeline/internal/classify"
	"github.com/MintFaced/timeline/internal/domain"
	"github.com/MintFaced/timeline/internal/observability"
	"github.com/MintFaced/timeline/internal/provider"
)

// Retrieval modes, used as metric labels.
const (
	ModeContract = "contract"
	ModeWallet   = "wallet"
	ModeMetadata = "metadata"
)

// Source is the upstream provider as seen by the engine.
type Source interface {
	ContractActivity(ctx context.Context, req provider.ActivityRequest) (*provider.Page, error)
	WalletTransactions(ctx context.Context, req provider.WalletRequest) (*provider.Page, error)
	ContractMetadata(ctx context.Context, chain, contract string) (domain.RawRecord, error)
}

// Options bounds retrieval.
type Options struct {
	PageSize         int
	MaxContractPages int
	MaxWalletPages   int
	MinWalletPages   int
}

// DefaultOptions returns the default page bounds.
func DefaultOptions() Options {
	return Options{
		PageSize:         100,
		MaxContractPages: 20,
		MaxWalletPages:   40,
		MinWalletPages:   3,
	}
}

// WalletPolicy is the early-termination policy for wallet feeds.
type WalletPolicy struct {
	// LookbackCutoff bounds total history depth.
	LookbackCutoff time.Time
	// RecentCutoff is the start of the recent window. Once a page reaches
	// past it, fetching stops as soon as MinWalletPages have been read.
	RecentCutoff time.Time
}

// Engine drives paginated retrieval.
type Engine struct {
	src    Source
	opts   Options
	logger *log.Logger
}

// NewEngine creates an Engine. Zero-valued options fall back to defaults.
func NewEngine(src Source, opts Options, logger *log.Logger) *Engine {
	def := DefaultOptions()
	if opts.PageSize <= 0 {
		opts.PageSize = def.PageSize
	}
	if opts.MaxContractPages <= 0 {
		opts.MaxContractPages = def.MaxContractPages
	}
	if opts.MaxWalletPages <= 0 {
		opts.MaxWalletPages = def.MaxWalletPages
	}
	if opts.MinWalletPages < 0 {
		opts.MinWalletPages = 0
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{src: src, opts: opts, logger: logger}
}

// ContractActivity fetches all pages of activityType for every contract,
// one goroutine per contract. Any failure fails the whole call. Order
// across contracts is not guaranteed; within a contract it is page order.
func (e *Engine) ContractActivity(ctx context.Context, chain string, contracts []string, activityType string) ([]domain.RawRecord, error) {
	results := make([][]domain.RawRecord, len(contracts))

	g, gctx := errgroup.WithContext(ctx)
	for i, contract := range contracts {
		g.Go(func() error {
			rows, err := e.contractPages(gctx, chain, contract, activityType)
			if err != nil {
				return fmt.Errorf("fetch %s activity for %s: %w", activityType, contract, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.RawRecord
	for _, rows := range results {
		all = append(all, rows...)
	}
	return all, nil
}

// contractPages reads one contract's feed sequentially. A page shorter than
// the page size is taken as the end of data even on cursor-paginated feeds.
func (e *Engine) contractPages(ctx context.Context, chain, contract, activityType string) ([]domain.RawRecord, error) {
	var rows []domain.RawRecord
	cursor := ""

	for page := 0; page < e.opts.MaxContractPages; page++ {
		p, err := e.src.ContractActivity(ctx, provider.ActivityRequest{
			Chain:    chain,
			Contract: contract,
			Type:     activityType,
			Cursor:   cursor,
			Limit:    e.opts.PageSize,
		})
		if err != nil {
			return nil, err
		}
		observability.RecordPage(ModeContract, len(p.Rows))
		rows = append(rows, p.Rows...)

		if len(p.Rows) < e.opts.PageSize || p.Cursor == "" {
			return rows, nil
		}
		cursor = p.Cursor
	}

	e.logger.Printf("contract %s %s feed hit page ceiling (%d)", contract, activityType, e.opts.MaxContractPages)
	return rows, nil
}

// WalletTransactions fetches a wallet's transactions page by page and
// returns the flattened sub-records. Pages are sequential because each
// cursor comes from the previous response.
func (e *Engine) WalletTransactions(ctx context.Context, chain, address string, policy WalletPolicy) ([]domain.RawRecord, error) {
	var rows []domain.RawRecord
	cursor := ""

	for pages := 1; pages <= e.opts.MaxWalletPages; pages++ {
		p, err := e.src.WalletTransactions(ctx, provider.WalletRequest{
			Chain:   chain,
			Address: address,
			Cursor:  cursor,
			Limit:   e.opts.PageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch wallet transactions for %s: %w", address, err)
		}

		flat := FlattenTransactions(p.Rows)
		observability.RecordPage(ModeWallet, len(flat))
		rows = append(rows, flat...)

		if len(p.Rows) == 0 || p.Cursor == "" {
			return rows, nil
		}
		if stop, reason := e.shouldStop(flat, pages, policy); stop {
			e.logger.Printf("wallet %s: stopping after %d pages (%s)", address, pages, reason)
			return rows, nil
		}
		cursor = p.Cursor
	}

	e.logger.Printf("wallet %s feed hit page ceiling (%d)", address, e.opts.MaxWalletPages)
	return rows, nil
}

func (e *Engine) shouldStop(rows []domain.RawRecord, pages int, policy WalletPolicy) (bool, string) {
	oldest, ok := oldestTimestamp(rows)
	if !ok {
		return false, ""
	}
	if !policy.LookbackCutoff.IsZero() && oldest.Before(policy.LookbackCutoff) {
		return true, "past lookback cutoff"
	}
	if !policy.RecentCutoff.IsZero() && oldest.Before(policy.RecentCutoff) && pages >= e.opts.MinWalletPages {
		return true, "past recent window"
	}
	return false, ""
}

func oldestTimestamp(rows []domain.RawRecord) (time.Time, bool) {
	var oldest time.Time
	found := false
	for _, r := range rows {
		ts, ok := classify.Timestamp(r)
		if !ok {
			continue
		}
		if !found || ts.Before(oldest) {
			oldest = ts
			found = true
		}
	}
	return oldest, found
}

// ContractMetadata looks up metadata for every contract concurrently.
// The result is in input order.
func (e *Engine) ContractMetadata(ctx context.Context, chain string, contracts []string) ([]domain.ContractRecord, error) {
	records := make([]domain.ContractRecord, len(contracts))

	g, gctx := errgroup.WithContext(ctx)
	for i, contract := range contracts {
		g.Go(func() error {
			raw, err := e.src.ContractMetadata(gctx, chain, contract)
			if err != nil {
				return fmt.Errorf("fetch metadata for %s: %w", contract, err)
			}
			observability.RecordPage(ModeMetadata, 1)
			records[i] = classify.ContractRecord(contract, raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
