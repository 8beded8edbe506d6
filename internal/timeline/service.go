package timeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MintFaced/timeline/internal/classify"
	"github.com/MintFaced/timeline/internal/domain"
	"github.com/MintFaced/timeline/internal/idhash"
	"github.com/MintFaced/timeline/internal/milestone"
	"github.com/MintFaced/timeline/internal/observability"
	"github.com/MintFaced/timeline/internal/provider"
	"github.com/MintFaced/timeline/internal/retrieval"
	"github.com/MintFaced/timeline/internal/storage"
)

// Build modes, used as metric labels.
const (
	ModeContractSet = "contract_set"
	ModeWallet      = "wallet"
)

// Resolver turns a name or address into a canonical address.
type Resolver interface {
	IsName(input string) bool
	Resolve(ctx context.Context, input string) (string, error)
}

// Options holds the derivation windows.
type Options struct {
	RecentWindowDays int
	LookbackDays     int
	PeakSpan         time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithArchive appends every built timeline to a. backend labels metrics.
func WithArchive(a storage.TimelineArchive, backend string) ServiceOption {
	return func(s *Service) {
		s.archive = a
		s.archiveBackend = backend
	}
}

// WithClock sets the time source for window cutoffs and snapshot times.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service builds timelines for queries.
type Service struct {
	resolver       Resolver
	engine         *retrieval.Engine
	opts           Options
	archive        storage.TimelineArchive
	archiveBackend string
	now            func() time.Time
	logger         *log.Logger
}

// NewService creates a Service. Zero windows fall back to 30 days recent,
// 730 days lookback and the default peak span.
func NewService(resolver Resolver, engine *retrieval.Engine, opts Options, options ...ServiceOption) *Service {
	if opts.RecentWindowDays <= 0 {
		opts.RecentWindowDays = 30
	}
	if opts.LookbackDays < opts.RecentWindowDays {
		opts.LookbackDays = max(730, opts.RecentWindowDays)
	}
	if opts.PeakSpan <= 0 {
		opts.PeakSpan = milestone.DefaultPeakSpan
	}

	s := &Service{
		resolver: resolver,
		engine:   engine,
		opts:     opts,
		now:      time.Now,
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Archive returns the configured archive, or nil.
func (s *Service) Archive() storage.TimelineArchive {
	return s.archive
}

// Build runs one query end to end. Explicit contracts select contract-set
// mode; otherwise the address (or name) selects wallet mode. Input errors
// are returned before any network call.
func (s *Service) Build(ctx context.Context, q domain.Query) (*domain.TimelineResult, error) {
	start := time.Now()

	contracts := normalizeContracts(q.Contracts)
	mode := ModeContractSet
	if len(contracts) == 0 {
		mode = ModeWallet
		if err := s.checkWalletInput(q.Address); err != nil {
			observability.RecordTimeline(mode, "invalid", time.Since(start).Seconds())
			return nil, err
		}
	}

	var (
		result domain.TimelineResult
		err    error
	)
	if mode == ModeContractSet {
		result, err = s.buildContractSet(ctx, q, contracts)
	} else {
		result, err = s.buildWallet(ctx, q)
	}
	if err != nil {
		observability.RecordTimeline(mode, statusOf(err), time.Since(start).Seconds())
		return nil, err
	}

	s.archiveResult(ctx, result)
	observability.RecordTimeline(mode, "ok", time.Since(start).Seconds())
	return &result, nil
}

func (s *Service) checkWalletInput(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.ErrInvalidInput
	}
	if domain.IsHexAddress(address) || s.resolver.IsName(address) {
		return nil
	}
	return fmt.Errorf("%w: %q is neither an address nor a resolvable name", domain.ErrInvalidInput, address)
}

func (s *Service) buildContractSet(ctx context.Context, q domain.Query, contracts []string) (domain.TimelineResult, error) {
	var (
		mints, sales []domain.RawRecord
		meta         []domain.ContractRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mints, err = s.engine.ContractActivity(gctx, q.Chain, contracts, provider.ActivityMint)
		return err
	})
	g.Go(func() error {
		var err error
		sales, err = s.engine.ContractActivity(gctx, q.Chain, contracts, provider.ActivitySale)
		return err
	})
	g.Go(func() error {
		var err error
		meta, err = s.engine.ContractMetadata(gctx, q.Chain, contracts)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.TimelineResult{}, err
	}

	d := milestone.ContractSet(milestone.ContractSetInput{
		Mints:     classify.FilterFeed(mints, domain.EventKindMint),
		Sales:     classify.FilterFeed(sales, domain.EventKindSale),
		Contracts: meta,
		PeakSpan:  s.opts.PeakSpan,
	})
	return Assemble(q, d, Extras{}), nil
}

func (s *Service) buildWallet(ctx context.Context, q domain.Query) (domain.TimelineResult, error) {
	input := strings.TrimSpace(q.Address)
	wallet, err := s.resolver.Resolve(ctx, input)
	if err != nil {
		return domain.TimelineResult{}, fmt.Errorf("resolve %s: %w", input, err)
	}
	var resolvedName string
	if !domain.IsHexAddress(input) {
		resolvedName = input
	}

	now := s.now().UTC()
	windowStart := now.AddDate(0, 0, -s.opts.RecentWindowDays)
	policy := retrieval.WalletPolicy{
		LookbackCutoff: now.AddDate(0, 0, -s.opts.LookbackDays),
		RecentCutoff:   windowStart,
	}

	rows, err := s.engine.WalletTransactions(ctx, q.Chain, wallet, policy)
	if err != nil {
		return domain.TimelineResult{}, err
	}
	events, dropped := classify.NormalizeAll(rows)
	if dropped > 0 {
		s.logger.Printf("wallet %s: dropped %d records without timestamp", wallet, dropped)
	}

	meta, err := s.engine.ContractMetadata(ctx, q.Chain, milestone.WalletContracts(events, windowStart))
	if err != nil {
		return domain.TimelineResult{}, err
	}

	d := milestone.Wallet(milestone.WalletInput{
		Wallet:      wallet,
		Events:      events,
		Contracts:   meta,
		WindowStart: windowStart,
		PeakSpan:    s.opts.PeakSpan,
	})
	return Assemble(q, d, Extras{
		Wallet:       wallet,
		Window:       &domain.Window{Days: s.opts.RecentWindowDays, Start: windowStart},
		ResolvedName: resolvedName,
	}), nil
}

// archiveResult appends result to the archive unless the latest snapshot
// for the same subject has an identical digest. Failures are logged only.
func (s *Service) archiveResult(ctx context.Context, result domain.TimelineResult) {
	if s.archive == nil {
		return
	}
	subject := Subject(result)
	latest, err := s.archive.ListBySubject(ctx, subject, 1)
	if err != nil {
		s.logger.Printf("archive %s: list latest: %v", subject, err)
	} else if len(latest) > 0 && idhash.TimelineDigest(latest[0].Result) == idhash.TimelineDigest(result) {
		observability.RecordArchiveSkip(s.archiveBackend)
		s.logger.Printf("archive %s: unchanged since %s", subject, latest[0].ID)
		return
	}
	snap := &domain.TimelineSnapshot{
		ID:        uuid.NewString(),
		Subject:   subject,
		Chain:     result.Chain,
		CreatedAt: s.now().UTC(),
		Result:    result,
	}
	err = s.archive.Append(ctx, snap)
	observability.RecordArchiveWrite(s.archiveBackend, err)
	if err != nil {
		s.logger.Printf("archive %s: %v", snap.Subject, err)
	}
}

// Subject is the archive key for a result: the wallet when present,
// otherwise the sorted comma-joined contract list.
func Subject(r domain.TimelineResult) string {
	if r.Wallet != "" {
		return r.Wallet
	}
	return ContractSubject(r.Contracts)
}

// ContractSubject normalizes and sorts contracts into an archive subject.
func ContractSubject(contracts []string) string {
	sorted := normalizeContracts(contracts)
	slices.Sort(sorted)
	return strings.Join(sorted, ",")
}

// normalizeContracts lowercases and dedupes addresses, keeping input order
// and dropping anything that is not a hex address.
func normalizeContracts(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		addr := domain.NormalizeAddress(c)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

func statusOf(err error) string {
	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrResolutionFailed):
		return "unresolved"
	case errors.As(err, &upstream):
		return "upstream_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
