package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/MintFaced/timeline/internal/domain"
	"github.com/MintFaced/timeline/internal/storage"
)

// TimelineArchive is an in-memory implementation of storage.TimelineArchive.
type TimelineArchive struct {
	mu        sync.RWMutex
	byID      map[string]*domain.TimelineSnapshot
	bySubject map[string][]*domain.TimelineSnapshot // append order
}

// NewTimelineArchive creates a new in-memory timeline archive.
func NewTimelineArchive() *TimelineArchive {
	return &TimelineArchive{
		byID:      make(map[string]*domain.TimelineSnapshot),
		bySubject: make(map[string][]*domain.TimelineSnapshot),
	}
}

// Compile-time interface check.
var _ storage.TimelineArchive = (*TimelineArchive)(nil)

// Append stores a snapshot. Returns ErrDuplicateKey if the id exists.
func (a *TimelineArchive) Append(_ context.Context, s *domain.TimelineSnapshot) error {
	if err := storage.Validate(s); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.byID[s.ID]; exists {
		return storage.ErrDuplicateKey
	}

	snapCopy := copySnapshot(s)
	a.byID[s.ID] = snapCopy
	a.bySubject[s.Subject] = append(a.bySubject[s.Subject], snapCopy)
	return nil
}

// ListBySubject returns snapshots for subject, newest first. Snapshots with
// equal CreatedAt are returned in reverse append order.
func (a *TimelineArchive) ListBySubject(_ context.Context, subject string, limit int) ([]*domain.TimelineSnapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stored := a.bySubject[subject]
	result := make([]*domain.TimelineSnapshot, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		result = append(result, copySnapshot(stored[i]))
	}
	slices.SortStableFunc(result, func(x, y *domain.TimelineSnapshot) int {
		return y.CreatedAt.Compare(x.CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copySnapshot(s *domain.TimelineSnapshot) *domain.TimelineSnapshot {
	c := *s
	c.Result.Contracts = slices.Clone(s.Result.Contracts)
	c.Result.Milestones = slices.Clone(s.Result.Milestones)
	if s.Result.Window != nil {
		w := *s.Result.Window
		c.Result.Window = &w
	}
	return &c
}
