package storage

import (
	"context"

	"github.com/MintFaced/timeline/internal/domain"
)

// TimelineArchive is an append-only record of built timelines.
type TimelineArchive interface {
	// Append stores a snapshot. Returns ErrInvalidInput for a nil snapshot
	// or an empty id or subject, and ErrDuplicateKey if the id exists.
	Append(ctx context.Context, s *domain.TimelineSnapshot) error

	// ListBySubject returns up to limit snapshots for subject, newest
	// first. A limit <= 0 returns all of them.
	ListBySubject(ctx context.Context, subject string, limit int) ([]*domain.TimelineSnapshot, error)
}

// Validate checks the fields every archive requires.
func Validate(s *domain.TimelineSnapshot) error {
	if s == nil || s.ID == "" || s.Subject == "" {
		return ErrInvalidInput
	}
	return nil
}
