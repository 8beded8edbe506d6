package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MintFaced/timeline/internal/domain"
	"github.com/MintFaced/timeline/internal/storage"
)

// TimelineArchive implements storage.TimelineArchive using PostgreSQL.
// Results are stored as jsonb.
type TimelineArchive struct {
	pool *Pool
}

// NewTimelineArchive creates a new TimelineArchive.
func NewTimelineArchive(pool *Pool) *TimelineArchive {
	return &TimelineArchive{pool: pool}
}

// Compile-time interface check.
var _ storage.TimelineArchive = (*TimelineArchive)(nil)

// Append stores a snapshot. Returns ErrDuplicateKey if the id exists.
func (a *TimelineArchive) Append(ctx context.Context, s *domain.TimelineSnapshot) error {
	if err := storage.Validate(s); err != nil {
		return err
	}

	payload, err := storage.EncodeResult(s.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO timeline_snapshots (snapshot_id, subject, chain, created_at, result)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = a.pool.Exec(ctx, query, s.ID, s.Subject, s.Chain, s.CreatedAt, payload)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert timeline snapshot: %w", err)
	}
	return nil
}

// ListBySubject returns snapshots for subject, newest first.
func (a *TimelineArchive) ListBySubject(ctx context.Context, subject string, limit int) ([]*domain.TimelineSnapshot, error) {
	// LIMIT NULL means no limit.
	var lim *int64
	if limit > 0 {
		n := int64(limit)
		lim = &n
	}

	query := `
		SELECT snapshot_id, subject, chain, created_at, result
		FROM timeline_snapshots
		WHERE subject = $1
		ORDER BY created_at DESC, snapshot_id DESC
		LIMIT $2
	`
	rows, err := a.pool.Query(ctx, query, subject, lim)
	if err != nil {
		return nil, fmt.Errorf("query by subject: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshots(rows pgx.Rows) ([]*domain.TimelineSnapshot, error) {
	snapshots := make([]*domain.TimelineSnapshot, 0)
	for rows.Next() {
		var s domain.TimelineSnapshot
		var payload []byte
		if err := rows.Scan(&s.ID, &s.Subject, &s.Chain, &s.CreatedAt, &payload); err != nil {
			return nil, fmt.Errorf("scan timeline snapshot row: %w", err)
		}
		s.CreatedAt = s.CreatedAt.UTC()

		result, err := storage.DecodeResult(payload)
		if err != nil {
			return nil, err
		}
		s.Result = result
		snapshots = append(snapshots, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline snapshot rows: %w", err)
	}
	return snapshots, nil
}
