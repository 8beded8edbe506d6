package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/MintFaced/timeline/internal/domain"
	"github.com/MintFaced/timeline/internal/storage"
)

// TimelineArchive implements storage.TimelineArchive using ClickHouse.
//
// Each snapshot is written twice: once as a payload row in
// timeline_snapshots, and once per milestone in timeline_milestones for
// analytical queries across subjects.
type TimelineArchive struct {
	conn *Conn
}

// NewTimelineArchive creates a new TimelineArchive.
func NewTimelineArchive(conn *Conn) *TimelineArchive {
	return &TimelineArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.TimelineArchive = (*TimelineArchive)(nil)

// Append stores a snapshot. Returns ErrDuplicateKey if the id exists.
func (a *TimelineArchive) Append(ctx context.Context, s *domain.TimelineSnapshot) error {
	if err := storage.Validate(s); err != nil {
		return err
	}

	// MergeTree does not enforce uniqueness.
	exists, err := a.exists(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	payload, err := storage.EncodeResult(s.Result)
	if err != nil {
		return err
	}
	createdAtMs := uint64(s.CreatedAt.UnixMilli())

	if len(s.Result.Milestones) > 0 {
		if err := a.appendMilestones(ctx, s, createdAtMs); err != nil {
			return err
		}
	}

	// Written last: readers only see snapshots whose milestones landed.
	err = a.conn.Exec(ctx, `
		INSERT INTO timeline_snapshots (snapshot_id, subject, chain, created_at_ms, payload)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.Subject, s.Chain, createdAtMs, string(payload))
	if err != nil {
		return fmt.Errorf("insert timeline snapshot: %w", err)
	}
	return nil
}

// ListBySubject returns snapshots for subject, newest first.
func (a *TimelineArchive) ListBySubject(ctx context.Context, subject string, limit int) ([]*domain.TimelineSnapshot, error) {
	query := `
		SELECT snapshot_id, subject, chain, created_at_ms, payload
		FROM timeline_snapshots
		WHERE subject = ?
		ORDER BY created_at_ms DESC, snapshot_id DESC
	`
	args := []any{subject}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, uint64(limit))
	}

	rows, err := a.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query by subject: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// MilestoneCounts returns how many archived milestones of each kind exist
// for subject, across all snapshots.
func (a *TimelineArchive) MilestoneCounts(ctx context.Context, subject string) (map[string]uint64, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT kind, count(*) FROM timeline_milestones
		WHERE subject = ?
		GROUP BY kind
	`, subject)
	if err != nil {
		return nil, fmt.Errorf("query milestone counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var kind string
		var n uint64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan milestone count: %w", err)
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestone counts: %w", err)
	}
	return counts, nil
}

func (a *TimelineArchive) appendMilestones(ctx context.Context, s *domain.TimelineSnapshot, createdAtMs uint64) error {
	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO timeline_milestones (
			snapshot_id, subject, chain, created_at_ms,
			position, milestone_id, milestone_ts_ms, title, detail, kind
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for i, m := range s.Result.Milestones {
		err = batch.Append(
			s.ID, s.Subject, s.Chain, createdAtMs,
			uint32(i), m.ID, m.Timestamp.UnixMilli(), m.Title, m.Detail, m.Kind,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func (a *TimelineArchive) exists(ctx context.Context, id string) (bool, error) {
	var count uint64
	err := a.conn.QueryRow(ctx, `SELECT count(*) FROM timeline_snapshots WHERE snapshot_id = ?`, id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows used by scanners.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSnapshots(rows chRows) ([]*domain.TimelineSnapshot, error) {
	snapshots := make([]*domain.TimelineSnapshot, 0)
	for rows.Next() {
		var s domain.TimelineSnapshot
		var createdAtMs uint64
		var payload string
		if err := rows.Scan(&s.ID, &s.Subject, &s.Chain, &createdAtMs, &payload); err != nil {
			return nil, fmt.Errorf("scan timeline snapshot row: %w", err)
		}
		s.CreatedAt = time.UnixMilli(int64(createdAtMs)).UTC()

		result, err := storage.DecodeResult([]byte(payload))
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
