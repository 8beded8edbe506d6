package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MintFaced/timeline/internal/domain"
	"github.com/MintFaced/timeline/internal/storage"
)

func testSnapshot(id, subject string, createdAt time.Time) *domain.TimelineSnapshot {
	created := 2
	bought := 1
	return &domain.TimelineSnapshot{
		ID:        id,
		Subject:   subject,
		Chain:     "ethereum",
		CreatedAt: createdAt,
		Result: domain.TimelineResult{
			Artist:    "Artist",
			Chain:     "ethereum",
			Contracts: []string{"0xc1"},
			Totals: domain.Totals{
				Sales:            3,
				SoldCreatedCount: &created,
				SoldBoughtCount:  &bought,
			},
			Milestones: []domain.Milestone{
				{ID: "first-sale", Timestamp: createdAt.Add(-48 * time.Hour), Title: "First Sale", Detail: "Token #1 sold for $10.00", Kind: "sale"},
			},
			Window: &domain.Window{Days: 30, Start: createdAt.AddDate(0, 0, -30)},
			Wallet: subject,
		},
	}
}

func TestTimelineArchive_AppendAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	archive := NewTimelineArchive(pool)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"snap-1", "snap-2", "snap-3"} {
		require.NoError(t, archive.Append(ctx, testSnapshot(id, "0xwallet", base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, archive.Append(ctx, testSnapshot("snap-other", "0xother", base)))

	all, err := archive.ListBySubject(ctx, "0xwallet", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "snap-3", all[0].ID)
	assert.Equal(t, "snap-1", all[2].ID)

	got := all[2]
	assert.Equal(t, base, got.CreatedAt)
	assert.Equal(t, "ethereum", got.Chain)
	assert.Equal(t, []string{"0xc1"}, got.Result.Contracts)
	require.Len(t, got.Result.Milestones, 1)
	assert.True(t, base.Add(-48*time.Hour).Equal(got.Result.Milestones[0].Timestamp))
	require.NotNil(t, got.Result.Totals.SoldCreatedCount)
	assert.Equal(t, 2, *got.Result.Totals.SoldCreatedCount)
	require.NotNil(t, got.Result.Window)
	assert.Equal(t, 30, got.Result.Window.Days)

	limited, err := archive.ListBySubject(ctx, "0xwallet", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "snap-3", limited[0].ID)
}

func TestTimelineArchive_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	archive := NewTimelineArchive(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, archive.Append(ctx, testSnapshot("dup", "0xwallet", now)))
	err := archive.Append(ctx, testSnapshot("dup", "0xwallet", now))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTimelineArchive_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	archive := NewTimelineArchive(pool)
	err := archive.Append(context.Background(), testSnapshot("id", "", time.Now()))
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
