package retrieval

import (
	"testing"
	"time"

	"github.com/MintFaced/timeline/internal/classify"
	"github.com/MintFaced/timeline/internal/domain"
)

func TestFlattenTransactions_KeepsOwnProbedFields(t *testing.T) {
	tx := domain.RawRecord{
		"hash":            "0xparent",
		"block_timestamp": "2024-01-01T00:00:00Z",
		"nft_transfers": []any{
			map[string]any{"token_id": "1", "event_timestamp": "2024-06-01T00:00:00Z", "tx_hash": "0xown"},
			map[string]any{"token_id": "2", "created_at": "2024-05-01T00:00:00Z"},
			map[string]any{"token_id": "3", "time": "  "},
		},
	}

	rows := FlattenTransactions([]domain.RawRecord{tx})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	want := []time.Time{
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, w := range want {
		got, ok := classify.Timestamp(rows[i])
		if !ok {
			t.Fatalf("row %d: no timestamp", i)
		}
		if !got.Equal(w) {
			t.Errorf("row %d: expected %s, got %s", i, w, got)
		}
	}

	if _, ok := rows[0]["hash"]; ok {
		t.Errorf("row 0 has its own tx_hash and should not inherit hash: %v", rows[0])
	}
	if rows[1]["hash"] != "0xparent" {
		t.Errorf("row 1 should inherit the parent hash: %v", rows[1])
	}
}

func TestFlattenTransactions_NoSubRecords(t *testing.T) {
	tx := domain.RawRecord{"hash": "0xtx", "block_timestamp": "2024-01-01T00:00:00Z"}
	rows := FlattenTransactions([]domain.RawRecord{tx})
	if len(rows) != 1 || rows[0]["hash"] != "0xtx" {
		t.Errorf("expected the bare transaction, got %v", rows)
	}
}
