package retrieval

import (
	"github.com/MintFaced/timeline/internal/classify"
	"github.com/MintFaced/timeline/internal/domain"
)

// subRecordKeys hold nested transfer/activity lists on a transaction.
var subRecordKeys = []string{
	"nft_transfers",
	"token_transfers",
	"transfers",
	"activities",
	"nft_activity",
	"events",
}

// FlattenTransactions turns each transaction into one row per nested
// sub-record. Transactions without sub-records are kept as a single row.
func FlattenTransactions(txs []domain.RawRecord) []domain.RawRecord {
	out := make([]domain.RawRecord, 0, len(txs))
	for _, tx := range txs {
		subs := subRecords(tx)
		if len(subs) == 0 {
			out = append(out, tx)
			continue
		}
		for _, sub := range subs {
			row := make(domain.RawRecord, len(sub)+2)
			for k, v := range sub {
				row[k] = v
			}
			inherit(row, tx, classify.TimestampKeys)
			inherit(row, tx, classify.TxHashKeys)
			out = append(out, row)
		}
	}
	return out
}

func subRecords(tx domain.RawRecord) []domain.RawRecord {
	var subs []domain.RawRecord
	for _, key := range subRecordKeys {
		list, ok := tx[key].([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				subs = append(subs, m)
			}
		}
	}
	return subs
}

// inherit copies the parent's first present key when row has none of keys.
func inherit(row, parent domain.RawRecord, keys []string) {
	if classify.FirstPresentKey(row, keys) != "" {
		return
	}
	if k := classify.FirstPresentKey(parent, keys); k != "" {
		row[k] = parent[k]
	}
}
