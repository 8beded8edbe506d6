package classify

import (
	"github.com/MintFaced/timeline/internal/domain"
)

var (
	contractNameFields = []accessor{
		key("name"),
		key("contract_name"),
		key("collection_name"),
		key("symbol"),
	}

	contractCreatedFields = []accessor{
		key("deployed_at"),
		key("created_at"),
		key("creation_timestamp"),
		key("deploy_block_time"),
		key("block_timestamp"),
	}
)

// ContractRecord extracts contract metadata. CreatedAt stays nil when no
// creation time is present.
func ContractRecord(address string, r domain.RawRecord) domain.ContractRecord {
	rec := domain.ContractRecord{Address: address}
	if r == nil {
		return rec
	}
	rec.Name = firstString(r, contractNameFields)
	if v := first(r, contractCreatedFields); v != nil {
		if ts, ok := asTime(v); ok {
			rec.CreatedAt = &ts
		}
	}
	return rec
}
