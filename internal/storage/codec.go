package storage

import (
	"encoding/json"
	"fmt"

	"github.com/MintFaced/timeline/internal/domain"
)

// EncodeResult serializes a timeline result for archive payload columns.
func EncodeResult(r domain.TimelineResult) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode timeline result: %w", err)
	}
	return data, nil
}

// DecodeResult is the inverse of EncodeResult.
func DecodeResult(data []byte) (domain.TimelineResult, error) {
	var r domain.TimelineResult
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.TimelineResult{}, fmt.Errorf("decode timeline result: %w", err)
	}
	return r, nil
}
