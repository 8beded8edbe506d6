package domain

import (
	"math"
	"time"
)

// RawRecord is an untyped provider record. Field names vary by endpoint
// version, so it is only ever read through the probing tables in classify.
type RawRecord = map[string]any

// EventKind is the classified kind of a canonical event.
type EventKind string

// Event kinds.
const (
	EventKindMint    EventKind = "mint"
	EventKindSale    EventKind = "sale"
	EventKindUnknown EventKind = "unknown"
)

// CanonicalEvent is the normalized view of a RawRecord.
// Timestamp is always set; addresses are lowercase 0x-prefixed hex or empty.
type CanonicalEvent struct {
	Timestamp time.Time
	Kind      EventKind
	TokenKey  string   // "contract:tokenId", empty if either half is missing
	USDValue  *float64 // nil if no numeric value could be extracted
	From      string
	To        string
	Label     string // display string for the underlying token
	Contract  string
	TxHash    string
}

// HasUSD reports whether the event carries a finite USD value.
func (e CanonicalEvent) HasUSD() bool {
	return e.USDValue != nil && isFinite(*e.USDValue)
}

// USD returns the USD value, or 0 when absent.
func (e CanonicalEvent) USD() float64 {
	if e.USDValue == nil {
		return 0
	}
	return *e.USDValue
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ContractRecord is metadata about one contract.
type ContractRecord struct {
	Address   string
	Name      string
	CreatedAt *time.Time // many upstream responses omit it
}
