package classify

import (
	"github.com/MintFaced/timeline/internal/domain"
	"github.com/MintFaced/timeline/internal/observability"
)

// Normalize maps r onto a canonical event with its classified kind.
// ok is false when r has no parseable timestamp.
func Normalize(r domain.RawRecord) (domain.CanonicalEvent, bool) {
	return normalizeAs(r, Classify(r))
}

func normalizeAs(r domain.RawRecord, kind domain.EventKind) (domain.CanonicalEvent, bool) {
	ts, ok := Timestamp(r)
	if !ok {
		return domain.CanonicalEvent{}, false
	}

	ev := domain.CanonicalEvent{
		Timestamp: ts,
		Kind:      kind,
		TokenKey:  TokenKey(r),
		From:      domain.NormalizeAddress(firstString(r, fromFields)),
		To:        domain.NormalizeAddress(firstString(r, toFields)),
		Label:     Label(r),
		Contract:  ContractAddress(r),
		TxHash:    firstString(r, txHashFields),
	}
	if v, ok := USDValue(r); ok {
		ev.USDValue = &v
	}
	return ev, true
}

// NormalizeAll normalizes and classifies every record, dropping those
// without a timestamp. dropped counts the records removed.
func NormalizeAll(records []domain.RawRecord) (events []domain.CanonicalEvent, dropped int) {
	events = make([]domain.CanonicalEvent, 0, len(records))
	for _, r := range records {
		ev, ok := Normalize(r)
		if !ok {
			dropped++
			continue
		}
		observability.RecordClassified(string(ev.Kind))
		events = append(events, ev)
	}
	observability.RecordDropped(dropped)
	return events, dropped
}

// FilterFeed normalizes records from a single-kind feed (the per-contract
// mint or sale query) and keeps only those the matching test accepts.
// Records of any other kind are discarded.
func FilterFeed(records []domain.RawRecord, kind domain.EventKind) []domain.CanonicalEvent {
	var accept func(domain.RawRecord) bool
	switch kind {
	case domain.EventKindMint:
		accept = IsMint
	case domain.EventKindSale:
		accept = IsSale
	default:
		return nil
	}

	events := make([]domain.CanonicalEvent, 0, len(records))
	dropped := 0
	for _, r := range records {
		if !accept(r) {
			continue
		}
		ev, ok := normalizeAs(r, kind)
		if !ok {
			dropped++
			continue
		}
		observability.RecordClassified(string(kind))
		events = append(events, ev)
	}
	observability.RecordDropped(dropped)
	return events
}
