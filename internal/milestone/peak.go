package milestone

import (
	"slices"
	"time"

	"github.com/MintFaced/timeline/internal/domain"
)

// DefaultPeakSpan is the width of the peak sales window.
const DefaultPeakSpan = 90 * 24 * time.Hour

// Peak is the densest window of sales.
type Peak struct {
	Count int
	Start time.Time
	End   time.Time
}

// PeakWindow finds the maximum number of events whose timestamps fit in any
// window of the given span. It sorts a copy of the timestamps and then runs
// a single two-pointer pass. Ties keep the earliest window. ok is false for
// empty input.
func PeakWindow(events []domain.CanonicalEvent, span time.Duration) (Peak, bool) {
	if len(events) == 0 {
		return Peak{}, false
	}

	ts := make([]time.Time, len(events))
	for i, ev := range events {
		ts[i] = ev.Timestamp
	}
	slices.SortStableFunc(ts, func(a, b time.Time) int { return a.Compare(b) })

	var best Peak
	left := 0
	for right := range ts {
		for ts[right].Sub(ts[left]) > span {
			left++
		}
		if n := right - left + 1; n > best.Count {
			best = Peak{Count: n, Start: ts[left], End: ts[right]}
		}
	}
	return best, true
}
