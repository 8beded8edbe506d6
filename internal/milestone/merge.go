package milestone

import (
	"slices"

	"github.com/MintFaced/timeline/internal/domain"
)

// Merge concatenates milestone lists, keeps the first milestone for each
// id, drops undated entries and sorts ascending by timestamp. The sort is
// stable, so equal timestamps keep their insertion order.
func Merge(lists ...[]domain.Milestone) []domain.Milestone {
	seen := make(map[string]struct{})
	out := make([]domain.Milestone, 0)
	for _, list := range lists {
		for _, m := range list {
			if m.Timestamp.IsZero() {
				continue
			}
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Milestone) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}
