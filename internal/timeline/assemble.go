// Package timeline assembles derived milestones into response payloads and
// runs the end-to-end request flow.
package timeline

import (
	"github.com/MintFaced/timeline/internal/domain"
	"github.com/MintFaced/timeline/internal/milestone"
)

// Extras carries the wallet-mode and name-resolution fields of a result.
type Extras struct {
	Wallet       string
	Window       *domain.Window
	ResolvedName string // name as originally supplied
}

// Assemble packages a derivation into a TimelineResult. It does not
// reorder or filter milestones.
func Assemble(q domain.Query, d milestone.Derivation, x Extras) domain.TimelineResult {
	contracts := d.Contracts
	if contracts == nil {
		contracts = []string{}
	}
	milestones := d.Milestones
	if milestones == nil {
		milestones = []domain.Milestone{}
	}

	return domain.TimelineResult{
		Artist:     artistLabel(q, x),
		Chain:      q.Chain,
		Contracts:  contracts,
		Totals:     d.Totals,
		Milestones: milestones,
		Window:     x.Window,
		Wallet:     x.Wallet,
		Name:       x.ResolvedName,
	}
}

func artistLabel(q domain.Query, x Extras) string {
	switch {
	case q.Artist != "":
		return q.Artist
	case x.ResolvedName != "":
		return x.ResolvedName
	default:
		return x.Wallet
	}
}
