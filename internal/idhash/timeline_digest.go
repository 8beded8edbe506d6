// Package idhash computes deterministic content hashes.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/MintFaced/timeline/internal/domain"
)

// TimelineDigest hashes the derived content of a result using SHA256:
// subject, contracts, totals and every milestone in order. The artist
// label and window start are excluded. Returns a 64-character hex string.
func TimelineDigest(r domain.TimelineResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s\n", r.Chain, r.Wallet, strings.Join(r.Contracts, ","))
	fmt.Fprintf(&b, "%d|%d|%d|%d|%s|%s\n",
		r.Totals.Mints,
		r.Totals.Sales,
		r.Totals.Contracts,
		r.Totals.PeakWindowSales,
		optionalInt(r.Totals.SoldCreatedCount),
		optionalInt(r.Totals.SoldBoughtCount),
	)
	for _, m := range r.Milestones {
		fmt.Fprintf(&b, "%s|%d|%s|%s|%s\n",
			m.ID,
			m.Timestamp.UnixNano(),
			m.Title,
			m.Detail,
			m.Kind,
		)
	}

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}
