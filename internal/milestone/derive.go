// Package milestone derives timeline milestones from classified events.
// Everything here is pure: the same input always yields the same output.
package milestone

import (
	"fmt"
	"slices"
	"time"

	"github.com/MintFaced/timeline/internal/domain"
)

// Milestone titles.
const (
	TitleGenesisMint    = "Genesis Mint"
	TitleContractCreate = "Contract Created"
	TitleFirstSale      = "First Sale"
	TitleMostRecentSale = "Most Recent Sale"
	TitleBiggestSale    = "Biggest Sale"
	TitlePeakWindow     = "Peak Sales Window"
	TitleBiggestSaleDay = "Biggest Sale Day"
	TitleSoldCreated    = "Token Sold (Created by Wallet)"
	TitleSoldBought     = "Token Sold (Previously Bought)"
)

// Derivation is the output of one derivation mode.
type Derivation struct {
	Milestones []domain.Milestone
	Totals     domain.Totals
	Contracts  []string
	Peak       *Peak
}

// ContractSetInput is the input for contract-set mode.
type ContractSetInput struct {
	Mints     []domain.CanonicalEvent
	Sales     []domain.CanonicalEvent
	Contracts []domain.ContractRecord
	PeakSpan  time.Duration // zero means DefaultPeakSpan
}

// ContractSet derives milestones for an explicit contract list.
func ContractSet(in ContractSetInput) Derivation {
	span := in.PeakSpan
	if span <= 0 {
		span = DefaultPeakSpan
	}

	contracts := make([]string, 0, len(in.Contracts))
	for _, c := range in.Contracts {
		contracts = append(contracts, c.Address)
	}

	peak, hasPeak := PeakWindow(in.Sales, span)

	d := Derivation{
		Milestones: Merge(
			genesisMint(in.Mints),
			contractsCreated(in.Contracts, time.Time{}),
			saleMilestones(in.Sales),
			peakMilestone(peak, hasPeak, span),
		),
		Totals: domain.Totals{
			Mints:     len(in.Mints),
			Sales:     len(in.Sales),
			Contracts: len(contracts),
		},
		Contracts: contracts,
	}
	if hasPeak {
		d.Totals.PeakWindowSales = peak.Count
		d.Peak = &peak
	}
	return d
}

// WalletInput is the input for wallet mode.
type WalletInput struct {
	Wallet string
	// Events is every classified event from the wallet feed, covering the
	// whole lookback fetched upstream.
	Events []domain.CanonicalEvent
	// Contracts is metadata for the contracts returned by WalletContracts.
	Contracts   []domain.ContractRecord
	WindowStart time.Time
	PeakSpan    time.Duration // zero means DefaultPeakSpan
}

// WalletContracts returns the contract addresses touched by activity at or
// after windowStart, in first-seen order.
func WalletContracts(events []domain.CanonicalEvent, windowStart time.Time) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ev := range events {
		if ev.Contract == "" || ev.Timestamp.Before(windowStart) {
			continue
		}
		if _, ok := seen[ev.Contract]; ok {
			continue
		}
		seen[ev.Contract] = struct{}{}
		out = append(out, ev.Contract)
	}
	return out
}

// Wallet derives milestones for one wallet over the recent window.
//
// Sales count only when the wallet is the sender and the token key is
// known. Provenance is decided against every token the wallet minted in
// the fetched history, not just the window, so a work minted earlier and
// sold inside the window is still "created".
func Wallet(in WalletInput) Derivation {
	span := in.PeakSpan
	if span <= 0 {
		span = DefaultPeakSpan
	}

	minted := make(map[string]struct{})
	var windowMints, windowSales []domain.CanonicalEvent
	for _, ev := range in.Events {
		switch ev.Kind {
		case domain.EventKindMint:
			if ev.To != "" && ev.To != in.Wallet {
				continue
			}
			if ev.TokenKey != "" {
				minted[ev.TokenKey] = struct{}{}
			}
			if !ev.Timestamp.Before(in.WindowStart) {
				windowMints = append(windowMints, ev)
			}
		case domain.EventKindSale:
			if ev.From != in.Wallet || ev.TokenKey == "" || ev.Timestamp.Before(in.WindowStart) {
				continue
			}
			windowSales = append(windowSales, ev)
		}
	}
	slices.SortStableFunc(windowSales, func(a, b domain.CanonicalEvent) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	provenance, created, bought := provenanceMilestones(windowSales, minted)
	peak, hasPeak := PeakWindow(windowSales, span)

	contracts := make([]string, 0, len(in.Contracts))
	for _, c := range in.Contracts {
		contracts = append(contracts, c.Address)
	}

	d := Derivation{
		Milestones: Merge(
			genesisMint(windowMints),
			contractsCreated(in.Contracts, in.WindowStart),
			saleMilestones(windowSales),
			peakMilestone(peak, hasPeak, span),
			biggestSaleDay(windowSales),
			provenance,
		),
		Totals: domain.Totals{
			Mints:            len(windowMints),
			Sales:            len(windowSales),
			Contracts:        len(contracts),
			SoldCreatedCount: &created,
			SoldBoughtCount:  &bought,
		},
		Contracts: contracts,
	}
	if hasPeak {
		d.Totals.PeakWindowSales = peak.Count
		d.Peak = &peak
	}
	return d
}

func genesisMint(mints []domain.CanonicalEvent) []domain.Milestone {
	i := earliest(mints)
	if i < 0 {
		return nil
	}
	return []domain.Milestone{{
		ID:        "genesis-mint",
		Timestamp: mints[i].Timestamp,
		Title:     TitleGenesisMint,
		Detail:    mints[i].Label + " minted",
		Kind:      domain.MilestoneKindMint,
	}}
}

// contractsCreated emits one milestone per contract with a known creation
// time at or after notBefore. Contracts without a timestamp are skipped.
func contractsCreated(contracts []domain.ContractRecord, notBefore time.Time) []domain.Milestone {
	var out []domain.Milestone
	for _, c := range contracts {
		if c.CreatedAt == nil || c.CreatedAt.Before(notBefore) {
			continue
		}
		name := c.Name
		if name == "" {
			name = c.Address
		}
		out = append(out, domain.Milestone{
			ID:        "contract-created-" + c.Address,
			Timestamp: *c.CreatedAt,
			Title:     TitleContractCreate,
			Detail:    name + " deployed",
			Kind:      domain.MilestoneKindContract,
		})
	}
	return out
}

func saleMilestones(sales []domain.CanonicalEvent) []domain.Milestone {
	var out []domain.Milestone
	if i := earliest(sales); i >= 0 {
		out = append(out, saleMilestone("first-sale", TitleFirstSale, sales[i]))
	}
	if i := biggest(sales); i >= 0 {
		out = append(out, saleMilestone("biggest-sale", TitleBiggestSale, sales[i]))
	}
	if i := latest(sales); i >= 0 {
		out = append(out, saleMilestone("most-recent-sale", TitleMostRecentSale, sales[i]))
	}
	return out
}

func saleMilestone(id, title string, ev domain.CanonicalEvent) domain.Milestone {
	return domain.Milestone{
		ID:        id,
		Timestamp: ev.Timestamp,
		Title:     title,
		Detail:    saleDetail(ev.Label, ev.USDValue),
		Kind:      domain.MilestoneKindSale,
	}
}

func peakMilestone(p Peak, ok bool, span time.Duration) []domain.Milestone {
	if !ok {
		return nil
	}
	days := int(span / (24 * time.Hour))
	return []domain.Milestone{{
		ID:        "peak-window",
		Timestamp: p.Start,
		Title:     TitlePeakWindow,
		Detail: fmt.Sprintf("%s within %d days (%s to %s)",
			plural(p.Count, "sale"), days, formatDate(p.Start), formatDate(p.End)),
		Kind: domain.MilestoneKindPeak,
	}}
}

type dayBucket struct {
	day   time.Time
	total float64
	count int
}

// biggestSaleDay buckets sales by UTC day and picks the day with the
// highest USD total. Ties go to the higher count, then the earlier day.
func biggestSaleDay(sales []domain.CanonicalEvent) []domain.Milestone {
	if len(sales) == 0 {
		return nil
	}

	buckets := make(map[time.Time]*dayBucket)
	for _, ev := range sales {
		t := ev.Timestamp.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		b, ok := buckets[day]
		if !ok {
			b = &dayBucket{day: day}
			buckets[day] = b
		}
		if ev.HasUSD() {
			b.total += ev.USD()
		}
		b.count++
	}

	var best *dayBucket
	for _, b := range buckets {
		switch {
		case best == nil,
			b.total > best.total,
			b.total == best.total && b.count > best.count,
			b.total == best.total && b.count == best.count && b.day.Before(best.day):
			best = b
		}
	}

	return []domain.Milestone{{
		ID:        "biggest-sale-day",
		Timestamp: best.day,
		Title:     TitleBiggestSaleDay,
		Detail:    fmt.Sprintf("%s across %s", formatUSD(best.total), plural(best.count, "sale")),
		Kind:      domain.MilestoneKindSale,
	}}
}

// provenanceMilestones emits one milestone per sale and counts how many
// sold tokens the wallet created versus bought.
func provenanceMilestones(sales []domain.CanonicalEvent, minted map[string]struct{}) ([]domain.Milestone, int, int) {
	out := make([]domain.Milestone, 0, len(sales))
	created, bought := 0, 0
	for i, ev := range sales {
		title := TitleSoldBought
		if _, ok := minted[ev.TokenKey]; ok {
			title = TitleSoldCreated
			created++
		} else {
			bought++
		}
		out = append(out, domain.Milestone{
			ID:        fmt.Sprintf("sold-%d-%s", i, ev.TokenKey),
			Timestamp: ev.Timestamp,
			Title:     title,
			Detail:    saleDetail(ev.Label, ev.USDValue),
			Kind:      domain.MilestoneKindSale,
		})
	}
	return out, created, bought
}

// earliest returns the index of the first event with the smallest
// timestamp, or -1.
func earliest(events []domain.CanonicalEvent) int {
	idx := -1
	for i, ev := range events {
		if idx < 0 || ev.Timestamp.Before(events[idx].Timestamp) {
			idx = i
		}
	}
	return idx
}

// latest returns the index of the first event with the largest timestamp,
// or -1.
func latest(events []domain.CanonicalEvent) int {
	idx := -1
	for i, ev := range events {
		if idx < 0 || ev.Timestamp.After(events[idx].Timestamp) {
			idx = i
		}
	}
	return idx
}

// biggest returns the index of the first sale with the largest finite USD
// value, or -1 when none has one.
func biggest(events []domain.CanonicalEvent) int {
	idx := -1
	for i, ev := range events {
		if !ev.HasUSD() {
			continue
		}
		if idx < 0 || ev.USD() > events[idx].USD() {
			idx = i
		}
	}
	return idx
}
