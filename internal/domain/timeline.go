package domain

import "time"

// Milestone kinds.
const (
	MilestoneKindMint     = "mint"
	MilestoneKindSale     = "sale"
	MilestoneKindContract = "contract"
	MilestoneKindPeak     = "peak"
)

// Milestone is one notable, dated event in the timeline.
// ID is unique within one response and is the dedup key when merging.
type Milestone struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"date"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail"`
	Kind      string    `json:"kind"`
}

// Totals holds response counters. The provenance counters are only set in
// wallet mode.
type Totals struct {
	Mints            int  `json:"mints"`
	Sales            int  `json:"sales"`
	Contracts        int  `json:"contracts"`
	PeakWindowSales  int  `json:"peakWindowSales"`
	SoldCreatedCount *int `json:"soldCreatedCount,omitempty"`
	SoldBoughtCount  *int `json:"soldBoughtCount,omitempty"`
}

// Window describes the trailing window used in wallet mode.
type Window struct {
	Days  int       `json:"days"`
	Start time.Time `json:"start"`
}

// TimelineResult is the response payload.
type TimelineResult struct {
	Artist     string      `json:"artist"`
	Chain      string      `json:"chain"`
	Contracts  []string    `json:"contracts"`
	Totals     Totals      `json:"totals"`
	Milestones []Milestone `json:"milestones"`
	Window     *Window     `json:"window,omitempty"`
	Wallet     string      `json:"wallet,omitempty"`
	Name       string      `json:"name,omitempty"` // originally supplied name, when resolved
}

// Query is one timeline request.
type Query struct {
	Chain     string
	Address   string // wallet address or resolvable name
	Contracts []string
	Artist    string // display label for the subject
}

// TimelineSnapshot is an archived TimelineResult.
type TimelineSnapshot struct {
	ID        string
	Subject   string // wallet address, or sorted comma-joined contract list
	Chain     string
	CreatedAt time.Time
	Result    TimelineResult
}
