package classify

import (
	"strings"

	"github.com/MintFaced/timeline/internal/domain"
)

// Rule is one row of a classification table. Rules are evaluated top to
// bottom; the first rule whose Match returns true decides the verdict.
type Rule struct {
	Name    string
	Match   func(label string, r domain.RawRecord) bool
	Verdict bool
}

func labelContains(sub string) func(string, domain.RawRecord) bool {
	return func(label string, _ domain.RawRecord) bool {
		return strings.Contains(label, sub)
	}
}

func labelLacks(sub string) func(string, domain.RawRecord) bool {
	return func(label string, _ domain.RawRecord) bool {
		return !strings.Contains(label, sub)
	}
}

func hasUSD(_ string, r domain.RawRecord) bool {
	_, ok := USDValue(r)
	return ok
}

func hasTokenID(_ string, r domain.RawRecord) bool {
	return TokenID(r) != ""
}

// SaleRules decides whether a record is a sale. Order matters: "listing"
// and "mint" labels are rejected before the USD fallback can accept them.
var SaleRules = []Rule{
	{Name: "label contains sale", Match: labelContains("sale"), Verdict: true},
	{Name: "label contains trade", Match: labelContains("trade"), Verdict: true},
	{Name: "label contains listing", Match: labelContains("listing"), Verdict: false},
	{Name: "label contains mint", Match: labelContains("mint"), Verdict: false},
	{Name: "usd value present", Match: hasUSD, Verdict: true},
}

// MintRules decides whether a record is a mint. A bare "mint" label with
// neither a token id nor an "nft" qualifier is rejected.
var MintRules = []Rule{
	{Name: "label lacks mint", Match: labelLacks("mint"), Verdict: false},
	{Name: "token id present", Match: hasTokenID, Verdict: true},
	{Name: "label contains nft", Match: labelContains("nft"), Verdict: true},
}

// Evaluate runs rules against r and returns the first matching verdict, or
// false when nothing matches.
func Evaluate(rules []Rule, r domain.RawRecord) bool {
	label := TypeLabel(r)
	for _, rule := range rules {
		if rule.Match(label, r) {
			return rule.Verdict
		}
	}
	return false
}

// IsSale reports whether r is a sale.
func IsSale(r domain.RawRecord) bool {
	return Evaluate(SaleRules, r)
}

// IsMint reports whether r is a mint.
func IsMint(r domain.RawRecord) bool {
	return Evaluate(MintRules, r)
}

// Classify returns the kind of r. Sale is tested first, so a label such as
// "mint_sale" classifies as a sale.
func Classify(r domain.RawRecord) domain.EventKind {
	switch {
	case IsSale(r):
		return domain.EventKindSale
	case IsMint(r):
		return domain.EventKindMint
	default:
		return domain.EventKindUnknown
	}
}
