// Package classify maps heterogeneous provider records onto canonical events.
//
// Provider endpoints disagree on field names, so every logical field is read
// through an ordered accessor list below. The first accessor that yields a
// non-null value wins. This table is the single place to extend when a new
// provider shape shows up.
package classify

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/MintFaced/timeline/internal/domain"
)

// accessor extracts one candidate value from a record.
type accessor func(domain.RawRecord) any

// key reads a top-level field.
func key(name string) accessor {
	return func(r domain.RawRecord) any {
		return r[name]
	}
}

// path reads a nested field, e.g. path("price", "usd") for {"price":{"usd":1}}.
func path(keys ...string) accessor {
	return func(r domain.RawRecord) any {
		var cur any = r
		for _, k := range keys {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = m[k]
		}
		return cur
	}
}

// keys builds top-level accessors for names, in order.
func keys(names []string) []accessor {
	out := make([]accessor, len(names))
	for i, n := range names {
		out[i] = key(n)
	}
	return out
}

// TimestampKeys are the top-level fields probed for an event time: block
// time first, then event/record times.
var TimestampKeys = []string{
	"block_timestamp",
	"timestamp",
	"block_time",
	"blockTimestamp",
	"event_timestamp",
	"transaction_time",
	"time",
	"created_at",
}

// TxHashKeys are the top-level fields probed for a transaction hash.
var TxHashKeys = []string{"transaction_hash", "tx_hash", "hash"}

var (
	timestampFields = keys(TimestampKeys)

	// typeFields: the activity type label.
	typeFields = []accessor{
		key("type"),
		key("event_type"),
		key("activity_type"),
		key("transaction_type"),
		key("category"),
		key("kind"),
	}

	// tokenIDFields: token id, flat or nested under token/nft.
	tokenIDFields = []accessor{
		key("token_id"),
		key("tokenId"),
		key("token_id_str"),
		path("token", "token_id"),
		path("token", "id"),
		path("nft", "token_id"),
	}

	// contractFields: NFT contract address.
	contractFields = []accessor{
		key("contract_address"),
		key("contractAddress"),
		key("collection_address"),
		key("token_address"),
		path("token", "contract_address"),
		path("nft", "contract_address"),
		path("collection", "address"),
	}

	// usdDirectFields are tried before usdNestedFields.
	usdDirectFields = []accessor{
		key("usd_value"),
		key("value_usd"),
		key("price_usd"),
		key("usd_price"),
		key("total_usd"),
		key("sale_price_usd"),
	}

	usdNestedFields = []accessor{
		path("price", "usd"),
		path("value", "usd"),
		path("currency_price", "usd"),
	}

	fromFields = []accessor{
		key("from_address"),
		key("from"),
		key("seller_address"),
		key("seller"),
	}

	toFields = []accessor{
		key("to_address"),
		key("to"),
		key("buyer_address"),
		key("buyer"),
	}

	collectionFields = []accessor{
		key("collection_name"),
		key("contract_name"),
		path("collection", "name"),
		path("token", "collection_name"),
		key("name"),
	}

	txHashFields = keys(TxHashKeys)
)

// first returns the first non-null value produced by fields.
func first(r domain.RawRecord, fields []accessor) any {
	for _, f := range fields {
		if v := f(r); v != nil {
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			return v
		}
	}
	return nil
}

// FirstPresentKey returns the first of names whose value in r is non-null
// and not blank, or "" when none is.
func FirstPresentKey(r domain.RawRecord, names []string) string {
	for _, n := range names {
		if first(r, []accessor{key(n)}) != nil {
			return n
		}
	}
	return ""
}

// firstString is first() rendered as a string.
func firstString(r domain.RawRecord, fields []accessor) string {
	return asString(first(r, fields))
}

// asString renders scalars; integral floats lose their fraction.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

// asFloat parses numbers and numeric strings. ok is false for non-finite
// or non-numeric values.
func asFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02",
}

// millisThreshold separates unix seconds from unix milliseconds.
const millisThreshold = 1e12

// asTime parses RFC3339-ish strings and unix seconds or milliseconds.
func asTime(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	f, ok := asFloat(v)
	if !ok || f <= 0 {
		return time.Time{}, false
	}
	if f >= millisThreshold {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

// Timestamp parses the first present timestamp field. A present but
// unparseable value is not retried against later fields.
func Timestamp(r domain.RawRecord) (time.Time, bool) {
	v := first(r, timestampFields)
	if v == nil {
		return time.Time{}, false
	}
	return asTime(v)
}

// TypeLabel is the lowercased activity type label.
func TypeLabel(r domain.RawRecord) string {
	return strings.ToLower(firstString(r, typeFields))
}

// TokenID is the first present token id, or "".
func TokenID(r domain.RawRecord) string {
	return firstString(r, tokenIDFields)
}

// ContractAddress is the lowercased contract address, or "".
func ContractAddress(r domain.RawRecord) string {
	return strings.ToLower(firstString(r, contractFields))
}

// USDValue extracts a finite USD value, direct fields first.
func USDValue(r domain.RawRecord) (float64, bool) {
	for _, fields := range [][]accessor{usdDirectFields, usdNestedFields} {
		for _, f := range fields {
			if v, ok := asFloat(f(r)); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// TokenKey is "contract:tokenId", or "" when either half is missing.
func TokenKey(r domain.RawRecord) string {
	contract := ContractAddress(r)
	id := TokenID(r)
	if contract == "" || id == "" {
		return ""
	}
	return contract + ":" + id
}

// Label is the display string for the record's token.
func Label(r domain.RawRecord) string {
	collection := firstString(r, collectionFields)
	id := TokenID(r)
	switch {
	case collection != "" && id != "":
		return collection + " #" + id
	case id != "":
		return "Token #" + id
	case collection != "":
		return collection
	default:
		return "Artwork"
	}
}
