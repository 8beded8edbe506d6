package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MintFaced/timeline/internal/domain"
)

// Endpoint labels used for metrics.
const (
	EndpointContractActivity = "nft_activity"
	EndpointWalletTxs        = "wallet_transactions"
	EndpointContractMetadata = "nft_contract"
	EndpointResolver         = "resolver"
)

// Activity types accepted by the NFT activity endpoint.
const (
	ActivityMint = "mint"
	ActivitySale = "sale"
)

// Page is one page of loosely-typed rows plus the cursor for the next one.
// Cursor is empty at the end of data.
type Page struct {
	Rows   []domain.RawRecord
	Cursor string
}

// ActivityRequest selects one page of a contract's NFT activity feed.
type ActivityRequest struct {
	Chain    string
	Contract string
	Type     string // "mint", "sale", ...
	Cursor   string
	Limit    int
}

// WalletRequest selects one page of a wallet's transaction feed.
type WalletRequest struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
	Cursor  string `json:"cursor,omitempty"`
	Limit   int    `json:"limit"`
}

// ContractActivity fetches one page of NFT activity for a contract.
func (c *Client) ContractActivity(ctx context.Context, req ActivityRequest) (*Page, error) {
	q := url.Values{}
	q.Set("chain", req.Chain)
	q.Set("contract_address", req.Contract)
	if req.Type != "" {
		q.Set("type", req.Type)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Cursor != "" {
		q.Set("cursor", req.Cursor)
	}

	var raw map[string]any
	if err := c.call(ctx, EndpointContractActivity, http.MethodGet, "/nft/activity?"+q.Encode(), nil, &raw); err != nil {
		return nil, err
	}
	return parsePage(raw), nil
}

// WalletTransactions fetches one page of transactions for a wallet.
func (c *Client) WalletTransactions(ctx context.Context, req WalletRequest) (*Page, error) {
	var raw map[string]any
	if err := c.call(ctx, EndpointWalletTxs, http.MethodPost, "/account/transactions", req, &raw); err != nil {
		return nil, err
	}
	return parsePage(raw), nil
}

// ContractMetadata fetches metadata for one NFT contract. The result is the
// unwrapped metadata object, or nil when the provider has none.
func (c *Client) ContractMetadata(ctx context.Context, chain, contract string) (domain.RawRecord, error) {
	q := url.Values{}
	q.Set("chain", chain)
	q.Set("contract_address", contract)

	var raw map[string]any
	if err := c.call(ctx, EndpointContractMetadata, http.MethodGet, "/nft/contract?"+q.Encode(), nil, &raw); err != nil {
		return nil, err
	}
	for _, key := range []string{"data", "result", "contract"} {
		if inner, ok := raw[key].(map[string]any); ok {
			return inner, nil
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// Row container keys, in probe order. Some endpoint versions nest the
// rows one level deeper under data.{items,...}.
var rowKeys = []string{"data", "result", "items", "activities", "transactions", "results"}

// Cursor keys, in probe order.
var cursorKeys = []string{"next_page", "cursor", "next_cursor", "next", "continuation", "page_key"}

func parsePage(raw map[string]any) *Page {
	page := &Page{}
	page.Rows, page.Cursor = extractRows(raw)
	if page.Cursor == "" {
		page.Cursor = extractCursor(raw)
	}
	return page
}

func extractRows(obj map[string]any) ([]domain.RawRecord, string) {
	for _, key := range rowKeys {
		switch v := obj[key].(type) {
		case []any:
			return toRecords(v), ""
		case map[string]any:
			if rows, cursor := extractRows(v); rows != nil {
				if cursor == "" {
					cursor = extractCursor(v)
				}
				return rows, cursor
			}
		}
	}
	return nil, ""
}

func toRecords(items []any) []domain.RawRecord {
	rows := make([]domain.RawRecord, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			rows = append(rows, m)
		}
	}
	return rows
}

func extractCursor(obj map[string]any) string {
	for _, key := range cursorKeys {
		switch v := obj[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
