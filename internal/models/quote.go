package models

import (
	"encoding/json"
	"time"
)

// Hop is one leg of a quoted route.
type Hop struct {
	Venue      string `json:"venue"`
	Pool       string `json:"pool,omitempty"`
	InputMint  string `json:"input_mint,omitempty"`
	OutputMint string `json:"output_mint,omitempty"`
}

// Quote is a normalized backend quote. It is a value object: a new quote
// supersedes an old one, nothing mutates it after issue.
type Quote struct {
	Chain           Chain     `json:"chain"`
	Backend         Backend   `json:"backend"`
	InputToken      string    `json:"input_token"`
	OutputToken     string    `json:"output_token"`
	InputAmount     uint64    `json:"input_amount"`
	OutputAmount    uint64    `json:"output_amount"`
	MinOutputAmount uint64    `json:"min_output_amount,omitempty"`
	SlippageBps     uint16    `json:"slippage_bps"`
	PriceImpactBps  int64     `json:"price_impact_bps"`
	RoutePlan       []Hop     `json:"route_plan"`
	IssuedAt        time.Time `json:"issued_at"`
	ExpiresAt       time.Time `json:"expires_at"`

	// BackendPayload is the backend's own quote document, echoed back
	// verbatim when requesting the swap transaction.
	BackendPayload json.RawMessage `json:"-"`
}

// Expired reports whether the quote can no longer be used to build a transaction.
func (q Quote) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}
