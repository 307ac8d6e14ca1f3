package server

import "github.com/aman-zulfiqar/omega-swap-engine/internal/models"

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Kind    string `json:"kind,omitempty"`    // Swap error kind, when the failure has one
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK     bool           `json:"ok"`
	Chains []models.Chain `json:"chains"`
	Tokens int            `json:"tokens"`
}

type RouteResponse struct {
	Chain   models.Chain   `json:"chain"`
	Backend models.Backend `json:"backend"`
}

// SwapCreateRequest starts a swap signed by the server's wallet.
type SwapCreateRequest struct {
	Chain       models.Chain `json:"chain"`
	InputToken  string       `json:"input_token"`
	OutputToken string       `json:"output_token"`
	Amount      string       `json:"amount"`
	SlippageBps uint16       `json:"slippage_bps"`
	PriorityFee uint64       `json:"priority_fee"`
}

type SwapCreateResponse struct {
	ID string `json:"id"`
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key    string `json:"key"`
	Value  bool   `json:"value"`
	Reason string `json:"reason"`
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Value  bool   `json:"value"`
	Reason string `json:"reason"`
}

// HaltRequest pauses new swaps. Chain is a chain name or "all".
type HaltRequest struct {
	Chain  string `json:"chain"`
	Reason string `json:"reason"`
}
