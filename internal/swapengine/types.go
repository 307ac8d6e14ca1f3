package swapengine

import (
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
)

// QuoteRequest asks for a price without committing to a swap. Amount is in
// base units on aggregator routes and in human units on the dedicated AMM.
type QuoteRequest struct {
	Chain       models.Chain `json:"chain"`
	InputToken  string       `json:"input_token"`
	OutputToken string       `json:"output_token"`
	Amount      string       `json:"amount"`
	SlippageBps uint16       `json:"slippage_bps"`
}

type SwapRequest struct {
	QuoteRequest
	// PriorityFeeMicroLamports overrides the pipeline default when non-zero.
	PriorityFeeMicroLamports uint64 `json:"priority_fee,omitempty"`
}

// AttemptStatus is the forward-only lifecycle of a swap attempt.
type AttemptStatus string

const (
	StatusCreated   AttemptStatus = "created"
	StatusQuoted    AttemptStatus = "quoted"
	StatusBuilt     AttemptStatus = "built"
	StatusSigned    AttemptStatus = "signed"
	StatusSubmitted AttemptStatus = "submitted"
	StatusConfirmed AttemptStatus = "confirmed"
	StatusFailed    AttemptStatus = "failed"
)

func (s AttemptStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// AttemptError is the failure recorded on a Failed attempt.
type AttemptError struct {
	Kind      string `json:"kind"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
	Signature string `json:"signature,omitempty"`
	// Sent is true when a transaction may have reached the chain and must
	// not be blindly resubmitted.
	Sent bool `json:"sent"`
}

// AttemptView is a point-in-time copy of an attempt.
type AttemptView struct {
	ID         string         `json:"id"`
	Chain      models.Chain   `json:"chain"`
	Backend    models.Backend `json:"backend,omitempty"`
	Status     AttemptStatus  `json:"status"`
	Wallet     string         `json:"wallet"`
	Request    SwapRequest    `json:"request"`
	Quote      *models.Quote  `json:"quote,omitempty"`
	Signatures []string       `json:"signatures"`
	Error      *AttemptError  `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
