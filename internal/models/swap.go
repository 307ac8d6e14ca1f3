// ============================================================================
// models/swap.go
// ============================================================================
package models

import "time"

// SwapEventType names a transition of a swap attempt.
type SwapEventType string

const (
	EventQuoted    SwapEventType = "quoted"
	EventBuilt     SwapEventType = "built"
	EventSigned    SwapEventType = "signed"
	EventSubmitted SwapEventType = "submitted"
	EventConfirmed SwapEventType = "confirmed"
	EventFailed    SwapEventType = "failed"
)

// SwapEvent is emitted on every attempt state transition.
type SwapEvent struct {
	AttemptID string        `json:"attempt_id"`
	Type      SwapEventType `json:"type"`
	Status    string        `json:"status"`
	Chain     Chain         `json:"chain"`
	Backend   Backend       `json:"backend,omitempty"`
	TokenIn   string        `json:"token_in"`
	TokenOut  string        `json:"token_out"`
	Signature string        `json:"signature,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
