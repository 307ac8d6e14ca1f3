package rpc

import (
	"encoding/json"
	"fmt"
	"strings"
)

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// Logs returns simulation logs attached to a preflight failure, if any.
func (e *RPCError) Logs() []string {
	if len(e.Data) == 0 {
		return nil
	}
	var data struct {
		Logs []string `json:"logs"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil
	}
	return data.Logs
}

// Detail is the message plus any simulation logs, for classification.
func (e *RPCError) Detail() string {
	logs := e.Logs()
	if len(logs) == 0 {
		return e.Message
	}
	return e.Message + "\n" + strings.Join(logs, "\n")
}

// HTTPStatusError is a non-200 answer from the node.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// TransportError is a failure below HTTP. MaybeDelivered is false only when
// the request provably never left this process.
type TransportError struct {
	Err            error
	MaybeDelivered bool
}

func (e *TransportError) Error() string { return "request failed: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment string
}

// SignatureStatus is one entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

// Failed reports whether the transaction landed with an execution error.
func (s *SignatureStatus) Failed() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

// Reached reports whether the status satisfies commitment.
func (s *SignatureStatus) Reached(commitment string) bool {
	rank := map[string]int{"processed": 1, "confirmed": 2, "finalized": 3}
	want, ok := rank[commitment]
	if !ok {
		want = rank["confirmed"]
	}
	got := rank[s.ConfirmationStatus]
	if got == 0 && s.Confirmations == nil {
		// Nodes report a nil confirmation count once the block is rooted.
		got = rank["finalized"]
	}
	return got >= want
}

type SignatureStatusesResult struct {
	Value []*SignatureStatus `json:"value"`
}

type LatestBlockhashResult struct {
	Value struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	} `json:"value"`
}
