package swaperr

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable failure category.
type Kind string

const (
	KindInvalidRequest Kind = "invalid_request"

	KindCatalogLoadWarning Kind = "catalog_load_warning"

	KindNoRoute              Kind = "quote_no_route"
	KindQuoteBackendRejected Kind = "quote_backend_rejected"
	KindQuoteNetwork         Kind = "quote_network"

	KindQuoteExpired         Kind = "build_quote_expired"
	KindBuildBackendRejected Kind = "build_backend_rejected"
	KindBuildNetwork         Kind = "build_network"

	KindUserRejected        Kind = "sign_user_rejected"
	KindUnsupportedEncoding Kind = "sign_unsupported_encoding"
	KindSignerMismatch      Kind = "sign_signer_mismatch"

	KindNetworkBlocked    Kind = "submit_network_blocked"
	KindInsufficientFunds Kind = "submit_insufficient_funds"
	KindSimulationFailed  Kind = "submit_simulation_failed"
	KindBlockhashExpired  Kind = "submit_blockhash_expired"
	KindSubmitRejected    Kind = "submit_rejected"
	KindSubmitNetwork     Kind = "submit_network"

	KindConfirmExpired    Kind = "confirm_expired"
	KindTransactionFailed Kind = "transaction_failed"

	KindCancelled Kind = "cancelled"
)

// Stage is the pipeline stage a kind belongs to.
type Stage string

const (
	StageRequest Stage = "request"
	StageCatalog Stage = "catalog"
	StageQuote   Stage = "quote"
	StageBuild   Stage = "build"
	StageSign    Stage = "sign"
	StageSubmit  Stage = "submit"
	StageConfirm Stage = "confirm"
)

var kindStages = map[Kind]Stage{
	KindInvalidRequest:       StageRequest,
	KindCancelled:            StageRequest,
	KindCatalogLoadWarning:   StageCatalog,
	KindNoRoute:              StageQuote,
	KindQuoteBackendRejected: StageQuote,
	KindQuoteNetwork:         StageQuote,
	KindQuoteExpired:         StageBuild,
	KindBuildBackendRejected: StageBuild,
	KindBuildNetwork:         StageBuild,
	KindUserRejected:         StageSign,
	KindUnsupportedEncoding:  StageSign,
	KindSignerMismatch:       StageSign,
	KindNetworkBlocked:       StageSubmit,
	KindInsufficientFunds:    StageSubmit,
	KindSimulationFailed:     StageSubmit,
	KindBlockhashExpired:     StageSubmit,
	KindSubmitRejected:       StageSubmit,
	KindSubmitNetwork:        StageSubmit,
	KindConfirmExpired:       StageConfirm,
	KindTransactionFailed:    StageConfirm,
}

func (k Kind) Stage() Stage {
	if s, ok := kindStages[k]; ok {
		return s
	}
	return StageRequest
}

// Error is a typed swap failure. Signature is set once a transaction may
// have reached the chain; see Sent.
type Error struct {
	Kind      Kind
	Message   string
	Signature string
	Cause     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Signature != "" {
		msg = fmt.Sprintf("%s (signature %s)", msg, e.Signature)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Sent reports whether the transaction may have been delivered to the chain.
// false means nothing was sent and a fresh attempt is safe.
func (e *Error) Sent() bool {
	return e.Signature != ""
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithSignature returns a copy of e carrying sig.
func (e *Error) WithSignature(sig string) *Error {
	cp := *e
	cp.Signature = sig
	return &cp
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" when err is not a swap error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
