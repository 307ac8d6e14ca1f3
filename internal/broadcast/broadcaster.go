package broadcast

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/metrics"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/rpc"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/sirupsen/logrus"
)

// Node is the JSON-RPC surface the broadcaster needs. *rpc.Client satisfies it.
type Node interface {
	SendTransaction(ctx context.Context, payload []byte, opts rpc.SendOptions) (string, error)
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*rpc.SignatureStatus, error)
}

// SignatureWaiter is satisfied by *rpc.WSClient.
type SignatureWaiter interface {
	WaitForSignature(ctx context.Context, sig, commitment string) (rpc.SignatureResult, error)
}

type Outcome int

const (
	OutcomeConfirmed Outcome = iota + 1
	OutcomeExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// TxState is the lifecycle of one transaction inside a set.
type TxState string

const (
	TxPending   TxState = "pending"
	TxSubmitted TxState = "submitted"
	TxConfirmed TxState = "confirmed"
	TxExpired   TxState = "expired"
	TxRejected  TxState = "rejected"
)

type Config struct {
	Node Node
	// WS is optional. When set, confirmation races a signature subscription
	// against status polling.
	WS     SignatureWaiter
	Logger *logrus.Logger

	MaxSubmitAttempts int
	RetryBackoff      time.Duration
	// Preflight asks the node to simulate before accepting. Off by default.
	Preflight      bool
	Commitment     string
	ConfirmTimeout time.Duration
	PollInitial    time.Duration
	PollMax        time.Duration
}

type Broadcaster struct {
	node   Node
	ws     SignatureWaiter
	logger *logrus.Logger

	maxAttempts    int
	retryBackoff   time.Duration
	preflight      bool
	commitment     string
	confirmTimeout time.Duration
	pollInitial    time.Duration
	pollMax        time.Duration
}

func New(cfg Config) *Broadcaster {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.MaxSubmitAttempts <= 0 {
		cfg.MaxSubmitAttempts = constants.MaxSubmitAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = constants.SubmitRetryBackoff
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = constants.DefaultConfirmTimeout
	}
	if cfg.PollInitial <= 0 {
		cfg.PollInitial = constants.ConfirmInitialBackoff
	}
	if cfg.PollMax < cfg.PollInitial {
		cfg.PollMax = constants.ConfirmMaxBackoff
	}
	return &Broadcaster{
		node:           cfg.Node,
		ws:             cfg.WS,
		logger:         cfg.Logger,
		maxAttempts:    cfg.MaxSubmitAttempts,
		retryBackoff:   cfg.RetryBackoff,
		preflight:      cfg.Preflight,
		commitment:     cfg.Commitment,
		confirmTimeout: cfg.ConfirmTimeout,
		pollInitial:    cfg.PollInitial,
		pollMax:        cfg.PollMax,
	}
}

// Submit sends tx and returns the signature the node accepted. Only
// transport failures, 429 and 5xx are retried; an accepted payload is never
// resent.
func (b *Broadcaster) Submit(ctx context.Context, tx models.SignedTransaction) (string, error) {
	opts := rpc.SendOptions{SkipPreflight: !b.preflight, PreflightCommitment: b.commitment}

	for attempt := 1; ; attempt++ {
		sig, err := b.node.SendTransaction(ctx, tx.Payload, opts)
		if err == nil {
			if sig == "" {
				sig = tx.Signature
			}
			if tx.Signature != "" && sig != tx.Signature {
				b.logger.WithFields(logrus.Fields{
					"expected": tx.Signature,
					"got":      sig,
				}).Warn("node returned unexpected signature")
			}
			b.logger.WithFields(logrus.Fields{
				"signature": sig,
				"attempt":   attempt,
			}).Info("transaction submitted")
			return sig, nil
		}

		retry, serr := classify(err, tx.Signature, attempt >= b.maxAttempts)
		if !retry {
			return "", serr
		}

		metrics.SubmitRetries.Inc()
		wait := b.retryBackoff * time.Duration(attempt)
		b.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": wait,
		}).WithError(err).Warn("retrying sendTransaction")

		select {
		case <-ctx.Done():
			return "", swaperr.Wrap(swaperr.KindSubmitNetwork, "submission interrupted", ctx.Err()).WithSignature(tx.Signature)
		case <-time.After(wait):
		}
	}
}

// classify maps a sendTransaction failure to a swap error and reports
// whether another attempt is allowed.
func classify(err error, sig string, last bool) (bool, *swaperr.Error) {
	var statusErr *rpc.HTTPStatusError
	var rpcErr *rpc.RPCError
	var transportErr *rpc.TransportError

	switch {
	case errors.As(err, &rpcErr):
		return false, classifyRPC(rpcErr)

	case errors.As(err, &statusErr):
		code := statusErr.StatusCode
		body := strings.ToLower(statusErr.Body)
		switch {
		case code == http.StatusForbidden || strings.Contains(body, "forbidden"):
			return false, swaperr.Wrap(swaperr.KindNetworkBlocked, "RPC endpoint refused the request", err)
		case code == http.StatusTooManyRequests:
			if last {
				return false, swaperr.Wrap(swaperr.KindNetworkBlocked, "RPC endpoint is rate limiting", err)
			}
			return true, nil
		case code >= http.StatusInternalServerError:
			if last {
				return false, swaperr.Wrap(swaperr.KindSubmitNetwork, fmt.Sprintf("RPC endpoint unavailable (status %d)", code), err).WithSignature(sig)
			}
			return true, nil
		default:
			return false, swaperr.Wrap(swaperr.KindSubmitRejected, fmt.Sprintf("RPC endpoint returned status %d", code), err)
		}

	case errors.As(err, &transportErr):
		if !last {
			return true, nil
		}
		e := swaperr.Wrap(swaperr.KindSubmitNetwork, "could not reach RPC endpoint", err)
		if transportErr.MaybeDelivered {
			e = e.WithSignature(sig)
		}
		return false, e

	default:
		return false, swaperr.Wrap(swaperr.KindSubmitNetwork, "submission failed", err).WithSignature(sig)
	}
}

func classifyRPC(e *rpc.RPCError) *swaperr.Error {
	detail := strings.ToLower(e.Detail())
	switch {
	case strings.Contains(detail, "forbidden"):
		return swaperr.Wrap(swaperr.KindNetworkBlocked, e.Message, e)
	case strings.Contains(detail, "insufficient funds"), strings.Contains(detail, "insufficient lamports"):
		return swaperr.Wrap(swaperr.KindInsufficientFunds, e.Message, e)
	case strings.Contains(detail, "blockhash not found"):
		return swaperr.Wrap(swaperr.KindBlockhashExpired, e.Message, e)
	case e.Code == -32002 || strings.Contains(detail, "simulation failed"):
		return swaperr.Wrap(swaperr.KindSimulationFailed, e.Message, e)
	default:
		return swaperr.Wrap(swaperr.KindSubmitRejected, e.Message, e)
	}
}

type confirmation struct {
	failed bool
	detail string
}

// Confirm waits until sig reaches the configured commitment. Running out of
// time is reported as OutcomeExpired, not as an error.
func (b *Broadcaster) Confirm(ctx context.Context, sig string, timeout time.Duration) (Outcome, error) {
	if timeout <= 0 {
		timeout = b.confirmTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan confirmation, 2)
	if b.ws != nil {
		go func() {
			res, err := b.ws.WaitForSignature(cctx, sig, b.commitment)
			if err != nil {
				if cctx.Err() == nil {
					b.logger.WithError(err).WithField("signature", sig).Debug("signature subscription ended, relying on polling")
				}
				return
			}
			results <- confirmation{failed: res.Failed(), detail: string(res.Err)}
		}()
	}
	go b.poll(cctx, sig, results)

	select {
	case r := <-results:
		if r.failed {
			metrics.ConfirmOutcomes.WithLabelValues("failed").Inc()
			return 0, swaperr.New(swaperr.KindTransactionFailed, "transaction failed on chain: "+r.detail).WithSignature(sig)
		}
		metrics.ConfirmOutcomes.WithLabelValues("confirmed").Inc()
		b.logger.WithField("signature", sig).Info("transaction confirmed")
		return OutcomeConfirmed, nil
	case <-cctx.Done():
		metrics.ConfirmOutcomes.WithLabelValues("expired").Inc()
		b.logger.WithFields(logrus.Fields{
			"signature": sig,
			"timeout":   timeout,
		}).Warn("confirmation timed out")
		return OutcomeExpired, nil
	}
}

func (b *Broadcaster) poll(ctx context.Context, sig string, results chan<- confirmation) {
	backoff := b.pollInitial
	for {
		statuses, err := b.node.GetSignatureStatuses(ctx, sig)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.WithError(err).WithField("signature", sig).Debug("status poll failed")
		} else if len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Failed() {
				results <- confirmation{failed: true, detail: string(st.Err)}
				return
			}
			if st.Reached(b.commitment) {
				results <- confirmation{}
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > b.pollMax {
			backoff = b.pollMax
		}
	}
}

// Hooks are invoked synchronously as each transaction progresses.
type Hooks struct {
	OnSubmitted func(index int, sig string)
	OnConfirmed func(index int, sig string)
}

type Result struct {
	Index     int
	Signature string
	State     TxState
}

// Broadcast submits and confirms set strictly in order. The first failure
// stops the remaining transactions, which stay Pending. Every accepted
// signature is appended to log.
func (b *Broadcaster) Broadcast(ctx context.Context, set models.SignedTransactionSet, log *models.SignatureLog, hooks Hooks) ([]Result, error) {
	results := make([]Result, len(set.Transactions))
	for i := range results {
		results[i] = Result{Index: i, State: TxPending}
	}

	for i, tx := range set.Transactions {
		sig, err := b.Submit(ctx, tx)
		if err != nil {
			results[i].State = TxRejected
			if e, ok := swaperr.As(err); ok {
				results[i].Signature = e.Signature
			}
			return results, err
		}

		results[i].Signature = sig
		results[i].State = TxSubmitted
		if log != nil {
			log.Append(sig)
		}
		if hooks.OnSubmitted != nil {
			hooks.OnSubmitted(i, sig)
		}

		outcome, err := b.Confirm(ctx, sig, 0)
		if err != nil {
			results[i].State = TxRejected
			return results, err
		}
		if outcome == OutcomeExpired {
			results[i].State = TxExpired
			return results, swaperr.New(swaperr.KindConfirmExpired,
				fmt.Sprintf("transaction %d of %d not confirmed in time", i+1, len(set.Transactions))).WithSignature(sig)
		}

		results[i].State = TxConfirmed
		if hooks.OnConfirmed != nil {
			hooks.OnConfirmed(i, sig)
		}
	}

	return results, nil
}
