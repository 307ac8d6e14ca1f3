// Package txbuild turns a quote into the ordered unsigned transactions that
// execute it.
package txbuild

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/httpx"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/txcodec"
	"github.com/sirupsen/logrus"
)

// Request carries what a transaction backend needs besides the quote.
type Request struct {
	Quote                    models.Quote
	Wallet                   string
	PriorityFeeMicroLamports uint64
}

// Builder is one backend's transaction endpoint. It returns base64 payloads
// in execution order.
type Builder interface {
	SwapTransactions(ctx context.Context, req Request) ([]string, error)
}

type Config struct {
	Now    func() time.Time
	Logger *logrus.Logger
}

type Requester struct {
	builders map[models.Backend]Builder
	now      func() time.Time
	logger   *logrus.Logger
}

func NewRequester(cfg Config, builders map[models.Backend]Builder) *Requester {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Requester{builders: builders, now: cfg.Now, logger: cfg.Logger}
}

// BuildTransactions requests the swap transactions for q. An expired quote
// fails with QuoteExpired before any network call.
func (r *Requester) BuildTransactions(ctx context.Context, q models.Quote, wallet string, priorityFee uint64) (models.UnsignedTransactionSet, error) {
	if q.Expired(r.now()) {
		return models.UnsignedTransactionSet{}, swaperr.New(swaperr.KindQuoteExpired,
			fmt.Sprintf("quote expired at %s", q.ExpiresAt.Format(time.RFC3339)))
	}
	if wallet == "" {
		return models.UnsignedTransactionSet{}, swaperr.New(swaperr.KindInvalidRequest, "wallet address is required")
	}
	b, ok := r.builders[q.Backend]
	if !ok {
		return models.UnsignedTransactionSet{}, swaperr.New(swaperr.KindInvalidRequest,
			fmt.Sprintf("no transaction backend for %s", q.Backend))
	}

	payloads, err := b.SwapTransactions(ctx, Request{Quote: q, Wallet: wallet, PriorityFeeMicroLamports: priorityFee})
	if err != nil {
		return models.UnsignedTransactionSet{}, classify(err)
	}

	var txs []models.UnsignedTransaction
	switch q.Backend {
	case models.BackendDedicatedAmm:
		txs, err = legacySet(payloads, wallet)
	default:
		txs, err = aggregatorSet(payloads, wallet)
	}
	if err != nil {
		return models.UnsignedTransactionSet{}, err
	}

	r.logger.WithFields(logrus.Fields{
		"chain":   q.Chain,
		"backend": q.Backend,
		"count":   len(txs),
		"wallet":  wallet,
	}).Debug("swap transactions built")

	return models.UnsignedTransactionSet{Chain: q.Chain, Backend: q.Backend, Transactions: txs}, nil
}

// legacySet keeps every dedicated AMM payload in order; that backend only
// produces legacy transactions.
func legacySet(payloads []string, wallet string) ([]models.UnsignedTransaction, error) {
	if len(payloads) == 0 {
		return nil, swaperr.New(swaperr.KindBuildBackendRejected, "backend returned no transactions")
	}
	out := make([]models.UnsignedTransaction, 0, len(payloads))
	for i, p := range payloads {
		raw, d := txcodec.DecodeBase64(p)
		if d.Kind == txcodec.Unrecognized {
			return nil, swaperr.Wrap(swaperr.KindBuildBackendRejected,
				fmt.Sprintf("transaction %d is not decodable", i), d.Err)
		}
		out = append(out, models.UnsignedTransaction{
			Payload:        raw,
			Encoding:       models.EncodingLegacy,
			ExpectedSigner: wallet,
		})
	}
	return out, nil
}

func aggregatorSet(payloads []string, wallet string) ([]models.UnsignedTransaction, error) {
	if len(payloads) != 1 {
		return nil, swaperr.New(swaperr.KindBuildBackendRejected,
			fmt.Sprintf("expected one transaction, got %d", len(payloads)))
	}
	raw, d := txcodec.DecodeBase64(payloads[0])
	enc, ok := d.Kind.Encoding()
	if !ok {
		return nil, swaperr.Wrap(swaperr.KindBuildBackendRejected, "transaction is not decodable", d.Err)
	}
	return []models.UnsignedTransaction{{Payload: raw, Encoding: enc, ExpectedSigner: wallet}}, nil
}

func classify(err error) error {
	if _, ok := swaperr.As(err); ok {
		return err
	}
	if httpx.IsNetwork(err) {
		return swaperr.Wrap(swaperr.KindBuildNetwork, "transaction backend unreachable", err)
	}
	if se, ok := httpx.AsStatus(err); ok {
		return swaperr.Wrap(swaperr.KindBuildBackendRejected, se.Message(), err)
	}
	return swaperr.Wrap(swaperr.KindBuildBackendRejected, "unusable transaction response", err)
}
