// Package quote obtains normalized swap quotes from the backend selected for a pair.
package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/httpx"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/metrics"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/sirupsen/logrus"
)

// Request is a quote request as the caller expresses it.
// Amount is a base-unit integer for the aggregator and a human decimal for
// the dedicated AMM.
type Request struct {
	InputToken  string
	OutputToken string
	Amount      string
	SlippageBps uint16
}

// Source is one backend's quote endpoint. Implementations fill the amount,
// impact, route and payload fields; Client stamps chain, backend and times.
type Source interface {
	QuoteSwap(ctx context.Context, req Request) (models.Quote, error)
}

type Config struct {
	Chain  models.Chain
	TTL    time.Duration
	Now    func() time.Time
	Logger *logrus.Logger
}

type Client struct {
	chain   models.Chain
	sources map[models.Backend]Source
	ttl     time.Duration
	now     func() time.Time
	logger  *logrus.Logger
}

func NewClient(cfg Config, sources map[models.Backend]Source) *Client {
	if cfg.TTL <= 0 {
		cfg.TTL = constants.DefaultQuoteTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Client{
		chain:   cfg.Chain,
		sources: sources,
		ttl:     cfg.TTL,
		now:     cfg.Now,
		logger:  cfg.Logger,
	}
}

// Supports reports whether a source is configured for backend.
func (c *Client) Supports(backend models.Backend) bool {
	_, ok := c.sources[backend]
	return ok
}

// GetQuote issues exactly one backend request and returns a normalized quote.
func (c *Client) GetQuote(ctx context.Context, backend models.Backend, req Request) (models.Quote, error) {
	if err := validate(req); err != nil {
		return models.Quote{}, err
	}
	src, ok := c.sources[backend]
	if !ok {
		return models.Quote{}, swaperr.New(swaperr.KindInvalidRequest,
			fmt.Sprintf("backend %s is not configured on %s", backend, c.chain))
	}

	if req.SlippageBps == 0 {
		req.SlippageBps = constants.DefaultSlippageBps
	}

	start := c.now()
	q, err := src.QuoteSwap(ctx, req)
	if err != nil {
		err = classify(err)
		metrics.QuotesTotal.WithLabelValues(string(c.chain), string(backend), string(swaperr.KindOf(err))).Inc()
		c.logger.WithFields(logrus.Fields{
			"chain":   c.chain,
			"backend": backend,
			"input":   req.InputToken,
			"output":  req.OutputToken,
		}).WithError(err).Warn("quote failed")
		return models.Quote{}, err
	}

	issued := c.now()
	q.Chain = c.chain
	q.Backend = backend
	q.InputToken = req.InputToken
	q.OutputToken = req.OutputToken
	if q.SlippageBps == 0 {
		q.SlippageBps = req.SlippageBps
	}
	q.IssuedAt = issued
	q.ExpiresAt = issued.Add(c.ttl)

	metrics.QuotesTotal.WithLabelValues(string(c.chain), string(backend), "ok").Inc()
	c.logger.WithFields(logrus.Fields{
		"chain":     c.chain,
		"backend":   backend,
		"in_amount": q.InputAmount,
		"out":       q.OutputAmount,
		"hops":      len(q.RoutePlan),
		"took":      issued.Sub(start),
	}).Debug("quote received")
	return q, nil
}

func validate(req Request) error {
	in := strings.TrimSpace(req.InputToken)
	out := strings.TrimSpace(req.OutputToken)
	switch {
	case in == "":
		return swaperr.New(swaperr.KindInvalidRequest, "input token is required")
	case out == "":
		return swaperr.New(swaperr.KindInvalidRequest, "output token is required")
	case in == out:
		return swaperr.New(swaperr.KindInvalidRequest, "input and output token must differ")
	case strings.TrimSpace(req.Amount) == "":
		return swaperr.New(swaperr.KindInvalidRequest, "amount is required")
	case req.SlippageBps > 10000:
		return swaperr.New(swaperr.KindInvalidRequest, "slippage must be at most 10000 bps")
	}
	return nil
}

// classify maps transport and HTTP failures onto quote error kinds.
func classify(err error) error {
	if _, ok := swaperr.As(err); ok {
		return err
	}
	if httpx.IsNetwork(err) {
		return swaperr.Wrap(swaperr.KindQuoteNetwork, "quote backend unreachable", err)
	}
	if se, ok := httpx.AsStatus(err); ok {
		if IsNoRouteMessage(se.Message()) {
			return swaperr.Wrap(swaperr.KindNoRoute, se.Message(), err)
		}
		return swaperr.Wrap(swaperr.KindQuoteBackendRejected, se.Message(), err)
	}
	return swaperr.Wrap(swaperr.KindQuoteBackendRejected, "unusable quote response", err)
}
