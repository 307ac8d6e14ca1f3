package jupiter

import (
	"context"
	"strconv"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/quote"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/txbuild"
)

// QuoteSwap implements quote.Source for the aggregator path.
func (c *Client) QuoteSwap(ctx context.Context, req quote.Request) (models.Quote, error) {
	amount, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil || amount == 0 {
		return models.Quote{}, swaperr.New(swaperr.KindInvalidRequest, "aggregator amount must be a positive base-unit integer")
	}

	resp, raw, err := c.Quote(ctx, QuoteRequest{
		InputMint:   quote.NormalizeMint(req.InputToken),
		OutputMint:  quote.NormalizeMint(req.OutputToken),
		Amount:      req.Amount,
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		return models.Quote{}, err
	}
	q, err := normalizeQuote(resp)
	if err != nil {
		return models.Quote{}, err
	}
	q.BackendPayload = raw
	return q, nil
}

func normalizeQuote(resp *QuoteResponse) (models.Quote, error) {
	if resp.Error != "" {
		if quote.IsNoRouteMessage(resp.Error) {
			return models.Quote{}, swaperr.New(swaperr.KindNoRoute, resp.Error)
		}
		return models.Quote{}, swaperr.New(swaperr.KindQuoteBackendRejected, resp.Error)
	}
	if resp.OutAmount == "" || len(resp.RoutePlan) == 0 {
		return models.Quote{}, swaperr.New(swaperr.KindNoRoute, "aggregator returned no route")
	}

	out, err := strconv.ParseUint(resp.OutAmount, 10, 64)
	if err != nil {
		return models.Quote{}, swaperr.Wrap(swaperr.KindQuoteBackendRejected, "invalid outAmount", err)
	}
	if out == 0 {
		return models.Quote{}, swaperr.New(swaperr.KindNoRoute, "aggregator quoted zero output")
	}
	in, err := strconv.ParseUint(resp.InAmount, 10, 64)
	if err != nil {
		return models.Quote{}, swaperr.Wrap(swaperr.KindQuoteBackendRejected, "invalid inAmount", err)
	}
	var minOut uint64
	if resp.OtherAmountThreshold != "" {
		minOut, _ = strconv.ParseUint(resp.OtherAmountThreshold, 10, 64)
	}

	hops := make([]models.Hop, 0, len(resp.RoutePlan))
	for _, step := range resp.RoutePlan {
		hops = append(hops, models.Hop{
			Venue:      step.SwapInfo.Label,
			Pool:       step.SwapInfo.AmmKey,
			InputMint:  step.SwapInfo.InputMint,
			OutputMint: step.SwapInfo.OutputMint,
		})
	}

	return models.Quote{
		InputAmount:     in,
		OutputAmount:    out,
		MinOutputAmount: minOut,
		SlippageBps:     resp.SlippageBps,
		PriceImpactBps:  quote.ImpactPctToBps(resp.PriceImpactPct),
		RoutePlan:       hops,
	}, nil
}

// SwapTransactions implements txbuild.Builder.
func (c *Client) SwapTransactions(ctx context.Context, req txbuild.Request) ([]string, error) {
	q := req.Quote
	body := SwapRequest{
		InputMint:       quote.NormalizeMint(q.InputToken),
		OutputMint:      quote.NormalizeMint(q.OutputToken),
		Amount:          strconv.FormatUint(q.InputAmount, 10),
		UserPublicKey:   req.Wallet,
		SlippageBps:     q.SlippageBps,
		QuoteResponse:   q.BackendPayload,
		DynamicSlippage: true,
	}
	if c.MaxPriorityLamports > 0 {
		body.PrioritizationFeeLamports = &PrioritizationFeeLamports{
			PriorityLevelWithMaxLamports: PriorityLevel{MaxLamports: c.MaxPriorityLamports, PriorityLevel: "veryHigh"},
		}
	}

	resp, err := c.Swap(ctx, body)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Transaction == "" {
		msg := resp.Error
		if msg == "" {
			msg = "relayer did not return a transaction"
		}
		return nil, swaperr.New(swaperr.KindBuildBackendRejected, msg)
	}
	return []string{resp.Transaction}, nil
}
