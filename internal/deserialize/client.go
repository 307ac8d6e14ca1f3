// Package deserialize is the client for the Deserialize aggregator on Eclipse.
package deserialize

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/httpx"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/quote"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/txbuild"
)

type Client struct {
	BaseURL string
	HTTP    *httpx.Client
}

func NewClient(baseURL string, h *httpx.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = constants.DefaultDeserializeURL
	}
	if h == nil {
		h = httpx.New(httpx.Config{})
	}
	return &Client{BaseURL: baseURL, HTTP: h}
}

type quoteRequest struct {
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	Amount      string `json:"amount"`
	SlippageBps uint16 `json:"slippageBps"`
}

// QuoteSwap implements quote.Source.
func (c *Client) QuoteSwap(ctx context.Context, req quote.Request) (models.Quote, error) {
	amount, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil || amount == 0 {
		return models.Quote{}, swaperr.New(swaperr.KindInvalidRequest, "aggregator amount must be a positive base-unit integer")
	}

	body := quoteRequest{
		InputMint:   quote.NormalizeMint(req.InputToken),
		OutputMint:  quote.NormalizeMint(req.OutputToken),
		Amount:      req.Amount,
		SlippageBps: req.SlippageBps,
	}
	var raw json.RawMessage
	if err := c.HTTP.PostJSON(ctx, c.BaseURL+"/quote", body, &raw); err != nil {
		return models.Quote{}, err
	}

	q, payload, err := normalizeQuote(raw)
	if err != nil {
		return models.Quote{}, err
	}
	if q.InputAmount == 0 {
		q.InputAmount = amount
	}
	q.BackendPayload = payload
	return q, nil
}

// normalizeQuote accepts the quote either at the top level or under
// "data"/"quote", and returns that object as the payload for /swap.
func normalizeQuote(raw json.RawMessage) (models.Quote, json.RawMessage, error) {
	top, err := quote.DecodeObject(raw)
	if err != nil {
		return models.Quote{}, nil, swaperr.Wrap(swaperr.KindQuoteBackendRejected, "malformed aggregator quote", err)
	}
	if msg := quote.String(quote.FirstOf(top, "error", "message")); msg != "" && quote.FirstOf(top, "outAmount", "outputAmount", "amountOut") == nil {
		if quote.IsNoRouteMessage(msg) {
			return models.Quote{}, nil, swaperr.New(swaperr.KindNoRoute, msg)
		}
		return models.Quote{}, nil, swaperr.New(swaperr.KindQuoteBackendRejected, msg)
	}
	if s, ok := top["success"].(bool); ok && !s {
		return models.Quote{}, nil, swaperr.New(swaperr.KindQuoteBackendRejected, "aggregator quote unsuccessful")
	}

	m := top
	payload := raw
	for _, k := range []string{"data", "quote"} {
		if inner, ok := top[k].(map[string]any); ok {
			m = inner
			b, err := json.Marshal(inner)
			if err != nil {
				return models.Quote{}, nil, swaperr.Wrap(swaperr.KindQuoteBackendRejected, "re-encode quote", err)
			}
			payload = b
			break
		}
	}

	outV := quote.FirstOf(m, "outAmount", "outputAmount", "amountOut", "out_amount")
	if outV == nil {
		return models.Quote{}, nil, swaperr.New(swaperr.KindNoRoute, "aggregator returned no output amount")
	}
	out, err := quote.ParseBaseUnits(outV)
	if err != nil {
		return models.Quote{}, nil, swaperr.Wrap(swaperr.KindQuoteBackendRejected, "invalid output amount", err)
	}
	if out == 0 {
		return models.Quote{}, nil, swaperr.New(swaperr.KindNoRoute, "aggregator quoted zero output")
	}
	in, _ := quote.ParseBaseUnits(quote.FirstOf(m, "inAmount", "inputAmount", "amountIn", "amount"))
	minOut, _ := quote.ParseBaseUnits(quote.FirstOf(m, "otherAmountThreshold", "minOutAmount", "minimumOutputAmount"))

	return models.Quote{
		InputAmount:     in,
		OutputAmount:    out,
		MinOutputAmount: minOut,
		PriceImpactBps:  quote.ImpactPctToBps(quote.FirstOf(m, "priceImpactPct", "priceImpact")),
		RoutePlan:       routePlan(quote.FirstOf(m, "routePlan", "route", "routes")),
	}, payload, nil
}

func routePlan(v any) []models.Hop {
	steps, ok := v.([]any)
	if !ok {
		return []models.Hop{{Venue: "Deserialize"}}
	}
	hops := make([]models.Hop, 0, len(steps))
	for _, s := range steps {
		sm, ok := s.(map[string]any)
		if !ok {
			continue
		}
		if info, ok := sm["swapInfo"].(map[string]any); ok {
			sm = info
		}
		venue := quote.String(quote.FirstOf(sm, "label", "dex", "venue", "amm"))
		if venue == "" {
			venue = "Deserialize"
		}
		hops = append(hops, models.Hop{
			Venue:      venue,
			Pool:       quote.String(quote.FirstOf(sm, "ammKey", "pool", "poolId", "poolAddress")),
			InputMint:  quote.String(sm["inputMint"]),
			OutputMint: quote.String(sm["outputMint"]),
		})
	}
	if len(hops) == 0 {
		return []models.Hop{{Venue: "Deserialize"}}
	}
	return hops
}

// SwapTransactions implements txbuild.Builder. The request body is the quote
// payload with the wallet added.
func (c *Client) SwapTransactions(ctx context.Context, req txbuild.Request) ([]string, error) {
	body := map[string]any{}
	if len(req.Quote.BackendPayload) > 0 {
		m, err := quote.DecodeObject(req.Quote.BackendPayload)
		if err != nil {
			return nil, swaperr.Wrap(swaperr.KindBuildBackendRejected, "quote payload is not an object", err)
		}
		body = m
	}
	body["wallet"] = req.Wallet

	var raw json.RawMessage
	if err := c.HTTP.PostJSON(ctx, c.BaseURL+"/swap", body, &raw); err != nil {
		return nil, err
	}
	m, err := quote.DecodeObject(raw)
	if err != nil {
		return nil, swaperr.Wrap(swaperr.KindBuildBackendRejected, "malformed swap response", err)
	}
	if tx := quote.String(quote.FirstOf(m, "transaction", "swapTransaction", "tx")); tx != "" {
		return []string{tx}, nil
	}
	if list, ok := m["transactions"].([]any); ok {
		out := make([]string, 0, len(list))
		for _, v := range list {
			if s := quote.String(v); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	}
	msg := quote.String(quote.FirstOf(m, "error", "message"))
	if msg == "" {
		msg = "aggregator returned no transaction"
	}
	return nil, swaperr.New(swaperr.KindBuildBackendRejected, msg)
}
