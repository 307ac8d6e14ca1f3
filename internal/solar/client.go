// Package solar is the client for the Solar DEX, the dedicated AMM that
// holds liquidity for the designated token on Eclipse.
package solar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/httpx"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/quote"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/txbuild"
)

const txVersionLegacy = "LEGACY"

type Client struct {
	BaseURL string
	HTTP    *httpx.Client
}

func NewClient(baseURL string, h *httpx.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = constants.DefaultSolarBaseURL
	}
	if h == nil {
		h = httpx.New(httpx.Config{})
	}
	return &Client{BaseURL: baseURL, HTTP: h}
}

// ComputeResponse is the envelope of /compute/swap-base-in.
type ComputeResponse struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Version string          `json:"version"`
	Msg     string          `json:"msg,omitempty"`
	Data    json.RawMessage `json:"data"`
}

type transactionRequest struct {
	ComputeUnitPriceMicroLamports string          `json:"computeUnitPriceMicroLamports"`
	SwapResponse                  json.RawMessage `json:"swapResponse"`
	TxVersion                     string          `json:"txVersion"`
	Wallet                        string          `json:"wallet"`
	WrapSol                       bool            `json:"wrapSol"`
	UnwrapSol                     bool            `json:"unwrapSol"`
}

type transactionResponse struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Success bool   `json:"success"`
	Msg     string `json:"msg,omitempty"`
	Data    []struct {
		Transaction string `json:"transaction"`
	} `json:"data"`
}

// Compute requests a swap-base-in quote. amount is already in base units.
func (c *Client) Compute(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps uint16) (*ComputeResponse, json.RawMessage, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.FormatUint(uint64(slippageBps), 10))
	q.Set("txVersion", txVersionLegacy)

	var raw json.RawMessage
	if err := c.HTTP.GetJSON(ctx, c.BaseURL+"/compute/swap-base-in?"+q.Encode(), &raw); err != nil {
		return nil, nil, err
	}
	var out ComputeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nil, fmt.Errorf("failed to decode solar compute response: %w", err)
	}
	return &out, raw, nil
}

// QuoteSwap implements quote.Source. The human amount is scaled by a fixed
// nine decimals whatever the input token's real decimals are.
func (c *Client) QuoteSwap(ctx context.Context, req quote.Request) (models.Quote, error) {
	amount, err := quote.HumanToBaseUnits(req.Amount, constants.DedicatedAmmDecimals)
	if err != nil {
		return models.Quote{}, swaperr.Wrap(swaperr.KindInvalidRequest, "invalid dedicated AMM amount", err)
	}

	resp, raw, err := c.Compute(ctx, quote.NormalizeMint(req.InputToken), quote.NormalizeMint(req.OutputToken), amount, req.SlippageBps)
	if err != nil {
		return models.Quote{}, err
	}
	if !resp.Success {
		msg := resp.Msg
		if msg == "" {
			msg = "solar quote unsuccessful"
		}
		if quote.IsNoRouteMessage(msg) {
			return models.Quote{}, swaperr.New(swaperr.KindNoRoute, msg)
		}
		return models.Quote{}, swaperr.New(swaperr.KindQuoteBackendRejected, msg)
	}

	q, err := normalizeCompute(resp.Data)
	if err != nil {
		return models.Quote{}, err
	}
	if q.InputAmount == 0 {
		q.InputAmount = amount
	}
	q.BackendPayload = raw
	return q, nil
}

func normalizeCompute(data json.RawMessage) (models.Quote, error) {
	if len(data) == 0 || string(data) == "null" {
		return models.Quote{}, swaperr.New(swaperr.KindNoRoute, "solar returned no swap data")
	}
	m, err := quote.DecodeObject(data)
	if err != nil {
		return models.Quote{}, swaperr.Wrap(swaperr.KindQuoteBackendRejected, "malformed solar swap data", err)
	}

	out, err := quote.ParseBaseUnits(quote.FirstOf(m, "outputAmount", "outAmount", "amountOut"))
	if err != nil || out == 0 {
		return models.Quote{}, swaperr.New(swaperr.KindNoRoute, "solar quoted no output")
	}
	in, _ := quote.ParseBaseUnits(quote.FirstOf(m, "inputAmount", "inAmount"))
	minOut, _ := quote.ParseBaseUnits(quote.FirstOf(m, "otherAmountThreshold", "minOutputAmount"))

	var slippage uint16
	if v, err := quote.ParseBaseUnits(quote.FirstOf(m, "slippageBps")); err == nil && v <= 10000 {
		slippage = uint16(v)
	}

	var hops []models.Hop
	if plan, ok := quote.FirstOf(m, "routePlan", "route").([]any); ok {
		for _, step := range plan {
			sm, ok := step.(map[string]any)
			if !ok {
				continue
			}
			hops = append(hops, models.Hop{
				Venue:      "Solar",
				Pool:       quote.String(quote.FirstOf(sm, "poolId", "pool")),
				InputMint:  quote.String(sm["inputMint"]),
				OutputMint: quote.String(sm["outputMint"]),
			})
		}
	}
	if len(hops) == 0 {
		hops = []models.Hop{{Venue: "Solar"}}
	}

	return models.Quote{
		InputAmount:     in,
		OutputAmount:    out,
		MinOutputAmount: minOut,
		SlippageBps:     slippage,
		PriceImpactBps:  quote.ImpactPctToBps(quote.FirstOf(m, "priceImpactPct", "priceImpact")),
		RoutePlan:       hops,
	}, nil
}

// SwapTransactions implements txbuild.Builder. Solar may return setup
// transactions ahead of the swap; order is preserved.
func (c *Client) SwapTransactions(ctx context.Context, req txbuild.Request) ([]string, error) {
	q := req.Quote
	inputMint := quote.NormalizeMint(q.InputToken)
	outputMint := quote.NormalizeMint(q.OutputToken)

	fee := req.PriorityFeeMicroLamports
	if fee == 0 {
		fee = constants.DefaultPriorityFee
	}

	body := transactionRequest{
		ComputeUnitPriceMicroLamports: strconv.FormatUint(fee, 10),
		SwapResponse:                  q.BackendPayload,
		TxVersion:                     txVersionLegacy,
		Wallet:                        req.Wallet,
		WrapSol:                       inputMint == constants.WrappedSOLMint,
		UnwrapSol:                     outputMint == constants.WrappedSOLMint,
	}

	var resp transactionResponse
	if err := c.HTTP.PostJSON(ctx, c.BaseURL+"/transaction/swap-base-in", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Msg
		if msg == "" {
			msg = "solar transaction request unsuccessful"
		}
		return nil, swaperr.New(swaperr.KindBuildBackendRejected, msg)
	}

	out := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.Transaction == "" {
			return nil, swaperr.New(swaperr.KindBuildBackendRejected, "solar returned an empty transaction")
		}
		out = append(out, d.Transaction)
	}
	return out, nil
}
