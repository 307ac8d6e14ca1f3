package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/httpx"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
)

// Client talks to the relayer that fronts the Jupiter swap API.
type Client struct {
	BaseURL string
	HTTP    *httpx.Client

	// MaxPriorityLamports caps the priority fee the relayer asks Jupiter for.
	MaxPriorityLamports uint64
}

func NewClient(baseURL string, h *httpx.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if h == nil {
		h = httpx.New(httpx.Config{})
	}
	return &Client{BaseURL: baseURL, HTTP: h}
}

// Quote posts to /jupiter/quote and returns both the typed response and the
// raw document, which is replayed verbatim on /jupiter/swap.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, json.RawMessage, error) {
	if strings.TrimSpace(req.InputMint) == "" {
		return nil, nil, fmt.Errorf("inputMint is required")
	}
	if strings.TrimSpace(req.OutputMint) == "" {
		return nil, nil, fmt.Errorf("outputMint is required")
	}
	if strings.TrimSpace(req.Amount) == "" {
		return nil, nil, fmt.Errorf("amount is required")
	}

	var raw json.RawMessage
	if err := c.HTTP.PostJSON(ctx, c.BaseURL+"/jupiter/quote", req, &raw); err != nil {
		return nil, nil, err
	}

	var out QuoteResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nil, fmt.Errorf("failed to decode jupiter quote response: %w", err)
	}
	return &out, raw, nil
}

// Swap posts to /jupiter/swap and returns the serialized transaction.
func (c *Client) Swap(ctx context.Context, req SwapRequest) (*SwapResponse, error) {
	var out SwapResponse
	if err := c.HTTP.PostJSON(ctx, c.BaseURL+"/jupiter/swap", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search queries the relayer's token search.
func (c *Client) Search(ctx context.Context, query string) ([]TokenInfo, error) {
	u := c.BaseURL + "/jupiter/search?q=" + url.QueryEscape(query)
	var out []TokenInfo
	if err := c.HTTP.GetJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchTokens is Search normalized to token descriptors.
func (c *Client) SearchTokens(ctx context.Context, query string) ([]models.TokenDescriptor, error) {
	hits, err := c.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return toDescriptors(hits), nil
}
