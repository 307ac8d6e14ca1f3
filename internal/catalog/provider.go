package catalog

import (
	"context"
	"encoding/json"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/deserialize"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/httpx"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/jupiter"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/solar"
)

// ListProvider fetches one raw token list and normalizes it.
type ListProvider interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
	Normalize(raw []byte) ([]models.TokenDescriptor, error)
}

// HTTPProvider is a ListProvider backed by a GET endpoint.
type HTTPProvider struct {
	ProviderName string
	URL          string
	HTTP         *httpx.Client
	NormalizeFn  func([]byte) ([]models.TokenDescriptor, error)
}

func (p *HTTPProvider) Name() string { return p.ProviderName }

func (p *HTTPProvider) Fetch(ctx context.Context) ([]byte, error) {
	h := p.HTTP
	if h == nil {
		h = httpx.New(httpx.Config{})
	}
	var raw json.RawMessage
	if err := h.GetJSON(ctx, p.URL, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (p *HTTPProvider) Normalize(raw []byte) ([]models.TokenDescriptor, error) {
	return p.NormalizeFn(raw)
}

func NewJupiterProvider(url string, h *httpx.Client) *HTTPProvider {
	return &HTTPProvider{ProviderName: "jupiter", URL: url, HTTP: h, NormalizeFn: jupiter.NormalizeTokenList}
}

func NewSolarProvider(url string, h *httpx.Client) *HTTPProvider {
	return &HTTPProvider{ProviderName: "solar", URL: url, HTTP: h, NormalizeFn: solar.NormalizeMintList}
}

func NewDeserializeProvider(url string, h *httpx.Client) *HTTPProvider {
	return &HTTPProvider{ProviderName: "deserialize", URL: url, HTTP: h, NormalizeFn: deserialize.NormalizeTokenList}
}
