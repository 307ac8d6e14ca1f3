package deserialize

import (
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
)

type tokenListResponse struct {
	Data []struct {
		Address  string `json:"address"`
		Decimals int    `json:"decimals"`
		Metadata *struct {
			Symbol string `json:"symbol"`
			Name   string `json:"name"`
		} `json:"metadata"`
	} `json:"data"`
}

// NormalizeTokenList parses the /tokenList document. Entries without
// metadata keep their address and get "N/A" labels.
func NormalizeTokenList(raw []byte) ([]models.TokenDescriptor, error) {
	var resp tokenListResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode deserialize token list: %w", err)
	}
	out := make([]models.TokenDescriptor, 0, len(resp.Data))
	for _, t := range resp.Data {
		if t.Address == "" {
			continue
		}
		td := models.TokenDescriptor{
			Address:    t.Address,
			Symbol:     "N/A",
			Name:       "N/A",
			Decimals:   t.Decimals,
			Provenance: models.ProvenanceAggregatorOnly,
		}
		if t.Metadata != nil {
			if t.Metadata.Symbol != "" {
				td.Symbol = t.Metadata.Symbol
			}
			if t.Metadata.Name != "" {
				td.Name = t.Metadata.Name
			}
		}
		out = append(out, td)
	}
	return out, nil
}
