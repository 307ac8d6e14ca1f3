package solar

import (
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
)

type mintListResponse struct {
	Success bool `json:"success"`
	Data    struct {
		MintList []struct {
			Address  string `json:"address"`
			Symbol   string `json:"symbol"`
			Name     string `json:"name"`
			Decimals int    `json:"decimals"`
		} `json:"mintList"`
	} `json:"data"`
}

// NormalizeMintList parses the /mint/list document.
func NormalizeMintList(raw []byte) ([]models.TokenDescriptor, error) {
	var resp mintListResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode solar mint list: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("solar mint list unsuccessful")
	}
	out := make([]models.TokenDescriptor, 0, len(resp.Data.MintList))
	for _, t := range resp.Data.MintList {
		if t.Address == "" {
			continue
		}
		out = append(out, models.TokenDescriptor{
			Address:    t.Address,
			Symbol:     t.Symbol,
			Name:       t.Name,
			Decimals:   t.Decimals,
			Provenance: models.ProvenanceDedicatedAmmOnly,
		})
	}
	return out, nil
}
