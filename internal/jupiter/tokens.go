package jupiter

import (
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
)

// NormalizeTokenList parses a Jupiter token list (a bare JSON array).
func NormalizeTokenList(raw []byte) ([]models.TokenDescriptor, error) {
	var list []TokenInfo
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode jupiter token list: %w", err)
	}
	return toDescriptors(list), nil
}

func toDescriptors(list []TokenInfo) []models.TokenDescriptor {
	out := make([]models.TokenDescriptor, 0, len(list))
	for _, t := range list {
		if t.Mint() == "" {
			continue
		}
		out = append(out, models.TokenDescriptor{
			Address:    t.Mint(),
			Symbol:     t.Symbol,
			Name:       t.Name,
			Decimals:   t.Decimals,
			Provenance: models.ProvenanceAggregatorOnly,
		})
	}
	return out
}
