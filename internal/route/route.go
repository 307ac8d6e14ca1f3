// Package route picks the swap backend family for a token pair.
package route

import "github.com/aman-zulfiqar/omega-swap-engine/internal/models"

// SelectBackend returns the dedicated AMM when either side of the pair is the
// designated token, and the aggregator otherwise. An empty designated token
// means the chain has no dedicated AMM.
func SelectBackend(input, output, designated string) models.Backend {
	if designated != "" && (input == designated || output == designated) {
		return models.BackendDedicatedAmm
	}
	return models.BackendAggregator
}
