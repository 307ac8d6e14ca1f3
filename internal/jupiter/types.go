package jupiter

import "encoding/json"

type QuoteRequest struct {
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	Amount      string `json:"amount"` // raw integer as string (uint64)
	SlippageBps uint16 `json:"slippageBps,omitempty"`
}

type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	InAmount             string          `json:"inAmount"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          uint16          `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`

	ContextSlot uint64 `json:"contextSlot,omitempty"`

	// Error is set by the relayer when the upstream quote failed.
	Error string `json:"error,omitempty"`
}

type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  *uint8   `json:"percent,omitempty"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label,omitempty"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
}

type SwapRequest struct {
	InputMint     string          `json:"inputMint"`
	OutputMint    string          `json:"outputMint"`
	Amount        string          `json:"amount"`
	UserPublicKey string          `json:"userPublicKey"`
	SlippageBps   uint16          `json:"slippageBps,omitempty"`
	QuoteResponse json.RawMessage `json:"quoteResponse,omitempty"`

	DynamicSlippage           bool                       `json:"dynamicSlippage"`
	PrioritizationFeeLamports *PrioritizationFeeLamports `json:"prioritizationFeeLamports,omitempty"`
}

type PrioritizationFeeLamports struct {
	PriorityLevelWithMaxLamports PriorityLevel `json:"priorityLevelWithMaxLamports"`
}

type PriorityLevel struct {
	MaxLamports   uint64 `json:"maxLamports"`
	PriorityLevel string `json:"priorityLevel"`
}

type SwapResponse struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction"`
	InAmount    string `json:"inAmount,omitempty"`
	OutAmount   string `json:"outAmount,omitempty"`
	Error       string `json:"error,omitempty"`
}

// TokenInfo is a search hit. The relayer has returned both "id" and
// "address" for the mint over time.
type TokenInfo struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
}

func (t TokenInfo) Mint() string {
	if t.Address != "" {
		return t.Address
	}
	return t.ID
}
