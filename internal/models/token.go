package models

import "encoding/json"

// Chain identifies the network a swap runs on.
type Chain string

const (
	ChainSolana  Chain = "solana"
	ChainEclipse Chain = "eclipse"
)

// Backend is the swap backend family a quote was obtained from.
type Backend string

const (
	BackendDedicatedAmm Backend = "dedicated_amm"
	BackendAggregator   Backend = "aggregator"
)

// Provenance records which token list(s) reported a token.
type Provenance int

const (
	ProvenanceDedicatedAmmOnly Provenance = iota + 1
	ProvenanceAggregatorOnly
	ProvenanceBoth
)

func (p Provenance) String() string {
	switch p {
	case ProvenanceDedicatedAmmOnly:
		return "dedicated_amm"
	case ProvenanceAggregatorOnly:
		return "aggregator"
	case ProvenanceBoth:
		return "both"
	default:
		return "unknown"
	}
}

func (p Provenance) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// TokenDescriptor is a normalized token list entry. Immutable once loaded.
type TokenDescriptor struct {
	Address    string     `json:"address"`
	Symbol     string     `json:"symbol"`
	Name       string     `json:"name"`
	Decimals   int        `json:"decimals"`
	Provenance Provenance `json:"provenance"`
}
