package quote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/constants"
	"github.com/shopspring/decimal"
)

// IsNoRouteMessage recognizes the ways backends say there is no path.
func IsNoRouteMessage(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "no route") ||
		strings.Contains(m, "could not find any route") ||
		strings.Contains(m, "could_not_find_any_route") ||
		strings.Contains(m, "route_not_found") ||
		strings.Contains(m, "route not found") ||
		strings.Contains(m, "no pool")
}

// NormalizeMint rewrites the native sentinel to the wrapped native mint.
func NormalizeMint(mint string) string {
	if mint == constants.NativeSentinelMint {
		return constants.WrappedSOLMint
	}
	return mint
}

// ParseBaseUnits parses a base-unit amount from a JSON string or number.
func ParseBaseUnits(v any) (uint64, error) {
	switch t := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing amount")
	case string:
		return strconv.ParseUint(strings.TrimSpace(t), 10, 64)
	case json.Number:
		return strconv.ParseUint(t.String(), 10, 64)
	case float64:
		d := decimal.NewFromFloat(t)
		if !d.IsInteger() || d.IsNegative() {
			return 0, fmt.Errorf("amount %v is not a base-unit integer", t)
		}
		return d.BigInt().Uint64(), nil
	default:
		return 0, fmt.Errorf("unsupported amount type %T", v)
	}
}

// HumanToBaseUnits scales a human decimal amount by 10^decimals, flooring
// any sub-unit remainder.
func HumanToBaseUnits(amount string, decimals int32) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	base := d.Shift(decimals).Floor()
	if !base.IsPositive() {
		return 0, fmt.Errorf("amount %q is not positive", amount)
	}
	bi := base.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %q overflows", amount)
	}
	return bi.Uint64(), nil
}

// ImpactPctToBps converts a percentage (string or number) to basis points.
func ImpactPctToBps(v any) int64 {
	var d decimal.Decimal
	var err error
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return 0
		}
		d, err = decimal.NewFromString(strings.TrimSpace(t))
	case json.Number:
		d, err = decimal.NewFromString(t.String())
	case float64:
		d = decimal.NewFromFloat(t)
	default:
		return 0
	}
	if err != nil {
		return 0
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FirstOf returns the first present, non-null value among keys.
func FirstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// DecodeObject decodes a JSON object keeping numbers exact.
func DecodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("response is not an object")
	}
	return m, nil
}

// String returns v as a string when it is one.
func String(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
