package assets

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Asset joins the two identity spaces of one listed asset: the on-chain
// mint address and the CMC id used by the static risk dataset. Call
// sites translate between the spaces through this struct only, never by
// comparing raw ids.
type Asset struct {
	Symbol   string
	Name     string
	Mint     string
	CmcID    int
	Decimals int

	// Price is the latest USD quote.
	Price decimal.Decimal

	// ThresholdMatrix maps a counter asset CMC id to the raw
	// liquidation threshold from the static dataset. Raw values above 1
	// are percentages.
	ThresholdMatrix map[int]float64
}

// PriceUsd returns the latest price as float64 for solver math.
func (a *Asset) PriceUsd() float64 {
	f, _ := a.Price.Float64()
	return f
}

// Threshold returns the normalized static liquidation threshold against
// the counter asset, or false if the pair is not in the dataset.
func (a *Asset) Threshold(counterCmcID int) (float64, bool) {
	if a.ThresholdMatrix == nil {
		return 0, false
	}
	raw, ok := a.ThresholdMatrix[counterCmcID]
	if !ok {
		return 0, false
	}
	if raw > 1 {
		return raw / 100, true
	}
	return raw, true
}

// CanonicalAddress normalizes any accepted external address
// representation into the canonical base58 string. Everything behind
// this boundary only ever sees the string form.
func CanonicalAddress(v interface{}) (string, error) {
	switch addr := v.(type) {
	case string:
		if addr == "" {
			return "", fmt.Errorf("empty address")
		}
		return addr, nil
	case fmt.Stringer:
		s := addr.String()
		if s == "" {
			return "", fmt.Errorf("empty address")
		}
		return s, nil
	default:
		return "", fmt.Errorf("unsupported address type %T", v)
	}
}
