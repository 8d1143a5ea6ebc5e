package risk

import (
	"math"

	"github.com/hedgewtf/zodial-watcher/assets"
)

// Position is one UI-unit holding of an asset.
type Position struct {
	Amount float64
	Asset  *assets.Asset
}

// Usd returns the position's current USD value.
func (p Position) Usd() float64 {
	return p.Amount * p.Asset.PriceUsd()
}

func borrowsUsdTotal(borrows []Position) float64 {
	total := 0.0
	for _, b := range borrows {
		total += b.Usd()
	}
	return total
}

// BorrowLimit is the liquidation-threshold-weighted collateral value:
// each deposit's USD value weighted by the average threshold across the
// current borrows, distributed by their USD share of total debt.
func BorrowLimit(deposits, borrows []Position, ltOf ThresholdFunc) float64 {
	if len(borrows) == 0 {
		return 0
	}
	totalBor := borrowsUsdTotal(borrows)
	if totalBor == 0 {
		return 0
	}

	dists := make([]float64, len(borrows))
	for i, b := range borrows {
		dists[i] = b.Usd() / totalBor
	}

	limit := 0.0
	for _, dep := range deposits {
		depUsd := dep.Usd()
		if depUsd == 0 {
			continue
		}
		weightedLt := 0.0
		for i, b := range borrows {
			weightedLt += dists[i] * ltOf(dep.Asset, b.Asset)
		}
		limit += depUsd * weightedLt
	}
	return limit
}

// HealthScore is the liquidation-distance ratio of the portfolio:
// weighted collateral value over total debt value. Above 1 means
// safety margin, at or below 1 means liquidation eligibility. NaN when
// there is no debt: a position with nothing borrowed has no ratio.
func HealthScore(deposits, borrows []Position, ltOf ThresholdFunc) float64 {
	borUsd := borrowsUsdTotal(borrows)
	if borUsd == 0 {
		return math.NaN()
	}
	return BorrowLimit(deposits, borrows, ltOf) / borUsd
}

// MaxSafeBorrowAmount returns the largest token amount of candidate
// that can be borrowed while keeping the health score at targetHealth.
//
// Adding x USD of the candidate borrow and requiring the resulting
// health score to equal H gives the quadratic
//
//	H*x^2 + (2*H*T - C)*x + (H*T^2 - A) = 0
//
// with T the current total borrow USD,
// A = sum over (deposit, borrow) pairs of depositUsd*borrowUsd*lt, and
// C = sum over deposits of depositUsd*lt(deposit, candidate).
// The larger non-negative root is taken; an unsolvable target yields 0.
func MaxSafeBorrowAmount(deposits, borrows []Position, candidate *assets.Asset, targetHealth float64, ltOf ThresholdFunc) float64 {
	if targetHealth <= 0 {
		return 0
	}
	if len(deposits) == 0 {
		return 0
	}

	assetPrice := candidate.PriceUsd()
	if assetPrice <= 0 || math.IsInf(assetPrice, 0) || math.IsNaN(assetPrice) {
		return 0
	}

	a := 0.0
	for _, deposit := range deposits {
		depositUsd := deposit.Usd()
		if math.IsInf(depositUsd, 0) || math.IsNaN(depositUsd) {
			continue
		}
		for _, borrow := range borrows {
			borrowUsd := borrow.Usd()
			if math.IsInf(borrowUsd, 0) || math.IsNaN(borrowUsd) {
				continue
			}
			a += depositUsd * borrowUsd * ltOf(deposit.Asset, borrow.Asset)
		}
	}

	c := 0.0
	for _, deposit := range deposits {
		depositUsd := deposit.Usd()
		if math.IsInf(depositUsd, 0) || math.IsNaN(depositUsd) {
			continue
		}
		c += depositUsd * ltOf(deposit.Asset, candidate)
	}
	if c <= 0 {
		// no collateral offers any margin against this asset
		return 0
	}

	t := borrowsUsdTotal(borrows)
	h := targetHealth

	aCoef := h
	bCoef := 2*h*t - c
	cCoef := h*t*t - a

	discriminant := bCoef*bCoef - 4*aCoef*cCoef
	if discriminant < 0 {
		// target health unattainable
		return 0
	}

	sqrtDiscriminant := math.Sqrt(discriminant)
	x1 := (-bCoef + sqrtDiscriminant) / (2 * aCoef)
	x2 := (-bCoef - sqrtDiscriminant) / (2 * aCoef)

	x := math.Max(x1, x2)
	if x < 0 {
		x = math.Min(x1, x2)
		if x < 0 {
			return 0
		}
	}

	return math.Max(0, x/assetPrice)
}
