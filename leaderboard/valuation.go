package leaderboard

import (
	"math"

	"github.com/hedgewtf/zodial-watcher/chain"
	"github.com/hedgewtf/zodial-watcher/common/logging"
)

// defaultDecimals is assumed for mints absent from the decimals map.
const defaultDecimals = 6

// Valuation is the USD breakdown of one obligation.
type Valuation struct {
	DepositsUsd float64
	BorrowsUsd  float64
	NetUsd      float64

	// ValuedPositions counts positions that contributed to the totals.
	ValuedPositions int
	// SkippedPositions counts nonzero-share positions that could not
	// be valued (unknown pool, bad price).
	SkippedPositions int
}

// ValueObligation computes an obligation's USD deposit and borrow
// totals. A position referencing an unknown or delisted asset is
// skipped with a warning, never failing the whole valuation.
func ValueObligation(
	logger logging.Logger,
	ob *chain.Obligation,
	pools map[string]*chain.PoolFactors,
	prices map[string]float64,
	decimals map[string]int,
) Valuation {
	var v Valuation

	for _, position := range ob.Positions {
		zeroDeposit := position.DepositSharesQ60 == nil || position.DepositSharesQ60.Sign() == 0
		zeroBorrow := position.BorrowSharesQ60 == nil || position.BorrowSharesQ60.Sign() == 0
		if zeroDeposit && zeroBorrow {
			// carries no economic value
			continue
		}

		pool, ok := pools[position.Mint]
		if !ok {
			logger.Warn("no pool factors for %s, skipping position of %s", position.Mint, ob.Address)
			v.SkippedPositions++
			continue
		}

		price, ok := prices[position.Mint]
		if !ok || price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
			logger.Warn("no usable price for %s, skipping position of %s", position.Mint, ob.Address)
			v.SkippedPositions++
			continue
		}

		dec, ok := decimals[position.Mint]
		if !ok {
			dec = defaultDecimals
		}

		contributed := false
		if !zeroDeposit {
			amount := chain.SharesToAmount(position.DepositSharesQ60, pool.DepositFacQ60, dec)
			if usd := guardedMul(amount, price); usd > 0 {
				v.DepositsUsd += usd
				contributed = true
			}
		}
		if !zeroBorrow {
			amount := chain.SharesToAmount(position.BorrowSharesQ60, pool.BorrowFacQ60, dec)
			if usd := guardedMul(amount, price); usd > 0 {
				v.BorrowsUsd += usd
				contributed = true
			}
		}
		if contributed {
			v.ValuedPositions++
		}
	}

	if math.IsInf(v.DepositsUsd, 0) || math.IsNaN(v.DepositsUsd) {
		v.DepositsUsd = 0
	}
	if math.IsInf(v.BorrowsUsd, 0) || math.IsNaN(v.BorrowsUsd) {
		v.BorrowsUsd = 0
	}
	v.NetUsd = v.DepositsUsd - v.BorrowsUsd
	return v
}

// guardedMul multiplies amount by price, treating any non-finite or
// non-positive operand or result as a zero contribution.
func guardedMul(amount, price float64) float64 {
	if amount <= 0 || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return 0
	}
	usd := amount * price
	if math.IsInf(usd, 0) || math.IsNaN(usd) {
		return 0
	}
	return usd
}
