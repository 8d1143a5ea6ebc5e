package risk

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hedgewtf/zodial-watcher/assets"
)

func usdAsset(symbol string, cmcID int, price float64) *assets.Asset {
	return &assets.Asset{
		Symbol: symbol,
		Mint:   "Mint" + symbol,
		CmcID:  cmcID,
		Price:  decimal.NewFromFloat(price),
	}
}

func constLt(v float64) ThresholdFunc {
	return func(_, _ *assets.Asset) float64 { return v }
}

func TestHealthScoreNoDebt(t *testing.T) {
	deposits := []Position{{Amount: 100, Asset: usdAsset("USDC", 3408, 1)}}

	require.True(t, math.IsNaN(HealthScore(deposits, nil, constLt(0.9))))
	require.True(t, math.IsNaN(HealthScore(deposits, []Position{}, constLt(0.9))))

	// zero-valued borrows count as no debt too
	zeroBorrows := []Position{{Amount: 0, Asset: usdAsset("SOL", 5426, 200)}}
	require.True(t, math.IsNaN(HealthScore(deposits, zeroBorrows, constLt(0.9))))
}

func TestHealthScoreWeighted(t *testing.T) {
	usdc := usdAsset("USDC", 3408, 1)
	sol := usdAsset("SOL", 5426, 100)
	eth := usdAsset("ETH", 1027, 1000)

	deposits := []Position{{Amount: 100, Asset: usdc}} // 100 USD
	borrows := []Position{
		{Amount: 0.3, Asset: sol}, // 30 USD
		{Amount: 0.01, Asset: eth}, // 10 USD
	}

	// thresholds 0.9 against SOL, 0.8 against ETH, debt-weighted
	ltOf := func(_, borrow *assets.Asset) float64 {
		if borrow.Symbol == "SOL" {
			return 0.9
		}
		return 0.8
	}

	// limit = 100 * (30/40*0.9 + 10/40*0.8) = 87.5; health = 87.5/40
	require.InDelta(t, 87.5, BorrowLimit(deposits, borrows, ltOf), 1e-9)
	require.InDelta(t, 87.5/40, HealthScore(deposits, borrows, ltOf), 1e-9)
}

func TestMaxSafeBorrowNoExistingDebt(t *testing.T) {
	deposits := []Position{{Amount: 1000, Asset: usdAsset("USDC", 3408, 1)}}
	candidate := usdAsset("SOL", 5426, 2)

	// T=0, A=0, C=800: H*x^2 - 800x = 0, larger root x=800 USD
	amount := MaxSafeBorrowAmount(deposits, nil, candidate, 1.0, constLt(0.8))
	require.InDelta(t, 400.0, amount, 1e-9)

	// doubling the target halves the USD solve
	amount = MaxSafeBorrowAmount(deposits, nil, candidate, 2.0, constLt(0.8))
	require.InDelta(t, 200.0, amount, 1e-9)
}

func TestMaxSafeBorrowHitsTarget(t *testing.T) {
	usdc := usdAsset("USDC", 3408, 1)
	sol := usdAsset("SOL", 5426, 150)
	ltOf := constLt(0.85)

	deposits := []Position{{Amount: 500, Asset: usdc}}
	borrows := []Position{{Amount: 1, Asset: sol}} // 150 USD

	target := 1.5
	amount := MaxSafeBorrowAmount(deposits, borrows, sol, target, ltOf)
	require.Greater(t, amount, 0.0)

	// borrowing the suggested amount lands exactly on the target
	after := append([]Position{}, borrows...)
	after = append(after, Position{Amount: amount, Asset: sol})
	require.InDelta(t, target, HealthScore(deposits, after, ltOf), 1e-9)
}

func TestMaxSafeBorrowMonotonicInTarget(t *testing.T) {
	deposits := []Position{{Amount: 250, Asset: usdAsset("USDC", 3408, 1)}}
	borrows := []Position{{Amount: 0.5, Asset: usdAsset("ETH", 1027, 100)}}
	candidate := usdAsset("SOL", 5426, 10)

	prev := math.Inf(1)
	for _, target := range []float64{0.5, 1.0, 1.1, 1.5, 2.0, 5.0, 20.0} {
		amount := MaxSafeBorrowAmount(deposits, borrows, candidate, target, constLt(0.9))
		require.LessOrEqual(t, amount, prev, "target %v", target)
		prev = amount
	}
}

func TestMaxSafeBorrowZeroCases(t *testing.T) {
	usdc := usdAsset("USDC", 3408, 1)
	candidate := usdAsset("SOL", 5426, 10)

	// no deposits
	require.Equal(t, 0.0, MaxSafeBorrowAmount(nil, nil, candidate, 1.0, constLt(0.9)))

	// non-positive target
	deposits := []Position{{Amount: 100, Asset: usdc}}
	require.Equal(t, 0.0, MaxSafeBorrowAmount(deposits, nil, candidate, 0, constLt(0.9)))

	// worthless candidate price
	free := usdAsset("FREE", 1, 0)
	require.Equal(t, 0.0, MaxSafeBorrowAmount(deposits, nil, free, 1.0, constLt(0.9)))

	// no margin against the candidate
	require.Equal(t, 0.0, MaxSafeBorrowAmount(deposits, nil, candidate, 1.0, constLt(0)))
}

func TestMaxSafeBorrowNegativeDiscriminant(t *testing.T) {
	usdc := usdAsset("USDC", 3408, 1)
	eth := usdAsset("ETH", 1027, 1)
	sol := usdAsset("SOL", 5426, 1)

	deposits := []Position{{Amount: 100, Asset: usdc}}
	borrows := []Position{{Amount: 10, Asset: eth}}

	// weak threshold against the existing borrow, strong against the
	// candidate: C^2 - 4H(TC - A) < 0 at a high target
	ltOf := func(_, borrow *assets.Asset) float64 {
		if borrow.Symbol == "ETH" {
			return 0.1
		}
		return 0.9
	}
	require.Equal(t, 0.0, MaxSafeBorrowAmount(deposits, borrows, sol, 10.0, ltOf))
}
