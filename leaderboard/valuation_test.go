package leaderboard

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedgewtf/zodial-watcher/chain"
	"github.com/hedgewtf/zodial-watcher/common/logging"
)

func q60Shares(atomic int64) *big.Int {
	return big.NewInt(atomic)
}

func TestValueObligationTotals(t *testing.T) {
	logging.Initialize("leaderboard-test")
	logger := logging.NewLoggerTag("leaderboard-test")

	ob := &chain.Obligation{
		Address: obAddr1,
		Positions: []chain.Position{
			{Mint: testMintA, DepositSharesQ60: q60Shares(50_000_000)},
			{Mint: testMintB, BorrowSharesQ60: q60Shares(30_000_000)},
			{Mint: testMintB}, // both legs zero, ignored
		},
	}
	pools := map[string]*chain.PoolFactors{
		testMintA: {DepositFacQ60: facOne, BorrowFacQ60: facOne},
		testMintB: {DepositFacQ60: facOne, BorrowFacQ60: facOne},
	}
	prices := map[string]float64{testMintA: 2, testMintB: 1}
	decimals := map[string]int{testMintA: 6, testMintB: 6}

	v := ValueObligation(logger, ob, pools, prices, decimals)
	require.InDelta(t, 100.0, v.DepositsUsd, 1e-9)
	require.InDelta(t, 30.0, v.BorrowsUsd, 1e-9)
	require.InDelta(t, 70.0, v.NetUsd, 1e-9)
	require.Equal(t, 2, v.ValuedPositions)
	require.Equal(t, 0, v.SkippedPositions)
}

func TestValueObligationSkipsUnvaluable(t *testing.T) {
	logging.Initialize("leaderboard-test")
	logger := logging.NewLoggerTag("leaderboard-test")

	ob := &chain.Obligation{
		Address: obAddr2,
		Positions: []chain.Position{
			{Mint: testMintC, DepositSharesQ60: q60Shares(1_000_000)}, // no pool
			{Mint: testMintA, DepositSharesQ60: q60Shares(1_000_000)}, // no usable price
			{Mint: testMintB, DepositSharesQ60: q60Shares(5_000_000)},
		},
	}
	pools := map[string]*chain.PoolFactors{
		testMintA: {DepositFacQ60: facOne, BorrowFacQ60: facOne},
		testMintB: {DepositFacQ60: facOne, BorrowFacQ60: facOne},
	}
	prices := map[string]float64{testMintA: math.NaN(), testMintB: 1}
	decimals := map[string]int{testMintA: 6, testMintB: 6}

	v := ValueObligation(logger, ob, pools, prices, decimals)
	require.InDelta(t, 5.0, v.DepositsUsd, 1e-9)
	require.Equal(t, 1, v.ValuedPositions)
	require.Equal(t, 2, v.SkippedPositions)
}

func TestValueObligationDefaultDecimals(t *testing.T) {
	logging.Initialize("leaderboard-test")
	logger := logging.NewLoggerTag("leaderboard-test")

	ob := &chain.Obligation{
		Address: obAddr3,
		Positions: []chain.Position{
			{Mint: testMintA, DepositSharesQ60: q60Shares(1_000_000)},
		},
	}
	pools := map[string]*chain.PoolFactors{
		testMintA: {DepositFacQ60: facOne, BorrowFacQ60: facOne},
	}
	prices := map[string]float64{testMintA: 3}

	// decimals map has no entry for the mint, six is assumed
	v := ValueObligation(logger, ob, pools, prices, map[string]int{})
	require.InDelta(t, 3.0, v.DepositsUsd, 1e-9)
}
