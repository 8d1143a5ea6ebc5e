package assets

import (
	"github.com/shopspring/decimal"

	"github.com/hedgewtf/zodial-watcher/cache/cacher"
)

// CMC ids of the listed assets.
const (
	CmcUSDT  = 825
	CmcETH   = 1027
	CmcUSDC  = 3408
	CmcWBTC  = 3717
	CmcSOL   = 5426
	CmcTSLA  = 8526
	CmcNVDA  = 11461
	CmcMSTR  = 22533
	CmcSP500 = 23095
	CmcCRCL  = 26081
	CmcAAPL  = 27772
)

// Table is the static asset dataset: the devnet listing joined with the
// fallback risk parameters. It answers both identity directions.
type Table struct {
	assets  []*Asset
	byMint  map[string]*Asset
	byCmcID map[int]*Asset
}

// NewTable builds lookup maps over the given assets.
func NewTable(assets []*Asset) *Table {
	t := &Table{
		assets:  assets,
		byMint:  make(map[string]*Asset, len(assets)),
		byCmcID: make(map[int]*Asset, len(assets)),
	}
	for _, a := range assets {
		t.byMint[a.Mint] = a
		t.byCmcID[a.CmcID] = a
	}
	return t
}

// ByMint resolves an asset by canonical mint address.
func (t *Table) ByMint(mint string) (*Asset, bool) {
	a, ok := t.byMint[mint]
	return a, ok
}

// ByCmcID resolves an asset by CMC id.
func (t *Table) ByCmcID(id int) (*Asset, bool) {
	a, ok := t.byCmcID[id]
	return a, ok
}

// All returns the assets in listing order.
func (t *Table) All() []*Asset {
	return t.assets
}

// Mints returns every listed mint in listing order.
func (t *Table) Mints() []string {
	mints := make([]string, len(t.assets))
	for i, a := range t.assets {
		mints[i] = a.Mint
	}
	return mints
}

// PriceMap returns mint -> latest USD price, skipping unquoted assets.
func (t *Table) PriceMap() map[string]float64 {
	prices := make(map[string]float64, len(t.assets))
	for _, a := range t.assets {
		if a.Price.IsZero() {
			continue
		}
		prices[a.Mint] = a.PriceUsd()
	}
	return prices
}

// DecimalsMap returns mint -> token decimal precision.
func (t *Table) DecimalsMap() map[string]int {
	decimals := make(map[string]int, len(t.assets))
	for _, a := range t.assets {
		decimals[a.Mint] = a.Decimals
	}
	return decimals
}

// *Table
var defaultTable = cacher.NewConst(func() interface{} {
	return NewTable(listing())
})

// Default returns the process-wide static table.
func Default() *Table {
	return (defaultTable.Get()).(*Table)
}

// listing mirrors the devnet asset dataset. Threshold matrices keep the
// dataset's mixed convention: some entries are raw percentages, some
// already decimal.
func listing() []*Asset {
	return []*Asset{
		{
			Symbol: "USDC", Name: "USD Coin",
			Mint:  "zodUSDCyWnWoYC2ZLUuRZh4cwzUG6SL2DkfdgVT2thm",
			CmcID: CmcUSDC, Decimals: 6,
			Price: decimal.NewFromFloat(0.9998),
			ThresholdMatrix: map[int]float64{
				CmcUSDT: 95, CmcSOL: 0.9, CmcETH: 0.9, CmcWBTC: 90,
				CmcTSLA: 85, CmcNVDA: 85, CmcMSTR: 0.8, CmcSP500: 88,
				CmcCRCL: 0.8, CmcAAPL: 85,
			},
		},
		{
			Symbol: "USDT", Name: "Tether",
			Mint:  "zodUSDTfUJpZatmUjuWcpY6FBRMV1yzq8wbFPhQhaNy",
			CmcID: CmcUSDT, Decimals: 6,
			Price: decimal.NewFromFloat(1.0001),
			ThresholdMatrix: map[int]float64{
				CmcUSDC: 95, CmcSOL: 0.9, CmcETH: 0.9, CmcWBTC: 90,
				CmcTSLA: 85, CmcNVDA: 85, CmcMSTR: 0.8, CmcSP500: 88,
				CmcCRCL: 0.8, CmcAAPL: 85,
			},
		},
		{
			Symbol: "SOL", Name: "Solana",
			Mint:  "zodSoLANAv3XUNUUdcsDV7qmxzCMVzSQANQ9oHyJTXZ",
			CmcID: CmcSOL, Decimals: 9,
			Price: decimal.NewFromFloat(231.47),
			ThresholdMatrix: map[int]float64{
				CmcUSDC: 93, CmcUSDT: 93, CmcETH: 0.9, CmcWBTC: 90,
				CmcTSLA: 80, CmcNVDA: 80, CmcMSTR: 0.75, CmcSP500: 82,
				CmcCRCL: 0.75, CmcAAPL: 80,
			},
		},
		{
			Symbol: "ETH", Name: "Ethereum",
			Mint:  "zodETHq6eK3GdYGYzFzad82rkwVrAa5hWtC2Ef6nSyw",
			CmcID: CmcETH, Decimals: 8,
			Price: decimal.NewFromFloat(4117.82),
			ThresholdMatrix: map[int]float64{
				CmcUSDC: 93, CmcUSDT: 93, CmcSOL: 0.9, CmcWBTC: 92,
				CmcTSLA: 80, CmcNVDA: 80, CmcMSTR: 0.75, CmcSP500: 82,
				CmcCRCL: 0.75, CmcAAPL: 80,
			},
		},
		{
			Symbol: "WBTC", Name: "Wrapped Bitcoin",
			Mint:  "zodWBTCZifJ4vaMp1xGvcLYyDYy2pXnEnFPt5RXHe2U",
			CmcID: CmcWBTC, Decimals: 8,
			Price: decimal.NewFromFloat(109238.55),
			ThresholdMatrix: map[int]float64{
				CmcUSDC: 93, CmcUSDT: 93, CmcSOL: 0.9, CmcETH: 92,
				CmcTSLA: 80, CmcNVDA: 80, CmcMSTR: 0.75, CmcSP500: 82,
				CmcCRCL: 0.75, CmcAAPL: 80,
			},
		},
		{
			Symbol: "TSLA", Name: "Tesla",
			Mint:  "zodTSLAufaWr9cKvaMpq7DWswFrYh6HdZuADnDkyBo4",
			CmcID: CmcTSLA, Decimals: 6,
			Price: decimal.NewFromFloat(426.07),
			ThresholdMatrix: map[int]float64{
				CmcUSDC: 85, CmcUSDT: 85, CmcSOL: 0.8, CmcETH: 80,
				CmcWBTC: 80, CmcNVDA: 0.78, CmcMSTR: 0.7, CmcSP500: 80,
				CmcCRCL: 0.7, CmcAAPL: 78,
			},
		},
		{
			Symbol: "NVDA", Name: "NVIDIA",
			Mint:  "zodNVDA5wXUNtvjMqTBvYpkVEXeWcoZ6iuthvoqZpcr",
			CmcID: CmcNVDA, Decimals: 6,
			Price: decimal.NewFromFloat(177.93),
			ThresholdMatrix: map[int]float64{
				CmcUSDC: 85, CmcUSDT: 85, CmcSOL: 0.8, CmcETH: 80,
				CmcWBTC: 80, CmcTSLA: 0.78, CmcMSTR: 0.7, CmcSP500: 80,
				CmcCRCL: 0.7, CmcAAPL: 78,
			},
		},
		{
			Symbol: "MSTR", Name: "MicroStrategy",
			Mint:  "zodMSTRGrDjcTzjzsCmrCp2bHjSjJSCTky4ZHBCmWGb",
			CmcID: CmcMSTR, Decimals: 6,
			Price: decimal.NewFromFloat(338.12),
			ThresholdMatrix: map[int]float64{
				CmcUSDC: 80, CmcUSDT: 80, CmcSOL: 0.75, CmcETH: 75,
				CmcWBTC: 75, CmcTSLA: 0.7, CmcNVDA: 0.7, CmcSP500: 75,
				CmcCRCL: 0.68, CmcAAPL: 72,
			},
		},
		{
			Symbol: "SP500", Name: "SP500",
			Mint:  "zodSP5oMMTcmxvCZhRUTS1DnDYCN2DYtJSCUyoLS93j",
			CmcID: CmcSP500, Decimals: 6,
			Price: decimal.NewFromFloat(64.51),
			ThresholdMatrix: map[int]float64{
				CmcUSDC: 88, CmcUSDT: 88, CmcSOL: 0.82, CmcETH: 82,
				CmcWBTC: 82, CmcTSLA: 0.8, CmcNVDA: 0.8, CmcMSTR: 0.75,
				CmcCRCL: 0.75, CmcAAPL: 80,
			},
		},
		{
			Symbol: "CRCL", Name: "Circle",
			Mint:  "zodCRCLkP8cVheowW6hwJbASKTBKSU5GMWg3eacEP3x",
			CmcID: CmcCRCL, Decimals: 6,
			Price: decimal.NewFromFloat(132.24),
			ThresholdMatrix: map[int]float64{
				CmcUSDC: 80, CmcUSDT: 80, CmcSOL: 0.75, CmcETH: 75,
				CmcWBTC: 75, CmcTSLA: 0.7, CmcNVDA: 0.7, CmcMSTR: 0.68,
				CmcSP500: 75, CmcAAPL: 72,
			},
		},
		{
			Symbol: "AAPL", Name: "Apple",
			Mint:  "zodAAPLJiLKNHCYxUsVbvUCWYb2nKYC7nzmFY3oFbdh",
			CmcID: CmcAAPL, Decimals: 6,
			Price: decimal.NewFromFloat(232.56),
			ThresholdMatrix: map[int]float64{
				CmcUSDC: 85, CmcUSDT: 85, CmcSOL: 0.8, CmcETH: 80,
				CmcWBTC: 80, CmcTSLA: 0.78, CmcNVDA: 0.78, CmcMSTR: 0.72,
				CmcSP500: 80, CmcCRCL: 0.72,
			},
		},
	}
}
