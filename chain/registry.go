package chain

import (
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// FetchRiskRegistry scans the program for the market's risk registry.
// A missing registry is not an error, the caller falls back to static
// parameters.
func FetchRiskRegistry(fetcher AccountFetcher, programID, market string) (*RiskRegistry, error) {
	accounts, err := fetcher.GetProgramAccounts(programID, []Memcmp{
		{Offset: 0, Bytes: DiscriminatorRiskRegistry},
		{Offset: 8, Bytes: base58.Decode(market)},
	}, true)
	if err != nil {
		return nil, fmt.Errorf("fail to scan risk registry: %w", err)
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return DecodeRiskRegistry(accounts[0].Data)
}

// FetchAssetRegistry scans the program for the market's asset registry.
func FetchAssetRegistry(fetcher AccountFetcher, programID, market string) (*AssetRegistry, error) {
	accounts, err := fetcher.GetProgramAccounts(programID, []Memcmp{
		{Offset: 0, Bytes: DiscriminatorAssetRegistry},
		{Offset: 8, Bytes: base58.Decode(market)},
	}, true)
	if err != nil {
		return nil, fmt.Errorf("fail to scan asset registry: %w", err)
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return DecodeAssetRegistry(accounts[0].Data)
}
