package leaderboard

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"

	"github.com/hedgewtf/zodial-watcher/chain"
)

// ErrInvalidOwner marks a malformed owner filter address.
var ErrInvalidOwner = errors.New("invalid owner address")

// PositionView is one asset leg of an obligation in UI units.
type PositionView struct {
	Mint          string  `json:"mint"`
	Symbol        string  `json:"symbol,omitempty"`
	DepositAmount float64 `json:"depositAmount"`
	BorrowAmount  float64 `json:"borrowAmount"`
}

// ObligationView is one raw obligation listing row.
type ObligationView struct {
	Account   string         `json:"account"`
	Owner     string         `json:"owner"`
	Positions []PositionView `json:"positions"`
}

// Obligations lists the market's obligations with positions converted
// to UI units. owner, when non-empty, narrows the scan to one wallet.
func (a *Aggregator) Obligations(owner string) ([]*ObligationView, error) {
	filters := []chain.Memcmp{
		{Offset: 0, Bytes: chain.DiscriminatorObligation},
		{Offset: marketFilterOffset, Bytes: base58.Decode(a.market)},
	}
	if owner != "" {
		ownerBytes := base58.Decode(owner)
		if len(ownerBytes) != 32 {
			return nil, fmt.Errorf("%w %q", ErrInvalidOwner, owner)
		}
		filters = append(filters, chain.Memcmp{Offset: ownerFilterOffset, Bytes: ownerBytes})
	}

	pools, err := a.poolFactors(false)
	if err != nil {
		return nil, err
	}

	accounts, err := a.fetcher.GetProgramAccounts(a.programID, filters, true)
	if err != nil {
		return nil, fmt.Errorf("fail to scan obligations: %w", err)
	}

	decimals := a.table.DecimalsMap()
	views := make([]*ObligationView, 0, len(accounts))
	for _, acc := range accounts {
		ob, err := chain.DecodeObligation(acc.Address, acc.Data)
		if err != nil {
			a.logger.Error("fail to decode obligation %s: %s", acc.Address, err)
			continue
		}
		view := &ObligationView{Account: ob.Address, Owner: ob.Owner}
		for _, position := range ob.Positions {
			if (position.DepositSharesQ60 == nil || position.DepositSharesQ60.Sign() == 0) &&
				(position.BorrowSharesQ60 == nil || position.BorrowSharesQ60.Sign() == 0) {
				continue
			}
			pool, ok := pools[position.Mint]
			if !ok {
				a.logger.Warn("no pool factors for %s, skipping position of %s", position.Mint, ob.Address)
				continue
			}
			dec, ok := decimals[position.Mint]
			if !ok {
				dec = defaultDecimals
			}
			pv := PositionView{
				Mint:          position.Mint,
				DepositAmount: chain.SharesToAmount(position.DepositSharesQ60, pool.DepositFacQ60, dec),
				BorrowAmount:  chain.SharesToAmount(position.BorrowSharesQ60, pool.BorrowFacQ60, dec),
			}
			if asset, ok := a.table.ByMint(position.Mint); ok {
				pv.Symbol = asset.Symbol
			}
			view.Positions = append(view.Positions, pv)
		}
		views = append(views, view)
	}
	return views, nil
}
