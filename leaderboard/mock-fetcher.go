package leaderboard

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/btcsuite/btcutil/base58"

	"github.com/hedgewtf/zodial-watcher/chain"
)

var TEST_ERROR = errors.New("test error")

// MockChainFetcher serves canned pool and obligation accounts and
// counts the calls the aggregator makes against each RPC surface.
type MockChainFetcher struct {
	pools       []*chain.Account
	obligations []*chain.Account

	PoolScanCalls       int
	ObligationScanCalls int
	FetchCalls          int

	FailScan  bool
	FailFetch bool
}

func (m *MockChainFetcher) GetAccounts(addresses []string) ([]*chain.Account, error) {
	m.FetchCalls++
	if m.FailFetch {
		return nil, TEST_ERROR
	}
	byAddr := make(map[string]*chain.Account, len(m.obligations))
	for _, acc := range m.obligations {
		byAddr[acc.Address] = acc
	}
	out := make([]*chain.Account, len(addresses))
	for i, addr := range addresses {
		out[i] = byAddr[addr] // nil for closed accounts
	}
	return out, nil
}

func (m *MockChainFetcher) GetProgramAccounts(
	programID string,
	filters []chain.Memcmp,
	withData bool,
) ([]*chain.Account, error) {
	if m.FailScan {
		return nil, TEST_ERROR
	}
	if len(filters) == 0 {
		return nil, TEST_ERROR
	}
	if bytes.Equal(filters[0].Bytes, chain.DiscriminatorPool) {
		m.PoolScanCalls++
		return m.pools, nil
	}
	m.ObligationScanCalls++
	out := make([]*chain.Account, len(m.obligations))
	for i, acc := range m.obligations {
		if !withData {
			out[i] = &chain.Account{Address: acc.Address, Owner: acc.Owner}
			continue
		}
		if len(filters) > 2 {
			// owner filter from the obligations view
			if base58.Encode(filters[2].Bytes) != decodedOwner(acc.Data) {
				out[i] = nil
				continue
			}
		}
		out[i] = acc
	}
	filtered := out[:0]
	for _, acc := range out {
		if acc != nil {
			filtered = append(filtered, acc)
		}
	}
	return filtered, nil
}

func decodedOwner(data []byte) string {
	return base58.Encode(data[ownerFilterOffset : ownerFilterOffset+32])
}

func mockPubkey(b byte) string {
	key := bytes.Repeat([]byte{b}, 32)
	return base58.Encode(key)
}

func appendU128(buf []byte, v *big.Int) []byte {
	be := v.Bytes()
	le := make([]byte, 16)
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	return append(buf, le...)
}

type mockPosition struct {
	mint          string
	depositShares uint64
	borrowShares  uint64
}

func mockObligationData(market, owner string, positions []mockPosition) []byte {
	buf := append([]byte{}, chain.DiscriminatorObligation...)
	buf = append(buf, base58.Decode(market)...)
	buf = append(buf, base58.Decode(owner)...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(positions)))
	for _, p := range positions {
		buf = append(buf, base58.Decode(p.mint)...)
		buf = appendU128(buf, new(big.Int).SetUint64(p.depositShares))
		buf = appendU128(buf, new(big.Int).SetUint64(p.borrowShares))
	}
	return append(buf, 0) // bump
}

func mockPoolData(market, mint string, depositFacQ60, borrowFacQ60 *big.Int) []byte {
	buf := append([]byte{}, chain.DiscriminatorPool...)
	buf = append(buf, base58.Decode(market)...)
	buf = append(buf, base58.Decode(mint)...)
	buf = append(buf, bytes.Repeat([]byte{0xee}, 32)...) // vault
	buf = appendU128(buf, borrowFacQ60)
	buf = appendU128(buf, depositFacQ60)
	return buf
}
