package chain

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/btcsuite/btcutil/base58"
)

// Anchor account discriminators (first 8 bytes of account data).
var (
	DiscriminatorObligation    = []byte{168, 206, 141, 106, 88, 76, 172, 167}
	DiscriminatorPool          = []byte{241, 154, 109, 4, 17, 177, 109, 188}
	DiscriminatorRiskRegistry  = []byte{54, 31, 141, 146, 91, 210, 66, 46}
	DiscriminatorAssetRegistry = []byte{60, 94, 213, 134, 205, 170, 175, 68}
)

// Binary offsets inside an obligation account.
const (
	ObligationMarketOffset = 8
	ObligationOwnerOffset  = 40
)

const q60Shift = 60

// Position is one asset leg of an obligation: share balances in Q60
// fixed point, not directly comparable across assets.
type Position struct {
	Mint             string
	DepositSharesQ60 *big.Int
	BorrowSharesQ60  *big.Int
}

// Obligation is one borrower's on-chain position set.
type Obligation struct {
	Address   string
	Market    string
	Owner     string
	Positions []Position
}

// PoolFactors are the Q60 multipliers converting shares into atomic
// token amounts at the current accrual point. Factors only grow.
type PoolFactors struct {
	DepositFacQ60 *big.Int
	BorrowFacQ60  *big.Int
}

// Pool is the slice of a pool account the watcher needs.
type Pool struct {
	Address string
	Market  string
	Mint    string
	Factors PoolFactors
}

// RiskPair is one cell of the risk registry matrix, in basis points.
type RiskPair struct {
	LtvBps          uint16
	LiqThresholdBps uint16
	LiqBonusBps     uint16
}

// RiskRegistry is the on-chain risk-pair matrix, dense row-major
// dim x dim.
type RiskRegistry struct {
	Market string
	Dim    uint16
	Pairs  []RiskPair
}

// AssetMeta is one listing of the on-chain asset registry.
type AssetMeta struct {
	Mint                string
	Decimals            uint8
	EnabledAsCollateral bool
	Index               uint16
}

// AssetRegistry maps mints to registry indices.
type AssetRegistry struct {
	Market string
	Count  uint16
	Assets []AssetMeta
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) remain() int { return len(r.data) - r.pos }

func (r *reader) take(n int) ([]byte, error) {
	if r.remain() < n {
		return nil, fmt.Errorf("account data truncated: need %d bytes at offset %d, have %d",
			n, r.pos, r.remain())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) pubkey() (string, error) {
	b, err := r.take(32)
	if err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u128() (*big.Int, error) {
	b, err := r.take(16)
	if err != nil {
		return nil, err
	}
	// little endian on the wire
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[15-i] = b[i]
	}
	return new(big.Int).SetBytes(be), nil
}

func checkDiscriminator(r *reader, want []byte, kind string) error {
	got, err := r.take(8)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("not a %s account: discriminator mismatch", kind)
	}
	return nil
}

// DecodeObligation decodes a raw obligation account payload.
func DecodeObligation(address string, data []byte) (*Obligation, error) {
	r := &reader{data: data}
	if err := checkDiscriminator(r, DiscriminatorObligation, "obligation"); err != nil {
		return nil, err
	}
	market, err := r.pubkey()
	if err != nil {
		return nil, err
	}
	owner, err := r.pubkey()
	if err != nil {
		return nil, err
	}
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	ob := &Obligation{Address: address, Market: market, Owner: owner}
	for i := uint32(0); i < count; i++ {
		mint, err := r.pubkey()
		if err != nil {
			return nil, err
		}
		deposit, err := r.u128()
		if err != nil {
			return nil, err
		}
		borrow, err := r.u128()
		if err != nil {
			return nil, err
		}
		ob.Positions = append(ob.Positions, Position{
			Mint:             mint,
			DepositSharesQ60: deposit,
			BorrowSharesQ60:  borrow,
		})
	}
	return ob, nil
}

// DecodePool decodes the factor slice of a pool account payload.
func DecodePool(address string, data []byte) (*Pool, error) {
	r := &reader{data: data}
	if err := checkDiscriminator(r, DiscriminatorPool, "pool"); err != nil {
		return nil, err
	}
	market, err := r.pubkey()
	if err != nil {
		return nil, err
	}
	mint, err := r.pubkey()
	if err != nil {
		return nil, err
	}
	if _, err := r.pubkey(); err != nil { // vault, unused here
		return nil, err
	}
	borrowFac, err := r.u128()
	if err != nil {
		return nil, err
	}
	depositFac, err := r.u128()
	if err != nil {
		return nil, err
	}
	return &Pool{
		Address: address,
		Market:  market,
		Mint:    mint,
		Factors: PoolFactors{DepositFacQ60: depositFac, BorrowFacQ60: borrowFac},
	}, nil
}

// DecodeRiskRegistry decodes a risk registry account payload.
func DecodeRiskRegistry(data []byte) (*RiskRegistry, error) {
	r := &reader{data: data}
	if err := checkDiscriminator(r, DiscriminatorRiskRegistry, "risk registry"); err != nil {
		return nil, err
	}
	market, err := r.pubkey()
	if err != nil {
		return nil, err
	}
	if _, err := r.take(1); err != nil { // bump
		return nil, err
	}
	dim, err := r.u16()
	if err != nil {
		return nil, err
	}
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	reg := &RiskRegistry{Market: market, Dim: dim}
	for i := uint32(0); i < count; i++ {
		ltv, err := r.u16()
		if err != nil {
			return nil, err
		}
		threshold, err := r.u16()
		if err != nil {
			return nil, err
		}
		bonus, err := r.u16()
		if err != nil {
			return nil, err
		}
		reg.Pairs = append(reg.Pairs, RiskPair{
			LtvBps:          ltv,
			LiqThresholdBps: threshold,
			LiqBonusBps:     bonus,
		})
	}
	return reg, nil
}

// DecodeAssetRegistry decodes an asset registry account payload.
func DecodeAssetRegistry(data []byte) (*AssetRegistry, error) {
	r := &reader{data: data}
	if err := checkDiscriminator(r, DiscriminatorAssetRegistry, "asset registry"); err != nil {
		return nil, err
	}
	market, err := r.pubkey()
	if err != nil {
		return nil, err
	}
	if _, err := r.take(1); err != nil { // bump
		return nil, err
	}
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	vecLen, err := r.u32()
	if err != nil {
		return nil, err
	}
	reg := &AssetRegistry{Market: market, Count: count}
	for i := uint32(0); i < vecLen; i++ {
		mint, err := r.pubkey()
		if err != nil {
			return nil, err
		}
		if _, err := r.take(32 + 66); err != nil { // pyth price account + feed id
			return nil, err
		}
		rest, err := r.take(4) // decimals, enabled flag, index
		if err != nil {
			return nil, err
		}
		reg.Assets = append(reg.Assets, AssetMeta{
			Mint:                mint,
			Decimals:            rest[0],
			EnabledAsCollateral: rest[1] != 0,
			Index:               binary.LittleEndian.Uint16(rest[2:]),
		})
	}
	return reg, nil
}

// IndexByMint returns the mint -> registry index join.
func (r *AssetRegistry) IndexByMint() map[string]uint16 {
	m := make(map[string]uint16, len(r.Assets))
	for _, a := range r.Assets {
		m[a.Mint] = a.Index
	}
	return m
}

// SharesToAmount converts Q60 shares into a UI-unit token amount:
// atomic = (shares * factor) >> 60, then scaled down by 10^decimals.
func SharesToAmount(sharesQ60, factorQ60 *big.Int, decimals int) float64 {
	if sharesQ60 == nil || factorQ60 == nil {
		return 0
	}
	atomic := new(big.Int).Mul(sharesQ60, factorQ60)
	atomic.Rsh(atomic, q60Shift)
	f, _ := new(big.Float).SetInt(atomic).Float64()
	return f / math.Pow10(decimals)
}
