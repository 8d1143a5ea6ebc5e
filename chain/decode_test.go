package chain

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/require"
)

var (
	testMarket = testPubkey(1)
	testOwner  = testPubkey(2)
	testMint   = testPubkey(3)
	testVault  = testPubkey(4)
)

// testPubkey returns a 32-byte pubkey with a recognizable first byte.
func testPubkey(b byte) []byte {
	key := make([]byte, 32)
	key[0] = b
	return key
}

func appendU128(data []byte, v *big.Int) []byte {
	le := make([]byte, 16)
	be := v.Bytes()
	for i := 0; i < len(be); i++ {
		le[i] = be[len(be)-1-i]
	}
	return append(data, le...)
}

func buildObligation(positions int) []byte {
	data := append([]byte{}, DiscriminatorObligation...)
	data = append(data, testMarket...)
	data = append(data, testOwner...)
	data = binary.LittleEndian.AppendUint32(data, uint32(positions))
	for i := 0; i < positions; i++ {
		data = append(data, testMint...)
		data = appendU128(data, big.NewInt(int64(1000+i)))
		data = appendU128(data, big.NewInt(int64(i)))
	}
	data = append(data, 255) // bump
	return data
}

func TestDecodeObligation(t *testing.T) {
	ob, err := DecodeObligation("ObAddr", buildObligation(2))
	require.NoError(t, err)
	require.Equal(t, "ObAddr", ob.Address)
	require.Equal(t, base58.Encode(testMarket), ob.Market)
	require.Equal(t, base58.Encode(testOwner), ob.Owner)
	require.Len(t, ob.Positions, 2)
	require.Equal(t, int64(1000), ob.Positions[0].DepositSharesQ60.Int64())
	require.Equal(t, int64(1), ob.Positions[1].BorrowSharesQ60.Int64())
}

func TestDecodeObligationBadData(t *testing.T) {
	_, err := DecodeObligation("x", []byte{1, 2, 3})
	require.Error(t, err)

	// wrong discriminator
	data := buildObligation(1)
	data[0] ^= 0xff
	_, err = DecodeObligation("x", data)
	require.Error(t, err)

	// truncated position vector
	data = buildObligation(2)
	_, err = DecodeObligation("x", data[:len(data)-40])
	require.Error(t, err)
}

func TestDecodePool(t *testing.T) {
	one := new(big.Int).Lsh(big.NewInt(1), 60)
	borrowFac := new(big.Int).Add(one, big.NewInt(12345))

	data := append([]byte{}, DiscriminatorPool...)
	data = append(data, testMarket...)
	data = append(data, testMint...)
	data = append(data, testVault...)
	data = appendU128(data, borrowFac)
	data = appendU128(data, one)

	pool, err := DecodePool("PoolAddr", data)
	require.NoError(t, err)
	require.Equal(t, base58.Encode(testMint), pool.Mint)
	require.Equal(t, 0, pool.Factors.DepositFacQ60.Cmp(one))
	require.Equal(t, 0, pool.Factors.BorrowFacQ60.Cmp(borrowFac))
}

func TestDecodeRiskRegistry(t *testing.T) {
	data := append([]byte{}, DiscriminatorRiskRegistry...)
	data = append(data, testMarket...)
	data = append(data, 254) // bump
	data = binary.LittleEndian.AppendUint16(data, 2)
	data = binary.LittleEndian.AppendUint32(data, 4)
	for i := 0; i < 4; i++ {
		data = binary.LittleEndian.AppendUint16(data, uint16(8000+i))
		data = binary.LittleEndian.AppendUint16(data, uint16(9300+i))
		data = binary.LittleEndian.AppendUint16(data, uint16(500+i))
	}

	reg, err := DecodeRiskRegistry(data)
	require.NoError(t, err)
	require.Equal(t, uint16(2), reg.Dim)
	require.Len(t, reg.Pairs, 4)
	require.Equal(t, uint16(9302), reg.Pairs[2].LiqThresholdBps)
}

func TestDecodeAssetRegistry(t *testing.T) {
	data := append([]byte{}, DiscriminatorAssetRegistry...)
	data = append(data, testMarket...)
	data = append(data, 253) // bump
	data = binary.LittleEndian.AppendUint16(data, 1)
	data = binary.LittleEndian.AppendUint32(data, 1)
	data = append(data, testMint...)
	data = append(data, make([]byte, 32+66)...)
	data = append(data, 9, 1)
	data = binary.LittleEndian.AppendUint16(data, 7)

	reg, err := DecodeAssetRegistry(data)
	require.NoError(t, err)
	require.Len(t, reg.Assets, 1)
	require.Equal(t, uint8(9), reg.Assets[0].Decimals)
	require.True(t, reg.Assets[0].EnabledAsCollateral)
	require.Equal(t, uint16(7), reg.Assets[0].Index)

	idx := reg.IndexByMint()
	require.Equal(t, uint16(7), idx[base58.Encode(testMint)])
}

func TestSharesToAmount(t *testing.T) {
	one := new(big.Int).Lsh(big.NewInt(1), 60) // factor exactly 1.0

	// 1e6 atomic units at factor 1.0 with 6 decimals is one whole token
	shares := big.NewInt(1_000_000)
	require.InDelta(t, 1.0, SharesToAmount(shares, one, 6), 1e-12)

	// factor 1.5 accrues half again
	factor := new(big.Int).Add(one, new(big.Int).Lsh(big.NewInt(1), 59))
	require.InDelta(t, 1.5, SharesToAmount(shares, factor, 6), 1e-12)

	require.Equal(t, 0.0, SharesToAmount(nil, one, 6))
	require.Equal(t, 0.0, SharesToAmount(big.NewInt(0), one, 6))
}
