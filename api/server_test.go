package api

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hedgewtf/zodial-watcher/assets"
	"github.com/hedgewtf/zodial-watcher/cache"
	"github.com/hedgewtf/zodial-watcher/chain"
	"github.com/hedgewtf/zodial-watcher/common/logging"
	"github.com/hedgewtf/zodial-watcher/leaderboard"
)

var (
	apiProgramID = pubkey(0x70)
	apiMarket    = pubkey(0x07)
	apiOwner     = pubkey(0x51)
	apiMint      = pubkey(0xa1)
	apiFacOne    = new(big.Int).Lsh(big.NewInt(1), 60)
)

func pubkey(b byte) string {
	return base58.Encode(bytes.Repeat([]byte{b}, 32))
}

func u128le(v *big.Int) []byte {
	be := v.Bytes()
	le := make([]byte, 16)
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	return le
}

func obligationData(owner string, depositShares uint64) []byte {
	buf := append([]byte{}, chain.DiscriminatorObligation...)
	buf = append(buf, base58.Decode(apiMarket)...)
	buf = append(buf, base58.Decode(owner)...)
	buf = binary.LittleEndian.AppendUint32(buf, 1)
	buf = append(buf, base58.Decode(apiMint)...)
	buf = append(buf, u128le(new(big.Int).SetUint64(depositShares))...)
	buf = append(buf, u128le(big.NewInt(0))...)
	return append(buf, 0)
}

func poolData() []byte {
	buf := append([]byte{}, chain.DiscriminatorPool...)
	buf = append(buf, base58.Decode(apiMarket)...)
	buf = append(buf, base58.Decode(apiMint)...)
	buf = append(buf, bytes.Repeat([]byte{0xee}, 32)...)
	buf = append(buf, u128le(apiFacOne)...)
	buf = append(buf, u128le(apiFacOne)...)
	return buf
}

type stubFetcher struct {
	obligations []*chain.Account
	failScan    bool
}

func (f *stubFetcher) GetAccounts(addresses []string) ([]*chain.Account, error) {
	byAddr := make(map[string]*chain.Account)
	for _, acc := range f.obligations {
		byAddr[acc.Address] = acc
	}
	out := make([]*chain.Account, len(addresses))
	for i, addr := range addresses {
		out[i] = byAddr[addr]
	}
	return out, nil
}

func (f *stubFetcher) GetProgramAccounts(
	programID string,
	filters []chain.Memcmp,
	withData bool,
) ([]*chain.Account, error) {
	if f.failScan {
		return nil, leaderboard.TEST_ERROR
	}
	if bytes.Equal(filters[0].Bytes, chain.DiscriminatorPool) {
		return []*chain.Account{{Address: pubkey(0x21), Data: poolData()}}, nil
	}
	out := make([]*chain.Account, 0, len(f.obligations))
	for _, acc := range f.obligations {
		if !withData {
			out = append(out, &chain.Account{Address: acc.Address})
			continue
		}
		if len(filters) > 2 && !bytes.Equal(filters[2].Bytes, acc.Data[40:72]) {
			continue
		}
		out = append(out, acc)
	}
	return out, nil
}

func newTestServer(t *testing.T, fetcher *stubFetcher) *LBServer {
	logging.Initialize("api-test")
	logger := logging.NewLoggerTag("api-test")
	table := assets.NewTable([]*assets.Asset{
		{Symbol: "AAA", Mint: apiMint, CmcID: 1, Decimals: 6, Price: decimal.NewFromInt(2)},
	})
	agg, err := leaderboard.NewAggregator(
		logger, fetcher, cache.NewServer(logger), table, apiProgramID, apiMarket,
	)
	require.NoError(t, err)
	return NewLBServer(context.Background(), logger, agg, 9487, 0)
}

func defaultFetcher() *stubFetcher {
	return &stubFetcher{obligations: []*chain.Account{
		{Address: pubkey(0x01), Data: obligationData(apiOwner, 50_000_000)},
		{Address: pubkey(0x02), Data: obligationData(pubkey(0x52), 10_000_000)},
	}}
}

func TestOnQueryLeaderboard(t *testing.T) {
	server := newTestServer(t, defaultFetcher())

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/leaderboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "public, s-maxage=30, stale-while-revalidate=60", rec.Header().Get("Cache-Control"))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp LeaderboardResp
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.False(t, resp.Cached)
	require.Equal(t, 2, resp.ObligationCount)
	require.Equal(t, 1, resp.Page)
	require.Equal(t, leaderboard.DefaultPageSize, resp.PageSize)
	require.Len(t, resp.Leaderboard, 2)
	require.Equal(t, "100", resp.Leaderboard[0].PortfolioValue)
	require.Equal(t, "20", resp.Leaderboard[1].PortfolioValue)
	require.Greater(t, resp.ScannedAt, int64(0))
}

func TestOnQueryLeaderboardPaging(t *testing.T) {
	server := newTestServer(t, defaultFetcher())

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec,
		httptest.NewRequest("GET", "/leaderboard?page=2&pageSize=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LeaderboardResp
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 2, resp.Page)
	require.Equal(t, 1, resp.PageSize)
	require.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Leaderboard, 1)
	require.Equal(t, "20", resp.Leaderboard[0].PortfolioValue)
}

func TestOnQueryLeaderboardBadParams(t *testing.T) {
	server := newTestServer(t, defaultFetcher())

	for _, target := range []string{
		"/leaderboard?page=abc",
		"/leaderboard?page=0",
		"/leaderboard?pageSize=-3",
	} {
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, target)

		var msg struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
		require.Equal(t, "invalid parameter", msg.Error)
	}
}

func TestOnQueryLeaderboardScanFailure(t *testing.T) {
	fetcher := defaultFetcher()
	fetcher.failScan = true
	server := newTestServer(t, fetcher)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/leaderboard", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var msg struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	require.Equal(t, "internal error", msg.Error)
	require.NotEmpty(t, msg.Message)
}

func TestOnQueryObligations(t *testing.T) {
	server := newTestServer(t, defaultFetcher())

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec,
		httptest.NewRequest("GET", "/obligations?owner="+apiOwner, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var views []*leaderboard.ObligationView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
	require.Len(t, views, 1)
	require.Equal(t, apiOwner, views[0].Owner)
	require.Len(t, views[0].Positions, 1)
	require.InDelta(t, 50.0, views[0].Positions[0].DepositAmount, 1e-9)

	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec,
		httptest.NewRequest("GET", "/obligations?owner=short", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOnQueryHealthCheckup(t *testing.T) {
	server := newTestServer(t, defaultFetcher())

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/healthCheckup", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "alive", resp["message"])
	require.Equal(t, false, resp["scanning"])
}
