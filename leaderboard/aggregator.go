package leaderboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/shopspring/decimal"
	"go.uber.org/atomic"

	"github.com/hedgewtf/zodial-watcher/assets"
	"github.com/hedgewtf/zodial-watcher/cache"
	"github.com/hedgewtf/zodial-watcher/chain"
	"github.com/hedgewtf/zodial-watcher/common/logging"
	"github.com/hedgewtf/zodial-watcher/types"
)

// Binary filter offsets shared by all zodial accounts: the market
// pubkey sits right after the 8-byte discriminator.
const (
	marketFilterOffset = 8
	ownerFilterOffset  = 40
)

// fetchBatchSize is the number of addresses per getMultipleAccounts
// call. The fetch collaborator must tolerate at least this many.
const fetchBatchSize = 100

// DefaultPageSize is used when a request does not specify one.
const DefaultPageSize = 100

// Entry is one ranked leaderboard row. PortfolioValue keeps the wire
// string form, Net carries the numeric ranking key.
type Entry struct {
	Account          string  `json:"account"`
	Owner            string  `json:"owner"`
	PortfolioValue   string  `json:"portfolio_value"`
	TotalDepositsUsd float64 `json:"totalDepositsUsd"`
	TotalBorrowsUsd  float64 `json:"totalBorrowsUsd"`

	Net float64 `json:"-"`
}

// Request selects one leaderboard page.
type Request struct {
	ForceRefresh bool
	Page         int
	PageSize     int
}

// Result is one leaderboard response.
type Result struct {
	Cached          bool
	Entries         []*Entry
	ObligationCount int
	Page            int
	PageSize        int
	ScannedAt       int64
	TotalEntries    int
	TotalPages      int
}

// Aggregator runs the scan -> value -> rank -> paginate pipeline over
// the configured market, backed by the shared server cache.
type Aggregator struct {
	logger  logging.Logger
	fetcher chain.AccountFetcher
	cache   *cache.Server
	table   *assets.Table

	programID string
	market    string

	scanning atomic.Bool
}

// NewAggregator wires the aggregator. market and programID are
// canonical base58 addresses.
func NewAggregator(
	logger logging.Logger,
	fetcher chain.AccountFetcher,
	srvCache *cache.Server,
	table *assets.Table,
	programID string,
	market string,
) (*Aggregator, error) {
	if programID == "" || len(base58.Decode(programID)) != 32 {
		return nil, fmt.Errorf("invalid program id %q", programID)
	}
	if market == "" || len(base58.Decode(market)) != 32 {
		return nil, fmt.Errorf("invalid market address %q", market)
	}
	return &Aggregator{
		logger:    logger,
		fetcher:   fetcher,
		cache:     srvCache,
		table:     table,
		programID: programID,
		market:    market,
	}, nil
}

// snapshot is one fully ranked leaderboard, cached whole so every
// page of it paginates the same scan.
type snapshot struct {
	entries   []*Entry
	scannedAt int64
}

// Leaderboard produces one ranked page. The ranked snapshot is read
// through the 30s cache slot, pool factors through the 24h slot and
// the obligation address list through the 5m slot; ForceRefresh
// bypasses all reads but still writes through.
func (a *Aggregator) Leaderboard(req Request) (*Result, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	if !req.ForceRefresh {
		if cached := a.cache.Get(types.CacheKeyLeaderboard); cached != nil {
			snap := cached.Data.(*snapshot)
			a.logger.Debug("serving leaderboard from cache: %d entries", len(snap.entries))
			return a.paginate(snap, page, pageSize, true), nil
		}
	}

	// pool factors must be complete before any valuation starts
	pools, err := a.poolFactors(req.ForceRefresh)
	if err != nil {
		return nil, err
	}

	obligations, scannedAt, err := a.fetchObligations(req.ForceRefresh)
	if err != nil {
		return nil, err
	}

	snap := &snapshot{entries: a.rank(obligations, pools), scannedAt: scannedAt}
	a.cache.Set(types.CacheKeyLeaderboard, snap, cache.TTLLeaderboard)
	return a.paginate(snap, page, pageSize, false), nil
}

func (a *Aggregator) paginate(snap *snapshot, page, pageSize int, cached bool) *Result {
	totalEntries := len(snap.entries)
	totalPages := (totalEntries + pageSize - 1) / pageSize
	offset := (page - 1) * pageSize
	if offset > totalEntries {
		offset = totalEntries
	}
	end := offset + pageSize
	if end > totalEntries {
		end = totalEntries
	}

	return &Result{
		Cached:          cached,
		Entries:         snap.entries[offset:end],
		ObligationCount: totalEntries,
		Page:            page,
		PageSize:        pageSize,
		ScannedAt:       snap.scannedAt,
		TotalEntries:    totalEntries,
		TotalPages:      totalPages,
	}
}

// Scanning reports whether a full program scan is in flight.
func (a *Aggregator) Scanning() bool {
	return a.scanning.Load()
}

// poolFactors returns the mint -> factors snapshot, fetching from the
// chain on a cache miss or forced refresh.
func (a *Aggregator) poolFactors(force bool) (map[string]*chain.PoolFactors, error) {
	if !force {
		if cached := a.cache.Get(types.CacheKeyPoolFactors); cached != nil {
			pools := cached.Data.(map[string]*chain.PoolFactors)
			a.logger.Debug("using cached pool factors: %d pools", len(pools))
			return pools, nil
		}
	}

	accounts, err := a.fetcher.GetProgramAccounts(a.programID, []chain.Memcmp{
		{Offset: 0, Bytes: chain.DiscriminatorPool},
		{Offset: marketFilterOffset, Bytes: base58.Decode(a.market)},
	}, true)
	if err != nil {
		return nil, fmt.Errorf("fail to scan pool accounts: %w", err)
	}

	pools := make(map[string]*chain.PoolFactors, len(accounts))
	for _, acc := range accounts {
		pool, err := chain.DecodePool(acc.Address, acc.Data)
		if err != nil {
			a.logger.Error("fail to decode pool %s: %s", acc.Address, err)
			continue
		}
		factors := pool.Factors
		pools[pool.Mint] = &factors
	}
	if len(pools) == 0 {
		// no pools means the market does not exist or is empty;
		// nothing can be valued, so this request cannot proceed
		return nil, fmt.Errorf("no pools found for market %s", a.market)
	}

	for _, mint := range a.table.Mints() {
		if _, ok := pools[mint]; !ok {
			a.logger.Warn("pool not found for listed mint %s", mint)
		}
	}

	a.cache.Set(types.CacheKeyPoolFactors, pools, cache.TTLPoolFactors)
	a.logger.Info("cached %d pool factors", len(pools))
	return pools, nil
}

// fetchObligations resolves the obligation address list (cached fast
// path or full program scan) and fetches current contents for it.
func (a *Aggregator) fetchObligations(force bool) ([]*chain.Obligation, int64, error) {
	var pdas []string
	var scannedAt int64
	cachedList := false

	if !force {
		if cached := a.cache.Get(types.CacheKeyObligationPDAs); cached != nil {
			if list := cached.Data.([]string); len(list) > 0 {
				pdas = list
				scannedAt = cached.ScannedAt
				cachedList = true
				a.logger.Debug("using cached obligation addresses: %d", len(pdas))
			}
		}
	}

	if !cachedList {
		a.scanning.Store(true)
		defer a.scanning.Store(false)

		a.logger.Info("performing full obligation scan for market %s", a.market)
		accounts, err := a.fetcher.GetProgramAccounts(a.programID, []chain.Memcmp{
			{Offset: 0, Bytes: chain.DiscriminatorObligation},
			{Offset: marketFilterOffset, Bytes: base58.Decode(a.market)},
		}, false)
		if err != nil {
			return nil, 0, fmt.Errorf("fail to scan obligations: %w", err)
		}
		pdas = make([]string, len(accounts))
		for i, acc := range accounts {
			pdas[i] = acc.Address
		}
		entry := a.cache.Set(types.CacheKeyObligationPDAs, pdas, cache.TTLObligationPDAs)
		scannedAt = entry.ScannedAt
		a.logger.Info("found %d obligations for market", len(pdas))
	}

	obligations, err := a.fetchObligationContents(pdas)
	if err != nil {
		return nil, 0, err
	}
	if scannedAt == 0 {
		scannedAt = time.Now().UnixNano() / int64(time.Millisecond)
	}
	return obligations, scannedAt, nil
}

// fetchObligationContents fetches and decodes obligations in batches.
// A record that fails to decode is logged and dropped, never aborting
// the scan.
func (a *Aggregator) fetchObligationContents(pdas []string) ([]*chain.Obligation, error) {
	obligations := make([]*chain.Obligation, 0, len(pdas))
	for start := 0; start < len(pdas); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(pdas) {
			end = len(pdas)
		}
		accounts, err := a.fetcher.GetAccounts(pdas[start:end])
		if err != nil {
			return nil, fmt.Errorf("fail to fetch obligation contents: %w", err)
		}
		for _, acc := range accounts {
			if acc == nil {
				// closed since the address scan
				continue
			}
			ob, err := chain.DecodeObligation(acc.Address, acc.Data)
			if err != nil {
				a.logger.Error("fail to decode obligation %s: %s", acc.Address, err)
				continue
			}
			obligations = append(obligations, ob)
		}
	}
	a.logger.Debug("fetched %d obligation accounts", len(obligations))
	return obligations, nil
}

// rank values every obligation and sorts descending by net portfolio
// value. The sort is stable, ties keep scan order.
func (a *Aggregator) rank(obligations []*chain.Obligation, pools map[string]*chain.PoolFactors) []*Entry {
	prices := a.table.PriceMap()
	decimals := a.table.DecimalsMap()

	entries := make([]*Entry, 0, len(obligations))
	for _, ob := range obligations {
		v := ValueObligation(a.logger, ob, pools, prices, decimals)
		if v.ValuedPositions == 0 && v.SkippedPositions > 0 {
			// every live position was unvaluable, drop the record
			a.logger.Warn("dropping unvaluable obligation %s", ob.Address)
			continue
		}
		entries = append(entries, &Entry{
			Account:          ob.Address,
			Owner:            ob.Owner,
			PortfolioValue:   decimal.NewFromFloat(v.NetUsd).String(),
			TotalDepositsUsd: v.DepositsUsd,
			TotalBorrowsUsd:  v.BorrowsUsd,
			Net:              v.NetUsd,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Net > entries[j].Net
	})
	return entries
}
