package types

// AppType specifies app type.
type AppType string

// Watcher AppType enums.
const (
	Watcher AppType = "leaderboard-watch"
)

// CacheKey identifies one slot of the server-side cache. Writes are
// full-value replacements, so two requests refreshing the same key at
// the same time is wasteful but never incorrect.
type CacheKey string

// CacheKey enums, shared by the aggregator and the api server.
const (
	CacheKeyLeaderboard    CacheKey = "leaderboard_data"
	CacheKeyObligationPDAs CacheKey = "obligation_pdas"
	CacheKeyPoolFactors    CacheKey = "pool_factors"
)
