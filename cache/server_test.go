package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hedgewtf/zodial-watcher/common/logging"
	"github.com/hedgewtf/zodial-watcher/types"
)

func TestServerGetSet(t *testing.T) {
	logging.Initialize("cache-test")
	s := NewServer(logging.NewLoggerTag("cache-test"))

	require.Nil(t, s.Get(types.CacheKeyPoolFactors))

	entry := s.Set(types.CacheKeyPoolFactors, "factors", TTLPoolFactors)
	require.Greater(t, entry.ExpiresAt, entry.ScannedAt)

	got := s.Get(types.CacheKeyPoolFactors)
	require.NotNil(t, got)
	require.Equal(t, "factors", got.Data)
	require.Equal(t, entry.ScannedAt, got.ScannedAt)
}

func TestServerExpiry(t *testing.T) {
	logging.Initialize("cache-test")
	s := NewServer(logging.NewLoggerTag("cache-test"))

	now := time.Now()
	s.SetNowFunc(func() time.Time { return now })
	s.Set(types.CacheKeyObligationPDAs, []string{"a", "b"}, TTLObligationPDAs)

	// still live just before the deadline
	s.SetNowFunc(func() time.Time { return now.Add(TTLObligationPDAs - time.Second) })
	require.NotNil(t, s.Get(types.CacheKeyObligationPDAs))

	// expired entries are evicted on read
	s.SetNowFunc(func() time.Time { return now.Add(TTLObligationPDAs + time.Second) })
	require.Nil(t, s.Get(types.CacheKeyObligationPDAs))

	// and stay gone even if the clock goes back
	s.SetNowFunc(func() time.Time { return now })
	require.Nil(t, s.Get(types.CacheKeyObligationPDAs))
}

func TestServerClear(t *testing.T) {
	logging.Initialize("cache-test")
	s := NewServer(logging.NewLoggerTag("cache-test"))

	s.Set(types.CacheKeyLeaderboard, 1, TTLLeaderboard)
	s.Set(types.CacheKeyObligationPDAs, 2, TTLObligationPDAs)

	s.Clear(types.CacheKeyLeaderboard)
	require.Nil(t, s.Get(types.CacheKeyLeaderboard))
	require.NotNil(t, s.Get(types.CacheKeyObligationPDAs))

	s.ClearAll()
	require.Nil(t, s.Get(types.CacheKeyObligationPDAs))
}
