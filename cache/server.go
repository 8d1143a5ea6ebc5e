package cache

import (
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/hedgewtf/zodial-watcher/common/logging"
	"github.com/hedgewtf/zodial-watcher/types"
)

// TTLs of the server cache slots. Pool exchange factors only grow and
// grow slowly, so a day-old snapshot is close enough for ranking.
const (
	TTLLeaderboard    = 30 * time.Second
	TTLObligationPDAs = 5 * time.Minute
	TTLPoolFactors    = 24 * time.Hour
)

// Entry is one cached value. ExpiresAt is always after ScannedAt;
// entries past ExpiresAt are treated as absent and evicted on read.
type Entry struct {
	Data      interface{}
	ScannedAt int64 // epoch ms
	ExpiresAt int64 // epoch ms
}

// Server is the in-process cache shared by every request for the
// process lifetime. Writes replace the whole entry, reads never see a
// partially written value.
type Server struct {
	logger  logging.Logger
	entries *xsync.Map[types.CacheKey, *Entry]
	nowFn   func() time.Time
}

// NewServer returns an empty server cache.
func NewServer(logger logging.Logger) *Server {
	return &Server{
		logger:  logger,
		entries: xsync.NewMap[types.CacheKey, *Entry](),
		nowFn:   time.Now,
	}
}

// Get returns the live entry for key, or nil on a miss. An expired
// entry counts as a miss and is dropped.
func (s *Server) Get(key types.CacheKey) *Entry {
	cached, ok := s.entries.Load(key)
	if !ok {
		s.logger.Debug("cache miss for %s", key)
		return nil
	}
	now := s.nowMs()
	if now > cached.ExpiresAt {
		s.logger.Debug("cache expired for %s", key)
		s.entries.Delete(key)
		return nil
	}
	s.logger.Debug("cache hit for %s, expires in %ds", key, (cached.ExpiresAt-now)/1000)
	return cached
}

// Set stores data under key for ttl and returns the stored entry.
func (s *Server) Set(key types.CacheKey, data interface{}, ttl time.Duration) *Entry {
	now := s.nowMs()
	cached := &Entry{
		Data:      data,
		ScannedAt: now,
		ExpiresAt: now + ttl.Milliseconds(),
	}
	s.entries.Store(key, cached)
	s.logger.Debug("cache set for %s, expires in %s", key, ttl)
	return cached
}

// Clear drops one key.
func (s *Server) Clear(key types.CacheKey) {
	s.entries.Delete(key)
	s.logger.Debug("cache cleared for %s", key)
}

// ClearAll drops every key.
func (s *Server) ClearAll() {
	s.entries.Clear()
	s.logger.Debug("cache cleared")
}

// SetNowFunc overrides the clock. Tests only.
func (s *Server) SetNowFunc(fn func() time.Time) {
	s.nowFn = fn
}

func (s *Server) nowMs() int64 {
	return s.nowFn().UnixNano() / int64(time.Millisecond)
}
