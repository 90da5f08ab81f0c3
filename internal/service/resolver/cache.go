package resolver

import (
	"sync"
	"time"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/port"
)

// DefaultTTL is how long a fetched version list is served before a refetch
const DefaultTTL = 300 * time.Second

// VersionCache holds sorted version lists per loader and game version.
// It is in-memory only and safe for concurrent use.
type VersionCache struct {
	mu      sync.RWMutex
	entries map[string]*domain.VersionCacheEntry
	ttl     time.Duration
	clock   port.Clock
}

// NewVersionCache creates a cache; a nil clock uses the wall clock
func NewVersionCache(ttl time.Duration, clock port.Clock) *VersionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = port.SystemClock{}
	}
	return &VersionCache{
		entries: make(map[string]*domain.VersionCacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

// TTL returns the configured time-to-live
func (c *VersionCache) TTL() time.Duration {
	return c.ttl
}

// Get returns a copy of the entry and whether it is still fresh
func (c *VersionCache) Get(loaderID, mcVersion string) (*domain.VersionCacheEntry, bool) {
	c.mu.RLock()
	e, ok := c.entries[domain.CacheKey(loaderID, mcVersion)]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return copyEntry(e), !e.IsStale(c.clock.Now(), c.ttl)
}

// Put stores versions stamped with the current time, replacing any entry
func (c *VersionCache) Put(loaderID, mcVersion string, versions []domain.LoaderVersion) *domain.VersionCacheEntry {
	e := &domain.VersionCacheEntry{
		LoaderID:  domain.NormalizeLoaderID(loaderID),
		MCVersion: mcVersion,
		Versions:  append([]domain.LoaderVersion(nil), versions...),
		FetchedAt: c.clock.Now(),
	}
	c.mu.Lock()
	c.entries[domain.CacheKey(loaderID, mcVersion)] = e
	c.mu.Unlock()
	return copyEntry(e)
}

// Invalidate drops one entry
func (c *VersionCache) Invalidate(loaderID, mcVersion string) {
	c.mu.Lock()
	delete(c.entries, domain.CacheKey(loaderID, mcVersion))
	c.mu.Unlock()
}

// Clear drops every entry
func (c *VersionCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*domain.VersionCacheEntry)
	c.mu.Unlock()
}

// CacheStats describes cache occupancy
type CacheStats struct {
	Entries int `json:"entries"`
	Fresh   int `json:"fresh"`
	Stale   int `json:"stale"`
}

// Stats counts entries by freshness
func (c *VersionCache) Stats() CacheStats {
	now := c.clock.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := CacheStats{Entries: len(c.entries)}
	for _, e := range c.entries {
		if e.IsStale(now, c.ttl) {
			s.Stale++
		} else {
			s.Fresh++
		}
	}
	return s
}

func copyEntry(e *domain.VersionCacheEntry) *domain.VersionCacheEntry {
	cp := *e
	cp.Versions = append([]domain.LoaderVersion(nil), e.Versions...)
	return &cp
}
