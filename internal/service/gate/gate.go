package gate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

// DefaultLimits returns the per-type concurrency limits used when none are configured
func DefaultLimits() map[domain.ResourceType]int {
	return map[domain.ResourceType]int{
		domain.ResourceLoaderInstaller: 2,
		domain.ResourceServerJar:       2,
		domain.ResourceLibrary:         8,
		domain.ResourceAsset:           12,
		domain.ResourceMod:             4,
		domain.ResourceOther:           4,
	}
}

type pool struct {
	sem      *semaphore.Weighted
	limit    int64
	inFlight atomic.Int64
}

// Gate bounds simultaneous transfers per resource type, with an optional
// ceiling across all types
type Gate struct {
	pools  map[domain.ResourceType]*pool
	global *pool
}

// New creates a gate. Types missing from limits use DefaultLimits;
// a non-positive global disables the global ceiling.
func New(limits map[domain.ResourceType]int, global int) (*Gate, error) {
	defaults := DefaultLimits()
	g := &Gate{pools: make(map[domain.ResourceType]*pool, len(defaults))}

	for _, rt := range domain.ResourceTypes() {
		n, ok := limits[rt]
		if !ok || n == 0 {
			n = defaults[rt]
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: negative concurrency %d for %s", domain.ErrInvalidInput, n, rt)
		}
		g.pools[rt] = &pool{sem: semaphore.NewWeighted(int64(n)), limit: int64(n)}
	}
	for rt := range limits {
		if !rt.IsValid() {
			return nil, fmt.Errorf("%w: unknown resource type %q", domain.ErrInvalidInput, rt)
		}
	}

	if global > 0 {
		g.global = &pool{sem: semaphore.NewWeighted(int64(global)), limit: int64(global)}
	}
	return g, nil
}

// Permit is one held transfer slot
type Permit struct {
	once     sync.Once
	typePool *pool
	global   *pool
}

// Release returns the slot; calling it more than once is a no-op
func (p *Permit) Release() {
	p.once.Do(func() {
		if p.global != nil {
			p.global.inFlight.Add(-1)
			p.global.sem.Release(1)
		}
		p.typePool.inFlight.Add(-1)
		p.typePool.sem.Release(1)
	})
}

// Acquire blocks until a slot for rt is free or ctx is done.
// The type permit is taken before the global one.
func (g *Gate) Acquire(ctx context.Context, rt domain.ResourceType) (*Permit, error) {
	p, ok := g.pools[rt]
	if !ok {
		return nil, fmt.Errorf("%w: unknown resource type %q", domain.ErrInvalidInput, rt)
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	p.inFlight.Add(1)

	if g.global != nil {
		if err := g.global.sem.Acquire(ctx, 1); err != nil {
			p.inFlight.Add(-1)
			p.sem.Release(1)
			return nil, err
		}
		g.global.inFlight.Add(1)
	}

	return &Permit{typePool: p, global: g.global}, nil
}

// InFlight returns the number of held permits for rt
func (g *Gate) InFlight(rt domain.ResourceType) int64 {
	if p, ok := g.pools[rt]; ok {
		return p.inFlight.Load()
	}
	return 0
}

// Limit returns the configured limit for rt
func (g *Gate) Limit(rt domain.ResourceType) int64 {
	if p, ok := g.pools[rt]; ok {
		return p.limit
	}
	return 0
}

// PoolStats describes one pool's state
type PoolStats struct {
	Limit    int64 `json:"limit"`
	InFlight int64 `json:"in_flight"`
}

// Snapshot returns per-type pool state, plus "global" when enabled
func (g *Gate) Snapshot() map[string]PoolStats {
	out := make(map[string]PoolStats, len(g.pools)+1)
	for rt, p := range g.pools {
		out[rt.String()] = PoolStats{Limit: p.limit, InFlight: p.inFlight.Load()}
	}
	if g.global != nil {
		out["global"] = PoolStats{Limit: g.global.limit, InFlight: g.global.inFlight.Load()}
	}
	return out
}
