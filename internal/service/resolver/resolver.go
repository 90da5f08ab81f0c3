package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/domain/event"
	"github.com/vertextoedge/mcfetch/internal/port"
)

// Resolver serves loader version lists from the cache, refetching
// synchronously once an entry is stale
type Resolver struct {
	fetchers   map[string]port.ManifestFetcher
	cache      *VersionCache
	dispatcher event.EventDispatcher
	logger     *zap.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	refreshes atomic.Int64
}

// New creates a resolver over the given fetchers
func New(fetchers []port.ManifestFetcher, cache *VersionCache, dispatcher event.EventDispatcher, logger *zap.Logger) *Resolver {
	if cache == nil {
		cache = NewVersionCache(DefaultTTL, nil)
	}
	if dispatcher == nil {
		dispatcher = event.NewNullDispatcher()
	}
	r := &Resolver{
		fetchers:   make(map[string]port.ManifestFetcher, len(fetchers)),
		cache:      cache,
		dispatcher: dispatcher,
		logger:     logger,
	}
	for _, f := range fetchers {
		r.fetchers[domain.NormalizeLoaderID(f.Loader())] = f
	}
	return r
}

// Loaders returns the supported loader identifiers, sorted
func (r *Resolver) Loaders() []string {
	out := make([]string, 0, len(r.fetchers))
	for id := range r.fetchers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// GetVersions returns versions for a loader and game version, newest first
func (r *Resolver) GetVersions(ctx context.Context, loaderID, mcVersion string) ([]domain.LoaderVersion, error) {
	loaderID = domain.NormalizeLoaderID(loaderID)
	mcVersion = strings.TrimSpace(mcVersion)
	if mcVersion == "" {
		return nil, fmt.Errorf("%w: game version is required", domain.ErrInvalidInput)
	}

	fetcher, ok := r.fetchers[loaderID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownLoader, loaderID)
	}

	if e, fresh := r.cache.Get(loaderID, mcVersion); e != nil && fresh {
		r.hits.Add(1)
		return e.Versions, nil
	}
	r.misses.Add(1)

	manifest, err := fetcher.FetchManifest(ctx, mcVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s versions for %s: %w", loaderID, mcVersion, err)
	}

	for _, bad := range manifest.Malformed {
		r.logger.Warn("skipping manifest entry",
			zap.String("loader", loaderID),
			zap.String("mc_version", mcVersion),
			zap.Error(domain.NewSkippableError(bad, "malformed entry")))
	}

	versions := domain.ParseAndSort(manifest.Entries)
	r.refreshes.Add(1)
	r.dispatcher.Dispatch(event.NewVersionsRefreshed(loaderID, mcVersion, len(versions), len(manifest.Malformed)))

	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: no %s versions for %s", domain.ErrNotFound, loaderID, mcVersion)
	}

	e := r.cache.Put(loaderID, mcVersion, versions)
	return e.Versions, nil
}

// Latest returns the first version in descending order
func (r *Resolver) Latest(ctx context.Context, loaderID, mcVersion string) (domain.LoaderVersion, error) {
	versions, err := r.GetVersions(ctx, loaderID, mcVersion)
	if err != nil {
		return domain.LoaderVersion{}, err
	}
	return versions[0], nil
}

// Resolve returns the newest version satisfying constraint. Parsed versions
// are matched with semver constraints; unparsed ones only by exact string.
// An empty constraint is the same as Latest.
func (r *Resolver) Resolve(ctx context.Context, loaderID, mcVersion, constraint string) (domain.LoaderVersion, error) {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return r.Latest(ctx, loaderID, mcVersion)
	}

	versions, err := r.GetVersions(ctx, loaderID, mcVersion)
	if err != nil {
		return domain.LoaderVersion{}, err
	}

	c, cerr := semver.NewConstraint(constraint)
	for _, v := range versions {
		if v.Raw == constraint {
			return v, nil
		}
		if cerr == nil && v.Parsed != nil && c.Check(v.Parsed) {
			return v, nil
		}
	}
	return domain.LoaderVersion{}, fmt.Errorf("%w: no %s version for %s matches %q",
		domain.ErrNotFound, loaderID, mcVersion, constraint)
}

// Invalidate drops the cached list for one loader and game version
func (r *Resolver) Invalidate(loaderID, mcVersion string) {
	r.cache.Invalidate(loaderID, mcVersion)
}

// Stats contains resolver counters
type Stats struct {
	Cache     CacheStats `json:"cache"`
	Hits      int64      `json:"hits"`
	Misses    int64      `json:"misses"`
	Refreshes int64      `json:"refreshes"`
}

// Stats returns cache occupancy and hit counters
func (r *Resolver) Stats() Stats {
	return Stats{
		Cache:     r.cache.Stats(),
		Hits:      r.hits.Load(),
		Misses:    r.misses.Load(),
		Refreshes: r.refreshes.Load(),
	}
}
