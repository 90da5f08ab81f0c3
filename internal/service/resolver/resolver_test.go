package resolver

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/domain/event"
	"github.com/vertextoedge/mcfetch/internal/port"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// mockFetcher serves canned entries and counts calls
type mockFetcher struct {
	loader    string
	entries   map[string][]string
	malformed int
	err       error
	calls     atomic.Int64
}

func (m *mockFetcher) Loader() string { return m.loader }

func (m *mockFetcher) FetchManifest(ctx context.Context, mcVersion string) (*domain.Manifest, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	manifest := &domain.Manifest{Loader: m.loader, MCVersion: mcVersion, Entries: m.entries[mcVersion]}
	for i := 0; i < m.malformed; i++ {
		manifest.Malformed = append(manifest.Malformed, &domain.MetadataParseError{Loader: m.loader, Entry: "{}"})
	}
	return manifest, nil
}

func newTestResolver(fetchers ...port.ManifestFetcher) (*Resolver, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewVersionCache(DefaultTTL, clock)
	return New(fetchers, cache, event.NewInMemoryDispatcher(false), zap.NewNop()), clock
}

func TestResolver_GetVersionsSorted(t *testing.T) {
	f := &mockFetcher{
		loader:    domain.LoaderFabric,
		entries:   map[string][]string{"1.20.1": {"1.2.0", "1.10.0", "bogus", "1.3.0"}},
		malformed: 2,
	}
	r, _ := newTestResolver(f)

	versions, err := r.GetVersions(context.Background(), "Fabric", "1.20.1")
	if err != nil {
		t.Fatalf("GetVersions() error = %v", err)
	}
	got := domain.VersionStrings(versions)
	want := []string{"1.10.0", "1.3.0", "1.2.0", "bogus"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetVersions() = %v, want %v", got, want)
	}
}

func TestResolver_TTL(t *testing.T) {
	f := &mockFetcher{
		loader:  domain.LoaderQuilt,
		entries: map[string][]string{"1.20.1": {"0.26.0"}},
	}
	r, clock := newTestResolver(f)
	ctx := context.Background()

	if _, err := r.GetVersions(ctx, domain.LoaderQuilt, "1.20.1"); err != nil {
		t.Fatal(err)
	}
	clock.Advance(299 * time.Second)
	if _, err := r.GetVersions(ctx, domain.LoaderQuilt, "1.20.1"); err != nil {
		t.Fatal(err)
	}
	if got := f.calls.Load(); got != 1 {
		t.Fatalf("fetch count within TTL = %d, want 1", got)
	}

	// Exactly TTL old is still fresh.
	clock.Advance(time.Second)
	r.GetVersions(ctx, domain.LoaderQuilt, "1.20.1")
	if got := f.calls.Load(); got != 1 {
		t.Fatalf("fetch count at TTL boundary = %d, want 1", got)
	}

	clock.Advance(2 * time.Second)
	if _, err := r.GetVersions(ctx, domain.LoaderQuilt, "1.20.1"); err != nil {
		t.Fatal(err)
	}
	if got := f.calls.Load(); got != 2 {
		t.Errorf("fetch count after TTL = %d, want 2", got)
	}

	s := r.Stats()
	if s.Hits != 2 || s.Misses != 2 || s.Refreshes != 2 || s.Cache.Entries != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestResolver_Invalidate(t *testing.T) {
	f := &mockFetcher{loader: domain.LoaderForge, entries: map[string][]string{"1.20.1": {"1.20.1-47.3.0"}}}
	r, _ := newTestResolver(f)
	ctx := context.Background()

	r.GetVersions(ctx, domain.LoaderForge, "1.20.1")
	r.Invalidate(domain.LoaderForge, "1.20.1")
	r.GetVersions(ctx, domain.LoaderForge, "1.20.1")

	if got := f.calls.Load(); got != 2 {
		t.Errorf("fetch count = %d, want 2", got)
	}
}

func TestResolver_Errors(t *testing.T) {
	fetchErr := errors.New("meta down")
	empty := &mockFetcher{loader: domain.LoaderNeoForge, entries: map[string][]string{}}
	failing := &mockFetcher{loader: domain.LoaderForge, err: fetchErr}
	r, _ := newTestResolver(empty, failing)
	ctx := context.Background()

	if _, err := r.GetVersions(ctx, "liteloader", "1.12.2"); !errors.Is(err, domain.ErrUnknownLoader) {
		t.Errorf("unknown loader error = %v", err)
	}
	if _, err := r.GetVersions(ctx, domain.LoaderNeoForge, " "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty mc error = %v", err)
	}
	if _, err := r.GetVersions(ctx, domain.LoaderNeoForge, "1.21"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("empty list error = %v, want ErrNotFound", err)
	}
	if _, err := r.GetVersions(ctx, domain.LoaderForge, "1.20.1"); !errors.Is(err, fetchErr) {
		t.Errorf("fetch error = %v", err)
	}
	if s := r.Stats(); s.Cache.Entries != 0 {
		t.Errorf("failed lookups should not be cached, entries = %d", s.Cache.Entries)
	}
	if got := r.Loaders(); !reflect.DeepEqual(got, []string{"forge", "neoforge"}) {
		t.Errorf("Loaders() = %v", got)
	}
}

func TestResolver_LatestAndResolve(t *testing.T) {
	f := &mockFetcher{
		loader: domain.LoaderForge,
		entries: map[string][]string{"1.12.2": {
			"1.12.2-14.23.5.2859",
			"1.12.2-14.23.5.2847",
			"1.12.2-14.23.4.2705",
		}, "1.20.1": {
			"1.20.1-46.0.14",
			"1.20.1-47.3.0",
			"1.20.1-47.2.0",
		}},
	}
	r, _ := newTestResolver(f)
	ctx := context.Background()

	latest, err := r.Latest(ctx, domain.LoaderForge, "1.20.1")
	if err != nil || latest.Raw != "1.20.1-47.3.0" {
		t.Errorf("Latest() = %v, %v", latest, err)
	}

	tests := []struct {
		name       string
		mc         string
		constraint string
		want       string
		wantErr    bool
	}{
		{name: "empty is latest", mc: "1.20.1", constraint: "", want: "1.20.1-47.3.0"},
		{name: "semver range", mc: "1.20.1", constraint: "< 47.0.0", want: "1.20.1-46.0.14"},
		{name: "tilde", mc: "1.20.1", constraint: "~47.2", want: "1.20.1-47.2.0"},
		{name: "exact raw for unparsed", mc: "1.12.2", constraint: "1.12.2-14.23.5.2847", want: "1.12.2-14.23.5.2847"},
		{name: "unparsed never match ranges", mc: "1.12.2", constraint: ">= 14.0.0", wantErr: true},
		{name: "no match", mc: "1.20.1", constraint: ">= 50", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, domain.LoaderForge, tt.mc, tt.constraint)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrNotFound) {
					t.Errorf("Resolve() = %v, %v; want ErrNotFound", got, err)
				}
				return
			}
			if err != nil || got.Raw != tt.want {
				t.Errorf("Resolve() = %v, %v; want %s", got, err, tt.want)
			}
		})
	}
}

func TestResolver_DispatchesRefresh(t *testing.T) {
	f := &mockFetcher{loader: domain.LoaderFabric, entries: map[string][]string{"1.21": {"0.16.0"}}, malformed: 1}
	d := event.NewInMemoryDispatcher(false)
	var got event.VersionsRefreshed
	d.Subscribe(event.NewFuncHandler(func(e event.DomainEvent) {
		got = e.(event.VersionsRefreshed)
	}, event.NameVersionsRefreshed))

	r := New([]port.ManifestFetcher{f}, nil, d, zap.NewNop())
	if _, err := r.GetVersions(context.Background(), domain.LoaderFabric, "1.21"); err != nil {
		t.Fatal(err)
	}
	if got.LoaderID != domain.LoaderFabric || got.Count != 1 || got.Malformed != 1 {
		t.Errorf("event = %+v", got)
	}
}

func TestResolver_ConcurrentAccess(t *testing.T) {
	f := &mockFetcher{loader: domain.LoaderFabric, entries: map[string][]string{"1.20.1": {"0.15.11", "0.14.21"}}}
	r, clock := newTestResolver(f)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%8 == 0 {
				clock.Advance(time.Minute)
			}
			versions, err := r.GetVersions(context.Background(), domain.LoaderFabric, "1.20.1")
			if err != nil || len(versions) != 2 {
				t.Errorf("GetVersions() = %v, %v", versions, err)
			}
		}(i)
	}
	wg.Wait()
}
