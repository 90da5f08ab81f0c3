package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

func TestGate_NeverExceedsLimit(t *testing.T) {
	limits := map[domain.ResourceType]int{
		domain.ResourceLoaderInstaller: 2,
		domain.ResourceLibrary:         3,
		domain.ResourceAsset:           5,
	}
	g, err := New(limits, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for rt, limit := range limits {
		rt, limit := rt, limit
		t.Run(rt.String(), func(t *testing.T) {
			t.Parallel()

			var current, peak atomic.Int64
			var wg sync.WaitGroup
			for i := 0; i < limit*4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					p, err := g.Acquire(context.Background(), rt)
					if err != nil {
						t.Errorf("Acquire() error = %v", err)
						return
					}
					defer p.Release()

					n := current.Add(1)
					for {
						old := peak.Load()
						if n <= old || peak.CompareAndSwap(old, n) {
							break
						}
					}
					if got := g.InFlight(rt); got > int64(limit) {
						t.Errorf("InFlight(%s) = %d, limit %d", rt, got, limit)
					}
					time.Sleep(5 * time.Millisecond)
					current.Add(-1)
				}()
			}
			wg.Wait()

			if p := peak.Load(); p > int64(limit) {
				t.Errorf("peak concurrency = %d, limit %d", p, limit)
			}
			if g.InFlight(rt) != 0 {
				t.Errorf("InFlight(%s) = %d after all released", rt, g.InFlight(rt))
			}
		})
	}
}

func TestGate_GlobalCeiling(t *testing.T) {
	g, err := New(map[domain.ResourceType]int{
		domain.ResourceLibrary: 4,
		domain.ResourceAsset:   4,
	}, 2)
	if err != nil {
		t.Fatal(err)
	}

	p1, _ := g.Acquire(context.Background(), domain.ResourceLibrary)
	p2, _ := g.Acquire(context.Background(), domain.ResourceAsset)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx, domain.ResourceLibrary); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("third Acquire() error = %v, want deadline exceeded", err)
	}
	if got := g.InFlight(domain.ResourceLibrary); got != 1 {
		t.Errorf("type permit should be returned after global wait fails, InFlight = %d", got)
	}

	p1.Release()
	p3, err := g.Acquire(context.Background(), domain.ResourceLibrary)
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	p2.Release()
	p3.Release()

	if s := g.Snapshot()["global"]; s.Limit != 2 || s.InFlight != 0 {
		t.Errorf("global snapshot = %+v", s)
	}
}

func TestPermit_ReleaseIdempotent(t *testing.T) {
	g, err := New(map[domain.ResourceType]int{domain.ResourceMod: 1}, 0)
	if err != nil {
		t.Fatal(err)
	}

	p, err := g.Acquire(context.Background(), domain.ResourceMod)
	if err != nil {
		t.Fatal(err)
	}
	p.Release()
	p.Release()

	if got := g.InFlight(domain.ResourceMod); got != 0 {
		t.Errorf("InFlight() = %d, want 0", got)
	}

	// A double release must not have opened a second slot.
	a, _ := g.Acquire(context.Background(), domain.ResourceMod)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx, domain.ResourceMod); err == nil {
		t.Error("second Acquire() should block at limit 1")
	}
	a.Release()
}

func TestGate_CancelledWait(t *testing.T) {
	g, _ := New(map[domain.ResourceType]int{domain.ResourceServerJar: 1}, 0)
	held, _ := g.Acquire(context.Background(), domain.ResourceServerJar)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := g.Acquire(ctx, domain.ResourceServerJar)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Acquire() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire() did not return after cancel")
	}
}

func TestNew_Defaults(t *testing.T) {
	g, err := New(nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	for rt, want := range DefaultLimits() {
		if got := g.Limit(rt); got != int64(want) {
			t.Errorf("Limit(%s) = %d, want %d", rt, got, want)
		}
	}
	if _, ok := g.Snapshot()["global"]; ok {
		t.Error("global pool should be disabled")
	}
	if _, err := g.Acquire(context.Background(), domain.ResourceType("metadata")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Acquire(unknown) error = %v", err)
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(map[domain.ResourceType]int{domain.ResourceAsset: -1}, 0); err == nil {
		t.Error("negative limit should fail")
	}
	if _, err := New(map[domain.ResourceType]int{"bogus": 1}, 0); err == nil {
		t.Error("unknown type should fail")
	}
}
