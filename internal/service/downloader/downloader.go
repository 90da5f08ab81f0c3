package downloader

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/domain/event"
	"github.com/vertextoedge/mcfetch/internal/domain/service"
	"github.com/vertextoedge/mcfetch/internal/port"
	"github.com/vertextoedge/mcfetch/internal/service/gate"
	"github.com/vertextoedge/mcfetch/internal/service/integrity"
)

// Config contains downloader configuration
type Config struct {
	// Timeouts bounds a single GET attempt per resource type
	Timeouts map[domain.ResourceType]time.Duration

	ProgressInterval    time.Duration
	RetriesPerMirror    int
	VerifySidecar       bool
	MaxDiskUsagePercent float64
	UserAgent           string

	// MaxParallelFetches caps how many FetchAll goroutines exist at once.
	// The gate still bounds in-flight transfers.
	MaxParallelFetches int
}

const defaultMaxParallelFetches = 64

// DefaultTimeouts returns the per-attempt timeout policy
func DefaultTimeouts() map[domain.ResourceType]time.Duration {
	return map[domain.ResourceType]time.Duration{
		domain.ResourceLoaderInstaller: 5 * time.Minute,
		domain.ResourceServerJar:       5 * time.Minute,
		domain.ResourceLibrary:         2 * time.Minute,
		domain.ResourceAsset:           2 * time.Minute,
		domain.ResourceMod:             2 * time.Minute,
		domain.ResourceOther:           2 * time.Minute,
	}
}

// DefaultConfig returns default downloader configuration
func DefaultConfig() *Config {
	return &Config{
		Timeouts:            DefaultTimeouts(),
		ProgressInterval:    250 * time.Millisecond,
		RetriesPerMirror:    1,
		MaxDiskUsagePercent: 95,
		UserAgent:           "mcfetch/1.0",
		MaxParallelFetches:  defaultMaxParallelFetches,
	}
}

// TimeoutFor returns the attempt timeout for rt
func (c *Config) TimeoutFor(rt domain.ResourceType) time.Duration {
	if d, ok := c.Timeouts[rt]; ok && d > 0 {
		return d
	}
	if rt.IsLarge() {
		return 5 * time.Minute
	}
	return 2 * time.Minute
}

// Request describes one artifact to fetch
type Request struct {
	ResourceType     domain.ResourceType `json:"resource_type"`
	URL              string              `json:"url"`
	Dest             string              `json:"dest"`
	ExpectedChecksum string              `json:"checksum,omitempty"`
	Algorithm        string              `json:"algorithm,omitempty"`
	VerifySidecar    bool                `json:"verify_sidecar,omitempty"`
	SkipIfPresent    bool                `json:"skip_if_present,omitempty"`
}

// Validate checks the request fields
func (r *Request) Validate() error {
	if r.ResourceType == "" {
		r.ResourceType = domain.ResourceOther
	}
	if !r.ResourceType.IsValid() {
		return fmt.Errorf("%w: unknown resource type %q", domain.ErrInvalidInput, r.ResourceType)
	}
	u, err := url.Parse(strings.TrimSpace(r.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: invalid url %q", domain.ErrInvalidInput, r.URL)
	}
	if strings.TrimSpace(r.Dest) == "" {
		return fmt.Errorf("%w: destination is required", domain.ErrInvalidInput)
	}
	if _, err := integrity.NewHasher(r.Algorithm); err != nil {
		return err
	}
	return nil
}

// Downloader fetches artifacts through ordered mirrors, bounded by the gate,
// verifying and atomically committing each one
type Downloader struct {
	config     *Config
	client     port.HTTPClient
	fs         port.FileSystem
	gate       *gate.Gate
	verifier   *integrity.Verifier
	artifacts  port.ArtifactRepository
	space      *SpaceGuard
	dispatcher event.EventDispatcher
	logger     *zap.Logger
	now        func() time.Time

	mirrors atomic.Pointer[service.MirrorRegistry]
}

// New creates a new Downloader. artifacts may be nil to disable the ledger.
func New(
	cfg *Config,
	client port.HTTPClient,
	fs port.FileSystem,
	g *gate.Gate,
	mirrors *service.MirrorRegistry,
	artifacts port.ArtifactRepository,
	dispatcher event.EventDispatcher,
	logger *zap.Logger,
) *Downloader {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = 250 * time.Millisecond
	}
	if cfg.RetriesPerMirror < 0 {
		cfg.RetriesPerMirror = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "mcfetch/1.0"
	}
	if cfg.MaxParallelFetches <= 0 {
		cfg.MaxParallelFetches = defaultMaxParallelFetches
	}
	if dispatcher == nil {
		dispatcher = event.NewNullDispatcher()
	}

	d := &Downloader{
		config:     cfg,
		client:     client,
		fs:         fs,
		gate:       g,
		verifier:   integrity.NewVerifier(client, fs, logger),
		artifacts:  artifacts,
		space:      NewSpaceGuard(fs, cfg.MaxDiskUsagePercent),
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
	d.SetMirrors(mirrors)
	return d
}

// SetMirrors swaps the mirror snapshot used by tasks resolved after the call
func (d *Downloader) SetMirrors(r *service.MirrorRegistry) {
	if r == nil {
		r, _ = service.NewMirrorRegistry(nil)
	}
	d.mirrors.Store(r)
}

// Mirrors returns the current mirror snapshot
func (d *Downloader) Mirrors() *service.MirrorRegistry {
	return d.mirrors.Load()
}

// Fetch downloads one artifact. It returns the committed result, or an error
// that is a *domain.ChecksumMismatchError, a *domain.NoMirrorsAvailableError,
// or wraps ctx.Err() on cancellation.
func (d *Downloader) Fetch(ctx context.Context, req Request) (*domain.DownloadResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	dest, err := d.fs.Resolve(req.Dest)
	if err != nil {
		return nil, err
	}

	task := domain.NewDownloadTask(req.ResourceType, strings.TrimSpace(req.URL), dest, req.ExpectedChecksum, req.Algorithm)
	t := &taskRun{
		d:             d,
		task:          task,
		verifySidecar: req.VerifySidecar || d.config.VerifySidecar,
		skipIfPresent: req.SkipIfPresent,
	}
	return t.run(ctx)
}

// FetchAll fetches every request concurrently, bounded by the gate.
// Results are in request order; a nil entry means that request failed and
// its error is included in the returned aggregate.
func (d *Downloader) FetchAll(ctx context.Context, reqs []Request) ([]*domain.DownloadResult, error) {
	results := make([]*domain.DownloadResult, len(reqs))
	errs := make([]error, len(reqs))

	// Per-request failures are collected rather than returned so one bad
	// artifact does not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(d.config.MaxParallelFetches)
	for i := range reqs {
		i := i
		g.Go(func() error {
			res, err := d.Fetch(ctx, reqs[i])
			results[i] = res
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", reqs[i].URL, err)
			}
			return nil
		})
	}
	g.Wait()

	return results, multierr.Combine(errs...)
}

// Stats returns gate state for diagnostics
func (d *Downloader) Stats() map[string]gate.PoolStats {
	return d.gate.Snapshot()
}
