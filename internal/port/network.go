package port

import (
	"context"
	"net/http"
	"time"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

// HTTPClient is the streaming GET capability. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ManifestFetcher fetches the raw version list one loader publishes for a
// game version
type ManifestFetcher interface {
	// Loader returns the loader identifier this fetcher serves
	Loader() string

	// FetchManifest fetches and decodes the loader's manifest.
	// Malformed entries are reported in the manifest, not as an error.
	FetchManifest(ctx context.Context, mcVersion string) (*domain.Manifest, error)
}

// Clock supplies the current time for TTL comparisons
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time {
	return time.Now()
}
