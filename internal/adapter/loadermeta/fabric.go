package loadermeta

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

// FabricFetcher reads the fabric-meta loader list. Quilt serves the same
// document shape under /v3, so it is the same fetcher with another base.
type FabricFetcher struct {
	client  *client
	baseURL string
	loader  string
	apiPath string
}

type loaderEntry struct {
	Loader struct {
		Version string `json:"version"`
	} `json:"loader"`
}

// Loader returns the loader identifier
func (f *FabricFetcher) Loader() string {
	return f.loader
}

// FetchManifest fetches loader versions compatible with mcVersion
func (f *FabricFetcher) FetchManifest(ctx context.Context, mcVersion string) (*domain.Manifest, error) {
	var raws []json.RawMessage
	if err := f.client.getJSON(ctx, joinURL(f.baseURL, f.apiPath+url.PathEscape(mcVersion)), &raws); err != nil {
		return nil, err
	}

	m := &domain.Manifest{Loader: f.loader, MCVersion: mcVersion}
	for _, raw := range raws {
		var e loaderEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			m.Malformed = append(m.Malformed, &domain.MetadataParseError{Loader: f.loader, Entry: string(raw), Err: err})
			continue
		}
		v := strings.TrimSpace(e.Loader.Version)
		if v == "" {
			m.Malformed = append(m.Malformed, &domain.MetadataParseError{Loader: f.loader, Entry: string(raw)})
			continue
		}
		m.Entries = append(m.Entries, v)
	}
	return m, nil
}
