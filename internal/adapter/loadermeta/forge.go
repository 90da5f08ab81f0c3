package loadermeta

import (
	"context"
	"encoding/json"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

// ForgeFetcher reads Forge's maven-metadata.json, a map from game version
// to "<mc>-<forge>" identifiers
type ForgeFetcher struct {
	client  *client
	baseURL string
}

// Loader returns the loader identifier
func (f *ForgeFetcher) Loader() string {
	return domain.LoaderForge
}

// FetchManifest returns the entries published for mcVersion
func (f *ForgeFetcher) FetchManifest(ctx context.Context, mcVersion string) (*domain.Manifest, error) {
	var doc map[string][]json.RawMessage
	if err := f.client.getJSON(ctx, joinURL(f.baseURL, "/net/minecraftforge/forge/maven-metadata.json"), &doc); err != nil {
		return nil, err
	}

	m := &domain.Manifest{Loader: domain.LoaderForge, MCVersion: mcVersion}
	decodeStrings(domain.LoaderForge, doc[mcVersion], m)
	return m, nil
}
