package loadermeta

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

// NeoForgeFetcher reads the NeoForged maven version list. NeoForge versions
// drop the leading "1." of the game version: 1.21.3 publishes 21.3.x and
// 1.21 publishes 21.0.x.
type NeoForgeFetcher struct {
	client  *client
	baseURL string
}

type neoForgeVersions struct {
	Versions []json.RawMessage `json:"versions"`
}

// Loader returns the loader identifier
func (f *NeoForgeFetcher) Loader() string {
	return domain.LoaderNeoForge
}

// FetchManifest returns released versions for mcVersion
func (f *NeoForgeFetcher) FetchManifest(ctx context.Context, mcVersion string) (*domain.Manifest, error) {
	var doc neoForgeVersions
	if err := f.client.getJSON(ctx, joinURL(f.baseURL, "/api/maven/versions/releases/net/neoforged/neoforge"), &doc); err != nil {
		return nil, err
	}

	all := &domain.Manifest{Loader: domain.LoaderNeoForge, MCVersion: mcVersion}
	decodeStrings(domain.LoaderNeoForge, doc.Versions, all)

	prefix, ok := NeoForgePrefix(mcVersion)
	m := &domain.Manifest{Loader: domain.LoaderNeoForge, MCVersion: mcVersion, Malformed: all.Malformed}
	if !ok {
		return m, nil
	}
	for _, v := range all.Entries {
		if strings.HasPrefix(v, prefix) {
			m.Entries = append(m.Entries, v)
		}
	}
	return m, nil
}

// NeoForgePrefix maps a game version to the NeoForge version prefix.
// Returns false for versions outside the 1.x scheme.
func NeoForgePrefix(mcVersion string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(mcVersion), ".")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "1" {
		return "", false
	}
	for _, p := range parts[1:] {
		if p == "" {
			return "", false
		}
	}
	minor := "0"
	if len(parts) == 3 {
		minor = parts[2]
	}
	return parts[1] + "." + minor + ".", true
}
