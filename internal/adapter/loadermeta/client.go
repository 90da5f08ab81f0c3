package loadermeta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/port"
)

const (
	// DefaultTimeout bounds one manifest request
	DefaultTimeout = 10 * time.Second

	maxManifestBytes = 32 << 20

	DefaultFabricURL   = "https://meta.fabricmc.net"
	DefaultQuiltURL    = "https://meta.quiltmc.org"
	DefaultForgeURL    = "https://files.minecraftforge.net"
	DefaultNeoForgeURL = "https://maven.neoforged.net"
)

// Config contains endpoint base URLs
type Config struct {
	FabricURL   string
	QuiltURL    string
	ForgeURL    string
	NeoForgeURL string
	Timeout     time.Duration
	UserAgent   string
}

// DefaultConfig returns the public metadata endpoints
func DefaultConfig() *Config {
	return &Config{
		FabricURL:   DefaultFabricURL,
		QuiltURL:    DefaultQuiltURL,
		ForgeURL:    DefaultForgeURL,
		NeoForgeURL: DefaultNeoForgeURL,
		Timeout:     DefaultTimeout,
		UserAgent:   "mcfetch/1.0",
	}
}

// client performs bounded JSON GETs shared by every fetcher
type client struct {
	http      port.HTTPClient
	timeout   time.Duration
	userAgent string
}

func newClient(httpClient port.HTTPClient, cfg *Config) *client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &client{http: httpClient, timeout: timeout, userAgent: cfg.UserAgent}
}

// getJSON decodes the body at urlStr into out
func (c *client) getJSON(ctx context.Context, urlStr string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.NetworkError{URL: urlStr, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, urlStr)
	}
	if resp.StatusCode != http.StatusOK {
		return &domain.HTTPStatusError{URL: urlStr, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxManifestBytes)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", urlStr, err)
	}
	return nil
}

func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + path
}

// decodeStrings turns raw entries into strings, collecting the ones that
// are not non-empty JSON strings as malformed
func decodeStrings(loader string, raws []json.RawMessage, m *domain.Manifest) {
	for _, raw := range raws {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			m.Malformed = append(m.Malformed, &domain.MetadataParseError{Loader: loader, Entry: string(raw), Err: err})
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			m.Malformed = append(m.Malformed, &domain.MetadataParseError{Loader: loader, Entry: string(raw)})
			continue
		}
		m.Entries = append(m.Entries, s)
	}
}

// NewFetchers returns a fetcher for every supported loader
func NewFetchers(httpClient port.HTTPClient, cfg *Config) []port.ManifestFetcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := newClient(httpClient, cfg)
	return []port.ManifestFetcher{
		&FabricFetcher{client: c, baseURL: orDefault(cfg.FabricURL, DefaultFabricURL), loader: domain.LoaderFabric, apiPath: "/v2/versions/loader/"},
		&FabricFetcher{client: c, baseURL: orDefault(cfg.QuiltURL, DefaultQuiltURL), loader: domain.LoaderQuilt, apiPath: "/v3/versions/loader/"},
		&ForgeFetcher{client: c, baseURL: orDefault(cfg.ForgeURL, DefaultForgeURL)},
		&NeoForgeFetcher{client: c, baseURL: orDefault(cfg.NeoForgeURL, DefaultNeoForgeURL)},
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
