package domain

import (
	"fmt"
	"strings"
	"time"
)

// Known loader identifiers
const (
	LoaderFabric   = "fabric"
	LoaderQuilt    = "quilt"
	LoaderForge    = "forge"
	LoaderNeoForge = "neoforge"
)

// NormalizeLoaderID lowercases and trims a loader identifier
func NormalizeLoaderID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Manifest is the raw list of version identifiers a loader publishes for one
// game version. Malformed holds entries that could not be decoded; they are
// reported but never fail the list.
type Manifest struct {
	Loader    string
	MCVersion string
	Entries   []string
	Malformed []*MetadataParseError
}

// VersionCacheEntry is one loader/game-version list held by the version cache
type VersionCacheEntry struct {
	LoaderID  string
	MCVersion string
	Versions  []LoaderVersion
	FetchedAt time.Time
}

// IsStale returns true when the entry is older than ttl at now
func (e *VersionCacheEntry) IsStale(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) > ttl
}

// CacheKey returns the map key for a loader and game version
func CacheKey(loaderID, mcVersion string) string {
	return fmt.Sprintf("%s@%s", NormalizeLoaderID(loaderID), strings.TrimSpace(mcVersion))
}
