package domain

import (
	"fmt"
	"strings"
)

// ResourceType is the category of a downloadable artifact.
// It selects the concurrency limit, the per-attempt timeout and the
// mirror rules that apply to a request.
type ResourceType string

// Resource types
const (
	ResourceLibrary         ResourceType = "library"
	ResourceAsset           ResourceType = "asset"
	ResourceLoaderInstaller ResourceType = "loader-installer"
	ResourceServerJar       ResourceType = "server-jar"
	ResourceMod             ResourceType = "mod"
	ResourceOther           ResourceType = "other"
)

var resourceTypes = []ResourceType{
	ResourceLibrary,
	ResourceAsset,
	ResourceLoaderInstaller,
	ResourceServerJar,
	ResourceMod,
	ResourceOther,
}

// ResourceTypes returns every known resource type in declaration order
func ResourceTypes() []ResourceType {
	out := make([]ResourceType, len(resourceTypes))
	copy(out, resourceTypes)
	return out
}

// ParseResourceType converts a string to a ResourceType.
// Matching is case-insensitive and accepts underscores in place of hyphens.
func ParseResourceType(s string) (ResourceType, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, rt := range resourceTypes {
		if string(rt) == norm {
			return rt, nil
		}
	}
	return "", fmt.Errorf("%w: unknown resource type %q", ErrInvalidInput, s)
}

// IsValid returns true if rt is one of the known resource types
func (rt ResourceType) IsValid() bool {
	for _, known := range resourceTypes {
		if rt == known {
			return true
		}
	}
	return false
}

// IsLarge reports whether artifacts of this type are large payloads
// served by slow mirrors (installers, server jars).
func (rt ResourceType) IsLarge() bool {
	return rt == ResourceLoaderInstaller || rt == ResourceServerJar
}

// String returns the string form of the resource type
func (rt ResourceType) String() string {
	return string(rt)
}
