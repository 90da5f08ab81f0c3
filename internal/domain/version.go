package domain

import (
	"errors"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// errCompositeVersion marks a string whose "prerelease" is itself a dotted
// numeric version, as in "<mc-version>-<loader-version>".
var errCompositeVersion = errors.New("composite version identifier")

// prereleaseSeparators are the hyphenated tags some loaders emit outside
// the semver prerelease grammar
var prereleaseSeparators = []string{"-beta", "-alpha", "-rc"}

// ParseStep identifies which normalization step produced a parsed value
type ParseStep int

// Normalization steps, in the order they are attempted
const (
	StepUnparsed ParseStep = iota
	StepDirect
	StepSeparator
	StepTrailingSegment
)

// LoaderVersion is a raw loader version string with its best-effort
// structured form. Parsed is nil when no normalization step succeeded.
type LoaderVersion struct {
	Raw    string
	Parsed *semver.Version
	Step   ParseStep
}

// ParseLoaderVersion normalizes a raw version string.
// Steps are tried in a fixed order and each runs only if the previous failed:
//  1. strict major.minor.patch[-prerelease][+build]
//  2. known prerelease separators rewritten to build metadata, then strict
//  3. the segment after the last hyphen, strict
//
// If all fail the version is returned unparsed.
func ParseLoaderVersion(raw string) LoaderVersion {
	s := strings.TrimSpace(raw)
	lv := LoaderVersion{Raw: s}

	if v, err := parseDirect(s); err == nil {
		lv.Parsed, lv.Step = v, StepDirect
		return lv
	}

	if rewritten, ok := rewriteSeparators(s); ok {
		if v, err := semver.StrictNewVersion(rewritten); err == nil {
			lv.Parsed, lv.Step = v, StepSeparator
			return lv
		}
	}

	if i := strings.LastIndex(s, "-"); i >= 0 && i < len(s)-1 {
		if v, err := semver.StrictNewVersion(s[i+1:]); err == nil {
			lv.Parsed, lv.Step = v, StepTrailingSegment
			return lv
		}
	}

	return lv
}

func parseDirect(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return nil, err
	}
	if isDottedNumeric(v.Prerelease()) {
		return nil, errCompositeVersion
	}
	return v, nil
}

// isDottedNumeric reports whether s has two or more dot-separated
// identifiers that are all digits
func isDottedNumeric(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

func rewriteSeparators(s string) (string, bool) {
	for _, sep := range prereleaseSeparators {
		if i := strings.Index(s, sep); i >= 0 {
			return s[:i] + "+" + s[i+1:], true
		}
	}
	return s, false
}

// IsParsed returns true if a structured value is available
func (v LoaderVersion) IsParsed() bool {
	return v.Parsed != nil
}

// Major returns the major component, or 0 when unparsed
func (v LoaderVersion) Major() uint64 {
	if v.Parsed == nil {
		return 0
	}
	return v.Parsed.Major()
}

// Minor returns the minor component, or 0 when unparsed
func (v LoaderVersion) Minor() uint64 {
	if v.Parsed == nil {
		return 0
	}
	return v.Parsed.Minor()
}

// Patch returns the patch component, or 0 when unparsed
func (v LoaderVersion) Patch() uint64 {
	if v.Parsed == nil {
		return 0
	}
	return v.Parsed.Patch()
}

// Prerelease returns the prerelease tag of the structured value
func (v LoaderVersion) Prerelease() string {
	if v.Parsed == nil {
		return ""
	}
	return v.Parsed.Prerelease()
}

// String returns the raw version string
func (v LoaderVersion) String() string {
	return v.Raw
}

// CompareDescending orders a before b when it returns a negative number.
// Both parsed: higher structured value first, raw string descending on ties.
// One parsed: the parsed one first. Neither: raw string descending.
func CompareDescending(a, b LoaderVersion) int {
	switch {
	case a.Parsed != nil && b.Parsed != nil:
		if c := b.Parsed.Compare(a.Parsed); c != 0 {
			return c
		}
		return strings.Compare(b.Raw, a.Raw)
	case a.Parsed != nil:
		return -1
	case b.Parsed != nil:
		return 1
	default:
		return strings.Compare(b.Raw, a.Raw)
	}
}

// SortDescending sorts versions most-recent-first in place
func SortDescending(versions []LoaderVersion) {
	slices.SortStableFunc(versions, CompareDescending)
}

// ParseAndSort parses every raw string and returns them sorted descending
func ParseAndSort(raws []string) []LoaderVersion {
	out := make([]LoaderVersion, 0, len(raws))
	for _, raw := range raws {
		out = append(out, ParseLoaderVersion(raw))
	}
	SortDescending(out)
	return out
}

// VersionStrings returns the raw strings of versions in order
func VersionStrings(versions []LoaderVersion) []string {
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.Raw
	}
	return out
}
