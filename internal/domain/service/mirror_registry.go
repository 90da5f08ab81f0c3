package service

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

var templatePlaceholders = map[string]bool{
	"{url}":  true,
	"{host}": true,
	"{path}": true,
}

type compiledRule struct {
	rule  domain.MirrorRule
	match glob.Glob
	order int
}

// MirrorRegistry expands canonical URLs into ordered mirror candidates.
// A registry is an immutable snapshot; build a new one to change rules.
type MirrorRegistry struct {
	rules []compiledRule
}

// NewMirrorRegistry compiles rules, dropping disabled ones.
// Returns an error for an invalid glob or template.
func NewMirrorRegistry(rules []domain.MirrorRule) (*MirrorRegistry, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		if !r.Enabled {
			continue
		}
		g, err := glob.Compile(r.Match, '/')
		if err != nil {
			return nil, fmt.Errorf("mirror rule %q: invalid match pattern %q: %w", r.Name, r.Match, err)
		}
		if err := validateTemplate(r.Template); err != nil {
			return nil, fmt.Errorf("mirror rule %q: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{rule: r, match: g, order: i})
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].rule.Priority < compiled[j].rule.Priority
	})

	return &MirrorRegistry{rules: compiled}, nil
}

// Len returns the number of enabled rules
func (r *MirrorRegistry) Len() int {
	return len(r.rules)
}

// Expand returns every matching rule's rewrite in ascending priority order,
// with the canonical URL always last and listed exactly once.
func (r *MirrorRegistry) Expand(rt domain.ResourceType, canonicalURL string) []domain.MirrorInfo {
	out := make([]domain.MirrorInfo, 0, len(r.rules)+1)
	seen := map[string]bool{canonicalURL: true}

	for _, cr := range r.rules {
		if !cr.rule.AppliesTo(rt) || !cr.match.Match(canonicalURL) {
			continue
		}
		rewritten, err := rewrite(cr.rule.Template, canonicalURL)
		if err != nil || seen[rewritten] {
			continue
		}
		seen[rewritten] = true
		out = append(out, domain.MirrorInfo{
			URL:      rewritten,
			Priority: cr.rule.Priority,
			Rule:     cr.rule.Name,
		})
	}

	return append(out, domain.MirrorInfo{URL: canonicalURL, Rule: domain.CanonicalRule})
}

func validateTemplate(tmpl string) error {
	if strings.TrimSpace(tmpl) == "" {
		return fmt.Errorf("%w: empty template", domain.ErrInvalidInput)
	}
	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		closeIdx := strings.IndexByte(rest, '}')
		if open < 0 {
			if closeIdx >= 0 {
				return fmt.Errorf("%w: unbalanced '}' in template %q", domain.ErrInvalidInput, tmpl)
			}
			return nil
		}
		if closeIdx < open {
			return fmt.Errorf("%w: unbalanced braces in template %q", domain.ErrInvalidInput, tmpl)
		}
		token := rest[open : closeIdx+1]
		if !templatePlaceholders[token] {
			return fmt.Errorf("%w: unknown placeholder %s in template %q", domain.ErrInvalidInput, token, tmpl)
		}
		rest = rest[closeIdx+1:]
	}
}

func rewrite(tmpl, canonicalURL string) (string, error) {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return "", err
	}
	path := strings.TrimPrefix(u.EscapedPath(), "/")
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return strings.NewReplacer(
		"{url}", canonicalURL,
		"{host}", u.Host,
		"{path}", path,
	).Replace(tmpl), nil
}
