package domain

// CanonicalRule names the MirrorInfo produced for the canonical URL itself
const CanonicalRule = "canonical"

// MirrorRule rewrites canonical URLs matching a glob into a mirror URL.
// Template placeholders: {url} full canonical URL, {host} its host,
// {path} everything after the host without the leading slash.
type MirrorRule struct {
	Name          string         `mapstructure:"name" json:"name"`
	Match         string         `mapstructure:"match" json:"match"`
	Template      string         `mapstructure:"template" json:"template"`
	Priority      int            `mapstructure:"priority" json:"priority"`
	Enabled       bool           `mapstructure:"enabled" json:"enabled"`
	ResourceTypes []ResourceType `mapstructure:"resource_types" json:"resource_types,omitempty"`
}

// AppliesTo reports whether the rule is scoped to rt
func (r MirrorRule) AppliesTo(rt ResourceType) bool {
	if len(r.ResourceTypes) == 0 {
		return true
	}
	for _, t := range r.ResourceTypes {
		if t == rt {
			return true
		}
	}
	return false
}

// MirrorInfo is one concrete candidate URL for a download
type MirrorInfo struct {
	URL      string `json:"url"`
	Priority int    `json:"priority"`
	Rule     string `json:"rule"`
}

// IsCanonical reports whether this candidate is the unrewritten URL
func (m MirrorInfo) IsCanonical() bool {
	return m.Rule == CanonicalRule
}

const bmclapi = "https://bmclapi2.bangbang93.com"

// DefaultMirrorRules returns the BMCLAPI rule set used when no mirrors are configured
func DefaultMirrorRules() []MirrorRule {
	return []MirrorRule{
		{Name: "bmclapi-forge", Match: "https://maven.minecraftforge.net/**", Template: bmclapi + "/maven/{path}", Priority: 10, Enabled: true},
		{Name: "bmclapi-fabric", Match: "https://maven.fabricmc.net/**", Template: bmclapi + "/maven/{path}", Priority: 10, Enabled: true},
		{Name: "bmclapi-quilt", Match: "https://maven.quiltmc.org/repository/release/**", Template: bmclapi + "/maven/{path}", Priority: 10, Enabled: true},
		{Name: "bmclapi-libraries", Match: "https://libraries.minecraft.net/**", Template: bmclapi + "/maven/{path}", Priority: 10, Enabled: true,
			ResourceTypes: []ResourceType{ResourceLibrary}},
		{Name: "bmclapi-assets", Match: "https://resources.download.minecraft.net/**", Template: bmclapi + "/assets/{path}", Priority: 10, Enabled: true,
			ResourceTypes: []ResourceType{ResourceAsset}},
		{Name: "bmclapi-launcher", Match: "https://launcher.mojang.com/**", Template: bmclapi + "/{path}", Priority: 10, Enabled: true},
		{Name: "bmclapi-piston-data", Match: "https://piston-data.mojang.com/**", Template: bmclapi + "/{path}", Priority: 10, Enabled: true},
	}
}
