package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/domain/service"
)

// EnvPrefix prefixes environment overrides, e.g. MCFETCH_STORAGE_ROOT_DIR
const EnvPrefix = "MCFETCH"

// Config represents the entire application configuration
type Config struct {
	Storage     StorageConfig     `mapstructure:"storage"`
	Download    DownloadConfig    `mapstructure:"download"`
	Network     NetworkConfig     `mapstructure:"network"`
	Mirrors     MirrorsConfig     `mapstructure:"mirrors"`
	Versions    VersionsConfig    `mapstructure:"versions"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// StorageConfig contains artifact root and ledger settings
type StorageConfig struct {
	RootDir      string `mapstructure:"root_dir"`
	DatabasePath string `mapstructure:"database_path"`
}

// ResourceTypeConfig bounds one resource category
type ResourceTypeConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	Timeout     string `mapstructure:"timeout"`
}

// DownloadConfig contains downloader settings
type DownloadConfig struct {
	ResourceTypes       map[string]ResourceTypeConfig `mapstructure:"resource_types"`
	GlobalConcurrency   int                           `mapstructure:"global_concurrency"`
	RetriesPerMirror    int                           `mapstructure:"retries_per_mirror"`
	VerifySidecar       bool                          `mapstructure:"verify_sidecar"`
	ProgressInterval    string                        `mapstructure:"progress_interval"`
	MaxDiskUsagePercent float64                       `mapstructure:"max_disk_usage_percent"`
	MaxParallelFetches  int                           `mapstructure:"max_parallel_fetches"`
}

// NetworkConfig contains outbound HTTP client settings
type NetworkConfig struct {
	UserAgent           string `mapstructure:"user_agent"`
	SkipTLSVerify       bool   `mapstructure:"skip_tls_verify"`
	MaxIdleConnsPerHost int    `mapstructure:"max_idle_conns_per_host"`
	DialTimeout         string `mapstructure:"dial_timeout"`
}

// MirrorRuleConfig is the file form of a domain.MirrorRule.
// A rule without an explicit enabled flag is enabled.
type MirrorRuleConfig struct {
	Name          string   `mapstructure:"name"`
	Match         string   `mapstructure:"match"`
	Template      string   `mapstructure:"template"`
	Priority      int      `mapstructure:"priority"`
	Enabled       *bool    `mapstructure:"enabled"`
	ResourceTypes []string `mapstructure:"resource_types"`
}

// MirrorsConfig contains mirror rewrite rules
type MirrorsConfig struct {
	UseDefaults bool               `mapstructure:"use_defaults"`
	Rules       []MirrorRuleConfig `mapstructure:"rules"`
}

// VersionsConfig contains version metadata settings
type VersionsConfig struct {
	CacheTTL     string `mapstructure:"cache_ttl"`
	FetchTimeout string `mapstructure:"fetch_timeout"`
	FabricURL    string `mapstructure:"fabric_url"`
	QuiltURL     string `mapstructure:"quilt_url"`
	ForgeURL     string `mapstructure:"forge_url"`
	NeoForgeURL  string `mapstructure:"neoforge_url"`
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	BindAddr      string `mapstructure:"bind_addr"`
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
	ReadTimeout   string `mapstructure:"read_timeout"`
	WriteTimeout  string `mapstructure:"write_timeout"`
	IdleTimeout   string `mapstructure:"idle_timeout"`
}

// MaintenanceConfig contains periodic cleanup settings
type MaintenanceConfig struct {
	Interval       string `mapstructure:"interval"`
	TempFileMaxAge string `mapstructure:"temp_file_max_age"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.root_dir", "./minecraft")
	v.SetDefault("storage.database_path", "")
	v.SetDefault("download.global_concurrency", 0)
	v.SetDefault("download.retries_per_mirror", 1)
	v.SetDefault("download.verify_sidecar", false)
	v.SetDefault("download.progress_interval", "250ms")
	v.SetDefault("download.max_disk_usage_percent", 95)
	v.SetDefault("download.max_parallel_fetches", 64)
	v.SetDefault("network.user_agent", "mcfetch/1.0")
	v.SetDefault("network.skip_tls_verify", false)
	v.SetDefault("network.max_idle_conns_per_host", 16)
	v.SetDefault("network.dial_timeout", "15s")
	v.SetDefault("mirrors.use_defaults", true)
	v.SetDefault("versions.cache_ttl", "300s")
	v.SetDefault("versions.fetch_timeout", "10s")
	v.SetDefault("versions.fabric_url", "https://meta.fabricmc.net")
	v.SetDefault("versions.quilt_url", "https://meta.quiltmc.org")
	v.SetDefault("versions.forge_url", "https://files.minecraftforge.net")
	v.SetDefault("versions.neoforge_url", "https://maven.neoforged.net")
	v.SetDefault("http.bind_addr", "127.0.0.1:8080")
	v.SetDefault("http.admin_username", "")
	v.SetDefault("http.admin_password", "")
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "10m")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("maintenance.interval", "1h")
	v.SetDefault("maintenance.temp_file_max_age", "24h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load loads configuration from the specified file path. An empty path
// uses defaults and environment overrides only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Storage.RootDir == "" {
		return fmt.Errorf("storage.root_dir is required")
	}

	// Validate download config
	for name, rc := range c.Download.ResourceTypes {
		if _, err := domain.ParseResourceType(name); err != nil {
			return fmt.Errorf("download.resource_types: %w", err)
		}
		if rc.Concurrency < 0 || rc.Concurrency > 64 {
			return fmt.Errorf("download.resource_types.%s.concurrency must be between 0 and 64", name)
		}
		if err := validDuration(rc.Timeout); err != nil {
			return fmt.Errorf("invalid download.resource_types.%s.timeout: %w", name, err)
		}
	}
	if c.Download.GlobalConcurrency < 0 {
		return fmt.Errorf("download.global_concurrency must not be negative")
	}
	if c.Download.MaxParallelFetches < 0 {
		return fmt.Errorf("download.max_parallel_fetches must not be negative")
	}
	if c.Download.RetriesPerMirror < 0 || c.Download.RetriesPerMirror > 5 {
		return fmt.Errorf("download.retries_per_mirror must be between 0 and 5")
	}
	if c.Download.MaxDiskUsagePercent < 0 || c.Download.MaxDiskUsagePercent > 100 {
		return fmt.Errorf("download.max_disk_usage_percent must be between 0 and 100")
	}
	if err := validDuration(c.Download.ProgressInterval); err != nil {
		return fmt.Errorf("invalid download.progress_interval: %w", err)
	}

	// Mirror rules must compile
	if _, err := service.NewMirrorRegistry(c.MirrorRules()); err != nil {
		return fmt.Errorf("invalid mirrors: %w", err)
	}
	for _, r := range c.Mirrors.Rules {
		for _, rt := range r.ResourceTypes {
			if _, err := domain.ParseResourceType(rt); err != nil {
				return fmt.Errorf("mirror rule %q: %w", r.Name, err)
			}
		}
	}

	// Validate durations
	durations := map[string]string{
		"versions.cache_ttl":            c.Versions.CacheTTL,
		"versions.fetch_timeout":        c.Versions.FetchTimeout,
		"network.dial_timeout":          c.Network.DialTimeout,
		"http.read_timeout":             c.HTTP.ReadTimeout,
		"http.write_timeout":            c.HTTP.WriteTimeout,
		"http.idle_timeout":             c.HTTP.IdleTimeout,
		"maintenance.interval":          c.Maintenance.Interval,
		"maintenance.temp_file_max_age": c.Maintenance.TempFileMaxAge,
	}
	for key, value := range durations {
		if err := validDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	if c.HTTP.AdminUsername != "" && c.HTTP.AdminPassword == "" {
		return fmt.Errorf("http.admin_password is required when http.admin_username is set")
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// validDuration accepts empty strings, which fall back to defaults
func validDuration(s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("negative duration %s", s)
	}
	return nil
}

func durationOr(s string, def time.Duration) time.Duration {
	d, _ := time.ParseDuration(s)
	if d <= 0 {
		return def
	}
	return d
}

// resourceType maps a config key to a ResourceType; keys are checked by Validate
func resourceType(name string) domain.ResourceType {
	if rt, err := domain.ParseResourceType(name); err == nil {
		return rt
	}
	return domain.ResourceType(strings.ToLower(name))
}

// GetDatabasePath returns the ledger path, defaulting to a file in the root
func (c *StorageConfig) GetDatabasePath() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(c.RootDir, ".mcfetch", "ledger.db")
}

// GateLimits returns the per-type concurrency limits. Zero means default.
func (c *DownloadConfig) GateLimits() map[domain.ResourceType]int {
	limits := make(map[domain.ResourceType]int, len(c.ResourceTypes))
	for name, rc := range c.ResourceTypes {
		if rc.Concurrency > 0 {
			limits[resourceType(name)] = rc.Concurrency
		}
	}
	return limits
}

// GetTimeouts returns the configured per-type attempt timeouts
func (c *DownloadConfig) GetTimeouts(defaults map[domain.ResourceType]time.Duration) map[domain.ResourceType]time.Duration {
	out := make(map[domain.ResourceType]time.Duration, len(defaults))
	for rt, d := range defaults {
		out[rt] = d
	}
	for name, rc := range c.ResourceTypes {
		rt := resourceType(name)
		out[rt] = durationOr(rc.Timeout, out[rt])
	}
	return out
}

// GetProgressInterval returns the progress sampling interval
func (c *DownloadConfig) GetProgressInterval() time.Duration {
	return durationOr(c.ProgressInterval, 250*time.Millisecond)
}

// GetDialTimeout returns the outbound dial timeout
func (c *NetworkConfig) GetDialTimeout() time.Duration {
	return durationOr(c.DialTimeout, 15*time.Second)
}

// MirrorRules returns the effective rule set: the built-in BMCLAPI rules
// when enabled, followed by configured rules
func (c *Config) MirrorRules() []domain.MirrorRule {
	var rules []domain.MirrorRule
	if c.Mirrors.UseDefaults {
		rules = append(rules, domain.DefaultMirrorRules()...)
	}
	for _, rc := range c.Mirrors.Rules {
		rule := domain.MirrorRule{
			Name:     rc.Name,
			Match:    rc.Match,
			Template: rc.Template,
			Priority: rc.Priority,
			Enabled:  rc.Enabled == nil || *rc.Enabled,
		}
		for _, rt := range rc.ResourceTypes {
			rule.ResourceTypes = append(rule.ResourceTypes, resourceType(rt))
		}
		rules = append(rules, rule)
	}
	return rules
}

// GetCacheTTL returns the version list TTL
func (c *VersionsConfig) GetCacheTTL() time.Duration {
	return durationOr(c.CacheTTL, 300*time.Second)
}

// GetFetchTimeout returns the manifest request timeout
func (c *VersionsConfig) GetFetchTimeout() time.Duration {
	return durationOr(c.FetchTimeout, 10*time.Second)
}

// GetReadTimeout returns the read timeout as time.Duration
func (c *HTTPConfig) GetReadTimeout() time.Duration {
	return durationOr(c.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout returns the write timeout as time.Duration
func (c *HTTPConfig) GetWriteTimeout() time.Duration {
	return durationOr(c.WriteTimeout, 10*time.Minute)
}

// GetIdleTimeout returns the idle timeout as time.Duration
func (c *HTTPConfig) GetIdleTimeout() time.Duration {
	return durationOr(c.IdleTimeout, 60*time.Second)
}

// GetInterval returns how often maintenance runs
func (c *MaintenanceConfig) GetInterval() time.Duration {
	return durationOr(c.Interval, time.Hour)
}

// GetTempFileMaxAge returns the age after which partial downloads are removed
func (c *MaintenanceConfig) GetTempFileMaxAge() time.Duration {
	return durationOr(c.TempFileMaxAge, 24*time.Hour)
}
