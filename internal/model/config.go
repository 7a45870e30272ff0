package model

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// DefaultEndpoint is the Clearbit combined person/company lookup
const DefaultEndpoint = "https://person.clearbit.com/v2/combined/find"

// Config holds all peoplefinder settings
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Clearbit     ClearbitConfig     `yaml:"clearbit" mapstructure:"clearbit"`
	Scan         ScanConfig         `yaml:"scan" mapstructure:"scan"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// HTTPConfig configures the fetch collaborator
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
}

// CacheConfig configures the API response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig configures batch execution
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig configures client-side request pacing.
// Hosts overrides the default pace for individual API hosts.
type RateLimitingConfig struct {
	RequestsPerSecond float64    `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int        `yaml:"burst_size" mapstructure:"burst_size"`
	Hosts             []HostRate `yaml:"hosts,omitempty" mapstructure:"hosts"`
}

// HostRate is the pace for one host
type HostRate struct {
	Host              string  `yaml:"host" mapstructure:"host"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// Enabled reports whether any pacing applies
func (c RateLimitingConfig) Enabled() bool {
	return c.RequestsPerSecond > 0 || len(c.Hosts) > 0
}

// ClearbitConfig configures the Clearbit enrichment unit
type ClearbitConfig struct {
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// ScanConfig bounds a single run
type ScanConfig struct {
	MaxFacts int `yaml:"max_facts" mapstructure:"max_facts"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Format  string `yaml:"format" mapstructure:"format"` // text, json, yaml
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "peoplefinder-cache")
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".peoplefinder", "cache")
	}

	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "peoplefinder/0.1 (+https://github.com/ppiankov/peoplefinder)",
			MaxBodyBytes: 2_000_000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Clearbit: ClearbitConfig{
			Endpoint: DefaultEndpoint,
		},
		Scan: ScanConfig{
			MaxFacts: 500,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
