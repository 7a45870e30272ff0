package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/peoplefinder/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CLEARBIT_API_KEY", "")
	t.Setenv("PEOPLEFINDER_CLEARBIT_API_KEY", "")

	v := viper.New()
	configureViper(v, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	want := model.DefaultConfig()
	assert.Equal(t, want.HTTP.Timeout, cfg.HTTP.Timeout)
	assert.Equal(t, model.DefaultEndpoint, cfg.Clearbit.Endpoint)
	assert.Equal(t, want.Scan.MaxFacts, cfg.Scan.MaxFacts)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Empty(t, cfg.Clearbit.APIKey)
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("CLEARBIT_API_KEY", "")
	t.Setenv("PEOPLEFINDER_CLEARBIT_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http:
  timeout: 10s
clearbit:
  api_key: sk_file
scan:
  max_facts: 42
rate_limiting:
  requests_per_second: 0.5
  hosts:
    - host: person.clearbit.com
      requests_per_second: 0.2
      burst_size: 1
output:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	v := viper.New()
	configureViper(v, path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "sk_file", cfg.Clearbit.APIKey)
	assert.Equal(t, 42, cfg.Scan.MaxFacts)
	assert.Equal(t, 0.5, cfg.RateLimiting.RequestsPerSecond)
	assert.Equal(t, []model.HostRate{{Host: "person.clearbit.com", RequestsPerSecond: 0.2, BurstSize: 1}}, cfg.RateLimiting.Hosts)
	assert.Equal(t, "json", cfg.Output.Format)

	// Untouched keys keep their defaults
	assert.Equal(t, model.DefaultEndpoint, cfg.Clearbit.Endpoint)
	assert.Equal(t, model.DefaultConfig().HTTP.UserAgent, cfg.HTTP.UserAgent)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("PEOPLEFINDER_CLEARBIT_API_KEY", "")
	t.Setenv("CLEARBIT_API_KEY", "sk_env")
	t.Setenv("PEOPLEFINDER_SCAN_MAX_FACTS", "7")
	t.Setenv("PEOPLEFINDER_OUTPUT_FORMAT", "yaml")

	v := viper.New()
	configureViper(v, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "sk_env", cfg.Clearbit.APIKey)
	assert.Equal(t, 7, cfg.Scan.MaxFacts)
	assert.Equal(t, "yaml", cfg.Output.Format)
}

func TestLoadConfig_PrefixedKeyWins(t *testing.T) {
	t.Setenv("PEOPLEFINDER_CLEARBIT_API_KEY", "sk_prefixed")
	t.Setenv("CLEARBIT_API_KEY", "sk_plain")

	v := viper.New()
	configureViper(v, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "sk_prefixed", cfg.Clearbit.APIKey)
}

func TestWriteDefaultConfig(t *testing.T) {
	t.Setenv("CLEARBIT_API_KEY", "")
	t.Setenv("PEOPLEFINDER_CLEARBIT_API_KEY", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# peoplefinder configuration")

	// The written file loads back to the defaults
	v := viper.New()
	configureViper(v, path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig().HTTP.Timeout, cfg.HTTP.Timeout)
	assert.Equal(t, model.DefaultConfig().Cache.DiskTTL, cfg.Cache.DiskTTL)

	// Never overwrites
	err = writeDefaultConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "****"},
		{"abcd", "****"},
		{"sk_live_123456", "sk_l****"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, maskSecret(tt.in))
		})
	}
}

func TestApplyFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addLookupFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--api-key", "sk_flag", "--max-facts", "3", "--no-cache"}))
	t.Cleanup(func() {
		apiKey, maxFacts, noCache = "", 0, false
	})

	cfg := model.DefaultConfig()
	cfg.Output.Format = "json"
	applyFlags(cmd, cfg)

	assert.Equal(t, "sk_flag", cfg.Clearbit.APIKey)
	assert.Equal(t, 3, cfg.Scan.MaxFacts)
	assert.False(t, cfg.Cache.Enabled)

	// Unset flags leave configuration alone
	assert.Equal(t, model.DefaultConfig().HTTP.UserAgent, cfg.HTTP.UserAgent)
	assert.Equal(t, model.DefaultConfig().HTTP.MaxBodyBytes, cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, "json", cfg.Output.Format)
}
