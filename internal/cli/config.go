package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/peoplefinder/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage peoplefinder configuration",
	Long: `Manage peoplefinder configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (PEOPLEFINDER_*, CLEARBIT_API_KEY)
3. Config file (~/.peoplefinder/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file and environment. The API key is masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		cfg.Clearbit.APIKey = maskSecret(cfg.Clearbit.APIKey)

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		_, err = cmd.OutOrStdout().Write(yamlData)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.peoplefinder/config.yaml with all available options.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("error finding home directory: %w", err)
			}
			path = filepath.Join(home, ".peoplefinder", "config.yaml")
		}

		if err := writeDefaultConfig(path); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created default configuration: %s\n", path)
		fmt.Fprintf(cmd.OutOrStdout(), "\nSet your API key there or export CLEARBIT_API_KEY.\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// loadConfig merges defaults with everything v knows about
func loadConfig(v *viper.Viper) (*model.Config, error) {
	defaults := model.DefaultConfig()
	registerDefaults(v, defaults)

	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// registerDefaults makes every key known to viper so environment overrides apply
func registerDefaults(v *viper.Viper, d *model.Config) {
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)
	v.SetDefault("http.http_proxy", d.HTTP.HTTPProxy)
	v.SetDefault("http.https_proxy", d.HTTP.HTTPSProxy)
	v.SetDefault("http.no_proxy", d.HTTP.NoProxy)
	v.SetDefault("http.insecure_tls", d.HTTP.InsecureTLS)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memory_ttl", d.Cache.MemoryTTL)
	v.SetDefault("cache.disk_ttl", d.Cache.DiskTTL)
	v.SetDefault("concurrency.workers", d.Concurrency.Workers)
	v.SetDefault("rate_limiting.requests_per_second", d.RateLimiting.RequestsPerSecond)
	v.SetDefault("rate_limiting.burst_size", d.RateLimiting.BurstSize)
	v.SetDefault("clearbit.api_key", d.Clearbit.APIKey)
	v.SetDefault("clearbit.endpoint", d.Clearbit.Endpoint)
	v.SetDefault("scan.max_facts", d.Scan.MaxFacts)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.verbose", d.Output.Verbose)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.json", d.Logging.JSON)
}

// writeDefaultConfig writes the defaults as commented YAML; it never overwrites
func writeDefaultConfig(path string) (err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'peoplefinder config show' to view it, or delete it first to recreate", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	header := "# peoplefinder configuration\n" +
		"#\n" +
		"# Configuration hierarchy (highest to lowest priority):\n" +
		"#   1. CLI flags\n" +
		"#   2. Environment variables (PEOPLEFINDER_*, CLEARBIT_API_KEY)\n" +
		"#   3. This config file\n" +
		"#   4. Built-in defaults\n\n"

	// The file may end up holding an API key
	if err := os.WriteFile(path, append([]byte(header), yamlData...), 0600); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
