package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/peoplefinder/internal/model"
	"github.com/ppiankov/peoplefinder/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	outFormat  string
	outFile    string
	timeout    time.Duration
	userAgent  string
	apiKey     string
	maxFacts   int
	noCache    bool
	httpProxy  string
	httpsProxy string
	maxBytes   int64
	insecure   bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <email>",
	Short: "Enrich a single email address",
	Long: `Scan looks up one email address and follows any email addresses
discovered along the way, each queried at most once per run.

Example:
  peoplefinder scan jane@example.com
  peoplefinder scan jane@example.com --format json --out jane.json
  CLEARBIT_API_KEY=sk_... peoplefinder scan jane@example.com --no-cache`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&outFormat, "format", "", "output format: text, json, yaml (default from config)")
	scanCmd.Flags().StringVar(&outFile, "out", "", "write output to file instead of stdout")
	scanCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall run timeout")
	addLookupFlags(scanCmd)
}

// addLookupFlags registers flags shared by scan and batch
func addLookupFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent (default from config)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Clearbit API key (prefer CLEARBIT_API_KEY)")
	cmd.Flags().IntVar(&maxFacts, "max-facts", 0, "stop a run after this many facts (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable response cache (force fresh lookups)")
	cmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "max response bytes to read (default from config)")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip TLS certificate verification (use for intercepting proxies)")
}

// applyFlags overrides configuration with flags the user set explicitly
func applyFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if flags.Changed("api-key") {
		cfg.Clearbit.APIKey = apiKey
	}
	if flags.Changed("max-facts") {
		cfg.Scan.MaxFacts = maxFacts
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if flags.Changed("http-proxy") {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if flags.Changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	if flags.Changed("max-bytes") {
		cfg.HTTP.MaxBodyBytes = maxBytes
	}
	if insecure {
		cfg.HTTP.InsecureTLS = true
	}
	if flags.Lookup("format") != nil && flags.Changed("format") {
		cfg.Output.Format = outFormat
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	seed, err := parseSeed(args[0])
	if err != nil {
		return err
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	applyFlags(cmd, cfg)

	p, err := newPipeline(cfg, newFetcher(cfg, logger), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	result, runErr := p.Run(ctx, seed)
	if result == nil {
		return fmt.Errorf("scan failed: %w", runErr)
	}

	if outFile != "" {
		if err := pipeline.RenderFile(outFile, result, cfg.Output.Format); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s (%d facts)\n", outFile, len(result.Derived()))
	} else if err := pipeline.Render(cmd.OutOrStdout(), result, cfg.Output.Format); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if missingKey(result) {
		return fmt.Errorf("no Clearbit API key configured: set CLEARBIT_API_KEY, --api-key or clearbit.api_key in the config file")
	}
	if runErr != nil {
		return fmt.Errorf("scan incomplete: %w", runErr)
	}
	return nil
}
