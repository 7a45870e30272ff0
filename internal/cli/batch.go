package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ppiankov/peoplefinder/internal/pipeline"
	"github.com/ppiankov/peoplefinder/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Enrich email addresses from a file in parallel",
	Long: `Batch runs one independent scan per email address in the input file:
- One address per line; blank lines and # comments are ignored
- Duplicate lines are run once
- Runs execute in parallel on a worker pool, each with its own lookup ledger
- A JSON report is written per address to the output directory

Example:
  peoplefinder batch emails.txt
  peoplefinder batch emails.txt --concurrency 4 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent runs")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./peoplefinder-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	addLookupFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	applyFlags(cmd, cfg)
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}

	seeds, err := worker.ReadSeedsFromFile(file)
	if err != nil {
		return fmt.Errorf("read seeds: %w", err)
	}

	valid := make([]string, 0, len(seeds))
	for _, s := range seeds {
		seed, err := parseSeed(s)
		if err != nil {
			logger.Warn("skipping invalid seed", zap.String("line", s), zap.Error(err))
			continue
		}
		valid = append(valid, seed)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := newPipeline(cfg, newFetcher(cfg, logger), logger)
	if err != nil {
		return err
	}

	logger.Info("batch started",
		zap.String("input", file),
		zap.Int("seeds", len(valid)),
		zap.Int("workers", cfg.Concurrency.Workers),
		zap.String("output_dir", outputDir))

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)
	outcomes := processor.ProcessSeeds(ctx, valid)

	summary := writeOutcomes(cmd, outcomes, outputDir)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "  Total:     %d addresses\n", len(outcomes))
	fmt.Fprintf(out, "  Success:   %d\n", summary.success)
	fmt.Fprintf(out, "  Failures:  %d\n", summary.failure)
	fmt.Fprintf(out, "  Facts:     %d\n", summary.facts)
	fmt.Fprintf(out, "  Output:    %s\n", outputDir)

	if summary.missingKey {
		return fmt.Errorf("no Clearbit API key configured: set CLEARBIT_API_KEY, --api-key or clearbit.api_key in the config file")
	}
	return nil
}

type batchSummary struct {
	success    int
	failure    int
	facts      int
	missingKey bool
}

func writeOutcomes(cmd *cobra.Command, outcomes []*worker.RunOutcome, dir string) batchSummary {
	var s batchSummary
	errOut := cmd.ErrOrStderr()

	for _, o := range outcomes {
		if o.Result == nil {
			s.failure++
			fmt.Fprintf(errOut, "✗ %s: %v\n", o.Seed, o.Error)
			continue
		}

		if missingKey(o.Result) {
			s.missingKey = true
		}

		path := filepath.Join(dir, sanitizeFilename(o.Seed)+".json")
		if err := pipeline.RenderFile(path, o.Result, "json"); err != nil {
			s.failure++
			fmt.Fprintf(errOut, "✗ %s: failed to write report: %v\n", o.Seed, err)
			continue
		}

		if o.Error != nil {
			s.failure++
			fmt.Fprintf(errOut, "✗ %s: %v (partial report written)\n", o.Seed, o.Error)
			continue
		}

		s.success++
		n := len(o.Result.Derived())
		s.facts += n
		fmt.Fprintf(errOut, "✓ %s (%d facts)\n", o.Seed, n)
	}

	return s
}

// sanitizeFilename turns a seed into a safe file name
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "seed"
	}
	return s
}
