package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/peoplefinder/internal/pipeline"
)

// Runner executes one enrichment run for a seed email address
type Runner interface {
	Run(ctx context.Context, seed string) (*pipeline.RunResult, error)
}

// RunJob is a single run executed on the pool
type RunJob struct {
	Seed   string
	Runner Runner
}

// Execute executes the run
func (j *RunJob) Execute(ctx context.Context) Result {
	result, err := j.Runner.Run(ctx, j.Seed)
	return &RunOutcome{
		Seed:   j.Seed,
		Result: result,
		Error:  err,
	}
}

// RunOutcome is the result of a run job. Result may be partial when Error is set.
type RunOutcome struct {
	Seed   string
	Result *pipeline.RunResult
	Error  error
}

// GetError returns the error from the run
func (r *RunOutcome) GetError() error {
	return r.Error
}

// BatchProcessor runs many independent seeds concurrently, one run per seed
type BatchProcessor struct {
	runner      Runner
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(runner Runner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
}

// ProcessSeeds runs every seed and returns outcomes in input order
func (b *BatchProcessor) ProcessSeeds(ctx context.Context, seeds []string) []*RunOutcome {
	if len(seeds) == 0 {
		return []*RunOutcome{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, seed := range seeds {
		pool.Submit(&RunJob{Seed: seed, Runner: b.runner})
	}

	results := pool.Wait()

	outcomes := make([]*RunOutcome, 0, len(seeds))
	for i, result := range results {
		outcome, ok := result.(*RunOutcome)
		if !ok || outcome == nil {
			outcome = &RunOutcome{Seed: seeds[i], Error: fmt.Errorf("run cancelled")}
		}
		outcomes = append(outcomes, outcome)
	}
	for i := len(results); i < len(seeds); i++ {
		outcomes = append(outcomes, &RunOutcome{Seed: seeds[i], Error: fmt.Errorf("run not started")})
	}

	return outcomes
}

// ReadSeedsFromFile reads email addresses from a file (one per line).
// Blank lines and # comments are skipped; duplicates are dropped.
func ReadSeedsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var seeds []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			seeds = append(seeds, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return seeds, nil
}
