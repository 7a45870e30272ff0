package cli

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/ppiankov/peoplefinder/internal/cache"
	"github.com/ppiankov/peoplefinder/internal/clearbit"
	"github.com/ppiankov/peoplefinder/internal/logging"
	"github.com/ppiankov/peoplefinder/internal/model"
	"github.com/ppiankov/peoplefinder/internal/pipeline"
	"github.com/ppiankov/peoplefinder/internal/worker"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// setup loads configuration and builds the logger for a command
func setup() (*model.Config, *zap.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Logging, cfg.Output.Verbose || verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	return cfg, logger, nil
}

// newFetcher builds the shared HTTP collaborator: proxy, cache and rate limiter included
func newFetcher(cfg *model.Config, logger *zap.Logger) *pipeline.Fetcher {
	opts := pipeline.FetcherOptions{
		Timeout:     cfg.HTTP.Timeout,
		UserAgent:   cfg.HTTP.UserAgent,
		MaxBytes:    cfg.HTTP.MaxBodyBytes,
		HTTPProxy:   cfg.HTTP.HTTPProxy,
		HTTPSProxy:  cfg.HTTP.HTTPSProxy,
		NoProxy:     cfg.HTTP.NoProxy,
		InsecureTLS: cfg.HTTP.InsecureTLS,
		Logger:      logger,
	}

	if cfg.Cache.Enabled {
		opts.Cache = cache.New(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}
	if cfg.RateLimiting.Enabled() {
		opts.Limiter = worker.NewLimiter(cfg.RateLimiting)
	}

	return pipeline.NewFetcher(opts)
}

// newPipeline wires the Clearbit unit into a pipeline. Each run gets a new unit instance.
func newPipeline(cfg *model.Config, fetcher clearbit.Fetcher, logger *zap.Logger) (*pipeline.Pipeline, error) {
	unitOpts := clearbit.Options{
		APIKey:   cfg.Clearbit.APIKey,
		Endpoint: cfg.Clearbit.Endpoint,
	}

	factories := []pipeline.UnitFactory{
		func(sink pipeline.Emitter) pipeline.Unit {
			return clearbit.NewUnit(unitOpts, fetcher, sink, logger)
		},
	}

	p := pipeline.New(factories, pipeline.Options{MaxFacts: cfg.Scan.MaxFacts}, logger)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseSeed normalises a seed email address
func parseSeed(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid email address %q: %w", raw, err)
	}
	return addr.Address, nil
}

// missingKey reports whether a run failed because no API key was configured
func missingKey(r *pipeline.RunResult) bool {
	if r == nil {
		return false
	}
	for _, e := range r.Errors {
		if errors.Is(e, clearbit.ErrMissingAPIKey) {
			return true
		}
	}
	return false
}
