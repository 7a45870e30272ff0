package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/peoplefinder/internal/model"
	"go.uber.org/zap"
)

// Unit is an enrichment module driven by the pipeline
type Unit interface {
	Name() string
	WatchedTypes() []model.FactType
	ProducedTypes() []model.FactType
	HandleFact(ctx context.Context, fact *model.Fact) error
}

// Emitter receives facts produced by units
type Emitter interface {
	Emit(fact *model.Fact)
}

// UnitFactory builds a fresh unit for one run. Units publish their facts to sink.
type UnitFactory func(sink Emitter) Unit

// Options bounds a run
type Options struct {
	MaxFacts int // 0 means unbounded
}

// Pipeline dispatches facts to units until no new facts are produced
type Pipeline struct {
	factories []UnitFactory
	opts      Options
	logger    *zap.Logger
}

// New creates a new pipeline
func New(factories []UnitFactory, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		factories: factories,
		opts:      opts,
		logger:    logger,
	}
}

// UnitError is an error a unit reported while handling a fact
type UnitError struct {
	Unit string `json:"unit" yaml:"unit"`
	Fact string `json:"fact" yaml:"fact"`
	Err  error  `json:"-" yaml:"-"`
}

func (e UnitError) Error() string {
	return fmt.Sprintf("%s on %q: %v", e.Unit, e.Fact, e.Err)
}

// Unwrap returns the underlying error
func (e UnitError) Unwrap() error {
	return e.Err
}

// RunResult contains everything a run discovered
type RunResult struct {
	Seed       string        `json:"seed" yaml:"seed"`
	Root       *model.Fact   `json:"-" yaml:"-"`
	Facts      []*model.Fact `json:"facts" yaml:"facts"`
	Errors     []UnitError   `json:"-" yaml:"-"`
	Truncated  bool          `json:"truncated" yaml:"truncated"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
}

// Derived returns facts produced by units, excluding the seed
func (r *RunResult) Derived() []*model.Fact {
	out := make([]*model.Fact, 0, len(r.Facts))
	for _, f := range r.Facts {
		if f.Module != "" {
			out = append(out, f)
		}
	}
	return out
}

// run is the state of one execution
type run struct {
	queue  []*model.Fact
	result *RunResult
	max    int
}

// Emit queues a fact produced by a unit
func (r *run) Emit(fact *model.Fact) {
	if r.max > 0 && len(r.result.Facts) >= r.max {
		r.result.Truncated = true
		return
	}
	r.result.Facts = append(r.result.Facts, fact)
	r.queue = append(r.queue, fact)
}

// Validate checks that every watched fact type can be produced by some unit or the seed
func (p *Pipeline) Validate() error {
	produced := map[model.FactType]bool{model.FactEmailAddress: true}
	units := p.build(&run{result: &RunResult{}})
	for _, u := range units {
		for _, t := range u.ProducedTypes() {
			produced[t] = true
		}
	}
	for _, u := range units {
		for _, t := range u.WatchedTypes() {
			if !produced[t] {
				return fmt.Errorf("unit %s watches %s, which nothing produces", u.Name(), t)
			}
		}
	}
	return nil
}

// Run enriches a seed email address with fresh unit instances
func (p *Pipeline) Run(ctx context.Context, seed string) (*RunResult, error) {
	root := model.NewRootFact(seed)
	r := &run{
		result: &RunResult{
			Seed:      seed,
			Root:      root,
			StartedAt: time.Now().UTC(),
		},
		max: p.opts.MaxFacts,
	}
	units := p.build(r)
	r.Emit(model.NewFact(model.FactEmailAddress, seed, "", root))

	logger := p.logger.With(zap.String("seed", seed))
	logger.Debug("run started", zap.Int("units", len(units)))

	for len(r.queue) > 0 {
		if err := ctx.Err(); err != nil {
			r.result.FinishedAt = time.Now().UTC()
			return r.result, fmt.Errorf("run interrupted: %w", err)
		}

		fact := r.queue[0]
		r.queue = r.queue[1:]

		for _, u := range units {
			if !watches(u, fact.Type) {
				continue
			}
			if err := u.HandleFact(ctx, fact); err != nil {
				r.result.Errors = append(r.result.Errors, UnitError{Unit: u.Name(), Fact: fact.Data, Err: err})
			}
		}
	}

	r.result.FinishedAt = time.Now().UTC()
	logger.Debug("run finished",
		zap.Int("facts", len(r.result.Facts)),
		zap.Int("errors", len(r.result.Errors)),
		zap.Bool("truncated", r.result.Truncated))

	return r.result, nil
}

func (p *Pipeline) build(sink Emitter) []Unit {
	units := make([]Unit, 0, len(p.factories))
	for _, factory := range p.factories {
		units = append(units, factory(sink))
	}
	return units
}

func watches(u Unit, t model.FactType) bool {
	for _, w := range u.WatchedTypes() {
		if w == t {
			return true
		}
	}
	return false
}
