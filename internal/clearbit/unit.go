// Package clearbit enriches email addresses with person and company data from Clearbit.
package clearbit

import (
	"context"
	"fmt"

	"github.com/ppiankov/peoplefinder/internal/model"
	"go.uber.org/zap"
)

// UnitName identifies facts produced by this unit
const UnitName = "clearbit"

// DefaultEndpoint is the combined person/company lookup
const DefaultEndpoint = model.DefaultEndpoint

// Emitter publishes derived facts back to the host pipeline
type Emitter interface {
	Emit(fact *model.Fact)
}

// Fetcher performs a blocking HTTP GET. Transport failures are returned as errors;
// any answer from the server, successful or not, is returned as a response.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, headers map[string]string) (*model.FetchResponse, error)
}

// State is the controller state of a unit instance
type State int

const (
	StateIdle State = iota
	StateProcessing
	StateErrorLatched
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateErrorLatched:
		return "error-latched"
	default:
		return "unknown"
	}
}

// Options configures a unit instance
type Options struct {
	APIKey   string
	Endpoint string
}

// Unit queries Clearbit for each distinct email address it receives during a run.
// A Unit holds per-run state and must not be shared between runs.
type Unit struct {
	opts        Options
	fetcher     Fetcher
	sink        Emitter
	interpreter *Interpreter
	ledger      *Ledger
	state       State
	logger      *zap.Logger
}

// NewUnit creates a unit for one run
func NewUnit(opts Options, fetcher Fetcher, sink Emitter, logger *zap.Logger) *Unit {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	logger = logger.With(zap.String("unit", UnitName))

	return &Unit{
		opts:        opts,
		fetcher:     fetcher,
		sink:        sink,
		interpreter: NewInterpreter(logger),
		ledger:      NewLedger(),
		state:       StateIdle,
		logger:      logger,
	}
}

// Name returns the unit name
func (u *Unit) Name() string {
	return UnitName
}

// WatchedTypes returns the fact types this unit consumes
func (u *Unit) WatchedTypes() []model.FactType {
	return []model.FactType{model.FactEmailAddress}
}

// ProducedTypes returns the fact types this unit may emit
func (u *Unit) ProducedTypes() []model.FactType {
	return []model.FactType{
		model.FactRawData,
		model.FactPhoneNumber,
		model.FactPhysicalAddress,
		model.FactAffiliateDomain,
		model.FactEmailAddress,
	}
}

// State returns the current controller state
func (u *Unit) State() State {
	return u.state
}

// Queried returns how many distinct values have been looked up
func (u *Unit) Queried() int {
	return u.ledger.Len()
}

// HandleFact processes one input fact.
// Only a missing API key is returned as an error, and only on the fact that latches the unit.
// Transport and parse failures are logged and leave the unit ready for the next fact.
func (u *Unit) HandleFact(ctx context.Context, fact *model.Fact) error {
	if u.state == StateErrorLatched {
		return nil
	}

	if u.opts.APIKey == "" {
		u.state = StateErrorLatched
		u.logger.Error("unit enabled without an API key, skipping all facts for this run")
		return fmt.Errorf("%s: %w", UnitName, ErrMissingAPIKey)
	}

	u.logger.Debug("received fact",
		zap.String("type", string(fact.Type)),
		zap.String("from", fact.Module))

	if u.ledger.Seen(fact.Data) {
		u.logger.Debug("skipping, already queried", zap.String("email", fact.Data))
		return nil
	}
	u.ledger.Mark(fact.Data)

	u.state = StateProcessing
	defer func() { u.state = StateIdle }()

	resp, err := u.query(ctx, fact.Data)
	if err != nil {
		u.logger.Error("lookup failed", zap.String("email", fact.Data), zap.Error(err))
		return nil
	}

	emitted := u.interpreter.Interpret(resp, fact, UnitName, u.sink)
	u.logger.Debug("lookup complete",
		zap.String("email", fact.Data),
		zap.Int("emitted", emitted))
	return nil
}

// query fetches and parses the record for email
func (u *Unit) query(ctx context.Context, email string) (*Response, error) {
	q := BuildQuery(u.opts.Endpoint, email, u.opts.APIKey)

	res, err := u.fetcher.Fetch(ctx, q.URL, q.Headers)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("fetch: empty response")
	}
	if !res.OK() {
		return nil, fmt.Errorf("%w: %d (no results, bad API key or limit exceeded)", ErrUnexpectedStatus, res.StatusCode)
	}

	resp, err := ParseResponse(res.Body)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
