package clearbit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/peoplefinder/internal/model"
	"go.uber.org/zap"
)

// Derivation is one fact derived from a response, before provenance is attached
type Derivation struct {
	Type model.FactType
	Data string
}

// branch derives facts from one part of a response
type branch struct {
	name   string
	derive func(r *Response) ([]Derivation, error)
}

// BranchResult is the outcome of a single branch
type BranchResult struct {
	Branch      string
	Derivations []Derivation
	Err         error
}

// Interpreter turns a parsed response into derived facts.
// Every branch runs regardless of how the others fared.
type Interpreter struct {
	branches []branch
	logger   *zap.Logger
}

// NewInterpreter creates an interpreter with the standard branches
func NewInterpreter(logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{
		branches: []branch{
			{name: "name", derive: deriveFullName},
			{name: "location", derive: derivePersonLocation},
			{name: "company aliases", derive: deriveDomainAliases},
			{name: "company phone numbers", derive: derivePhoneNumbers},
			{name: "company email addresses", derive: deriveEmailAddresses},
			{name: "company location", derive: deriveCompanyLocation},
		},
		logger: logger,
	}
}

// Evaluate runs every branch and returns their results in branch order
func (i *Interpreter) Evaluate(r *Response) []BranchResult {
	results := make([]BranchResult, 0, len(i.branches))
	for _, b := range i.branches {
		results = append(results, runBranch(b, r))
	}
	return results
}

// Interpret derives facts from r and emits each one with source as provenance.
// A nil source yields facts without provenance. It returns the number of facts emitted.
func (i *Interpreter) Interpret(r *Response, source *model.Fact, module string, sink Emitter) int {
	logger := i.logger
	if source != nil {
		logger = logger.With(zap.String("source", source.Data))
	}

	emitted := 0
	for _, res := range i.Evaluate(r) {
		if res.Err != nil {
			if !errors.Is(res.Err, ErrFieldAbsent) {
				logger.Debug("unable to extract from response",
					zap.String("branch", res.Branch),
					zap.Error(res.Err))
			}
			continue
		}
		for _, d := range res.Derivations {
			sink.Emit(model.NewFact(d.Type, d.Data, module, source))
			emitted++
		}
	}
	return emitted
}

// runBranch confines a panic in one branch to that branch's result
func runBranch(b branch, r *Response) (res BranchResult) {
	res.Branch = b.name
	defer func() {
		if p := recover(); p != nil {
			res.Derivations = nil
			res.Err = fmt.Errorf("branch %s panicked: %v", b.name, p)
		}
	}()
	res.Derivations, res.Err = b.derive(r)
	return res
}

func deriveFullName(r *Response) ([]Derivation, error) {
	person, err := r.Person.Get()
	if err != nil {
		return nil, fmt.Errorf("person: %w", err)
	}
	name, err := person.Name.Get()
	if err != nil {
		return nil, fmt.Errorf("person.name: %w", err)
	}
	fullName, err := name.FullName.Get()
	if err != nil {
		return nil, fmt.Errorf("person.name.fullName: %w", err)
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, fmt.Errorf("person.name.fullName: %w", ErrFieldAbsent)
	}
	return []Derivation{{Type: model.FactRawData, Data: "Possible full name: " + fullName}}, nil
}

func derivePersonLocation(r *Response) ([]Derivation, error) {
	geo, err := r.Geo.Get()
	if err != nil {
		return nil, fmt.Errorf("geo: %w", err)
	}
	return addressDerivation("geo", geo)
}

func deriveCompanyLocation(r *Response) ([]Derivation, error) {
	company, err := r.Company.Get()
	if err != nil {
		return nil, fmt.Errorf("company: %w", err)
	}
	geo, err := company.Geo.Get()
	if err != nil {
		return nil, fmt.Errorf("company.geo: %w", err)
	}
	return addressDerivation("company.geo", geo)
}

func addressDerivation(path string, geo Geo) ([]Derivation, error) {
	address := FormatAddress(geo)
	if address == "" {
		return nil, fmt.Errorf("%s: no address components: %w", path, ErrFieldAbsent)
	}
	return []Derivation{{Type: model.FactPhysicalAddress, Data: address}}, nil
}

func deriveDomainAliases(r *Response) ([]Derivation, error) {
	company, err := r.Company.Get()
	if err != nil {
		return nil, fmt.Errorf("company: %w", err)
	}
	aliases, err := company.DomainAliases.Get()
	if err != nil {
		return nil, fmt.Errorf("company.domainAliases: %w", err)
	}
	return listDerivations(model.FactAffiliateDomain, aliases), nil
}

func derivePhoneNumbers(r *Response) ([]Derivation, error) {
	site, err := companySite(r)
	if err != nil {
		return nil, err
	}
	numbers, err := site.PhoneNumbers.Get()
	if err != nil {
		return nil, fmt.Errorf("company.site.phoneNumbers: %w", err)
	}
	return listDerivations(model.FactPhoneNumber, numbers), nil
}

func deriveEmailAddresses(r *Response) ([]Derivation, error) {
	site, err := companySite(r)
	if err != nil {
		return nil, err
	}
	emails, err := site.EmailAddresses.Get()
	if err != nil {
		return nil, fmt.Errorf("company.site.emailAddresses: %w", err)
	}
	return listDerivations(model.FactEmailAddress, emails), nil
}

func companySite(r *Response) (Site, error) {
	company, err := r.Company.Get()
	if err != nil {
		return Site{}, fmt.Errorf("company: %w", err)
	}
	site, err := company.Site.Get()
	if err != nil {
		return Site{}, fmt.Errorf("company.site: %w", err)
	}
	return site, nil
}

// listDerivations keeps order and drops blank entries
func listDerivations(factType model.FactType, values []string) []Derivation {
	out := make([]Derivation, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, Derivation{Type: factType, Data: v})
	}
	return out
}
