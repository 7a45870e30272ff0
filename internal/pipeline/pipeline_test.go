package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ppiankov/peoplefinder/internal/model"
	"gopkg.in/yaml.v3"
)

// fakeUnit emits one fact per configured mapping and remembers what it handled
type fakeUnit struct {
	name     string
	watched  []model.FactType
	produced []model.FactType
	sink     Emitter
	emit     func(f *model.Fact, sink Emitter) error
	handled  []string
}

func (u *fakeUnit) Name() string                    { return u.name }
func (u *fakeUnit) WatchedTypes() []model.FactType  { return u.watched }
func (u *fakeUnit) ProducedTypes() []model.FactType { return u.produced }

func (u *fakeUnit) HandleFact(ctx context.Context, f *model.Fact) error {
	u.handled = append(u.handled, f.Data)
	if u.emit == nil {
		return nil
	}
	return u.emit(f, u.sink)
}

func TestRun_DispatchesAndReinjects(t *testing.T) {
	var lookup *fakeUnit
	factories := []UnitFactory{
		func(sink Emitter) Unit {
			seen := map[string]bool{}
			lookup = &fakeUnit{
				name:     "lookup",
				watched:  []model.FactType{model.FactEmailAddress},
				produced: []model.FactType{model.FactEmailAddress, model.FactPhoneNumber},
				sink:     sink,
				emit: func(f *model.Fact, sink Emitter) error {
					if seen[f.Data] {
						return nil
					}
					seen[f.Data] = true
					sink.Emit(model.NewFact(model.FactPhoneNumber, "555-"+f.Data, "lookup", f))
					if f.Data == "a@example.com" {
						sink.Emit(model.NewFact(model.FactEmailAddress, "b@example.com", "lookup", f))
					}
					sink.Emit(model.NewFact(model.FactEmailAddress, "a@example.com", "lookup", f))
					return nil
				},
			}
			return lookup
		},
	}

	p := New(factories, Options{}, nil)
	result, err := p.Run(context.Background(), "a@example.com")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := strings.Join(lookup.handled, ","); got != "a@example.com,b@example.com,a@example.com,a@example.com" {
		t.Errorf("unexpected dispatch order: %s", got)
	}

	var phones []string
	for _, f := range result.Derived() {
		if f.Type == model.FactPhoneNumber {
			phones = append(phones, f.Data)
			if f.Source == nil || f.Source.Type != model.FactEmailAddress {
				t.Errorf("phone %s lost its provenance", f.Data)
			}
		}
	}
	if len(phones) != 2 {
		t.Errorf("expected 2 phone facts, got %v", phones)
	}

	if result.Facts[0].Module != "" || result.Facts[0].Source != result.Root {
		t.Error("expected seed fact first, derived from the root")
	}
}

func TestRun_MaxFactsTruncates(t *testing.T) {
	n := 0
	factories := []UnitFactory{
		func(sink Emitter) Unit {
			return &fakeUnit{
				name:     "loop",
				watched:  []model.FactType{model.FactEmailAddress},
				produced: []model.FactType{model.FactEmailAddress},
				sink:     sink,
				emit: func(f *model.Fact, sink Emitter) error {
					n++
					sink.Emit(model.NewFact(model.FactEmailAddress, fmt.Sprintf("u%d@example.com", n), "loop", f))
					return nil
				},
			}
		},
	}

	result, err := New(factories, Options{MaxFacts: 10}, nil).Run(context.Background(), "seed@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Facts) != 10 {
		t.Errorf("expected 10 facts, got %d", len(result.Facts))
	}
	if !result.Truncated {
		t.Error("expected truncated result")
	}
}

func TestRun_CollectsUnitErrors(t *testing.T) {
	errBoom := errors.New("boom")
	factories := []UnitFactory{
		func(sink Emitter) Unit {
			return &fakeUnit{
				name:    "failing",
				watched: []model.FactType{model.FactEmailAddress},
				emit:    func(*model.Fact, Emitter) error { return errBoom },
			}
		},
	}

	result, err := New(factories, Options{}, nil).Run(context.Background(), "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 unit error, got %d", len(result.Errors))
	}
	if !errors.Is(result.Errors[0], errBoom) {
		t.Errorf("expected wrapped unit error, got %v", result.Errors[0])
	}
	if result.Errors[0].Unit != "failing" || result.Errors[0].Fact != "a@example.com" {
		t.Errorf("unexpected error attribution: %+v", result.Errors[0])
	}
}

func TestRun_FreshUnitsPerRun(t *testing.T) {
	built := 0
	factories := []UnitFactory{
		func(sink Emitter) Unit {
			built++
			return &fakeUnit{name: "counter", watched: []model.FactType{model.FactEmailAddress}}
		},
	}
	p := New(factories, Options{}, nil)

	for i := 0; i < 3; i++ {
		if _, err := p.Run(context.Background(), "a@example.com"); err != nil {
			t.Fatal(err)
		}
	}
	if built != 3 {
		t.Errorf("expected a unit instance per run, got %d", built)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(nil, Options{}, nil).Run(ctx, "a@example.com")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil || result.Seed != "a@example.com" {
		t.Error("expected partial result on cancellation")
	}
}

func TestValidate(t *testing.T) {
	ok := New([]UnitFactory{
		func(Emitter) Unit {
			return &fakeUnit{name: "a", watched: []model.FactType{model.FactEmailAddress}, produced: []model.FactType{model.FactPhoneNumber}}
		},
		func(Emitter) Unit {
			return &fakeUnit{name: "b", watched: []model.FactType{model.FactPhoneNumber}}
		},
	}, Options{}, nil)
	if err := ok.Validate(); err != nil {
		t.Errorf("expected valid graph, got %v", err)
	}

	orphan := New([]UnitFactory{
		func(Emitter) Unit {
			return &fakeUnit{name: "c", watched: []model.FactType{model.FactAffiliateDomain}}
		},
	}, Options{}, nil)
	if err := orphan.Validate(); err == nil {
		t.Error("expected error for a watched type nobody produces")
	}
}

func sampleResult() *RunResult {
	root := model.NewRootFact("jane@example.com")
	seed := model.NewFact(model.FactEmailAddress, "jane@example.com", "", root)
	return &RunResult{
		Seed: "jane@example.com",
		Root: root,
		Facts: []*model.Fact{
			seed,
			model.NewFact(model.FactRawData, "Possible full name: Jane Doe", "clearbit", seed),
			model.NewFact(model.FactPhysicalAddress, "Springfield, US", "clearbit", seed),
		},
		Errors: []UnitError{{Unit: "clearbit", Fact: "x@example.com", Err: errors.New("nope")}},
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderJSON(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}

	var view reportView
	if err := json.Unmarshal(buf.Bytes(), &view); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(view.Facts) != 2 {
		t.Fatalf("expected 2 derived facts, got %d", len(view.Facts))
	}
	if view.Facts[0].Source != "jane@example.com" || view.Facts[0].SourceType != "EMAILADDR" {
		t.Errorf("unexpected provenance: %+v", view.Facts[0])
	}
	if len(view.Errors) != 1 {
		t.Errorf("expected 1 error, got %v", view.Errors)
	}
}

func TestRender_ProvenancePath(t *testing.T) {
	root := model.NewRootFact("jane@example.com")
	seed := model.NewFact(model.FactEmailAddress, "jane@example.com", "", root)
	found := model.NewFact(model.FactEmailAddress, "info@acme.com", "clearbit", seed)
	phone := model.NewFact(model.FactPhoneNumber, "+1 555 0100", "clearbit", found)
	r := &RunResult{Seed: "jane@example.com", Root: root, Facts: []*model.Fact{seed, found, phone}}

	view := newReportView(r)
	if len(view.Facts) != 2 {
		t.Fatalf("expected 2 derived facts, got %d", len(view.Facts))
	}
	if got := strings.Join(view.Facts[0].Path, " > "); got != "jane@example.com" {
		t.Errorf("unexpected path for direct fact: %q", got)
	}
	if got := strings.Join(view.Facts[1].Path, " > "); got != "jane@example.com > info@acme.com" {
		t.Errorf("unexpected path for second-hop fact: %q", got)
	}

	var buf bytes.Buffer
	if err := RenderText(&buf, r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "jane@example.com > info@acme.com") {
		t.Errorf("text output lacks provenance path:\n%s", buf.String())
	}
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderYAML(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}

	var view reportView
	if err := yaml.Unmarshal(buf.Bytes(), &view); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if view.Seed != "jane@example.com" || len(view.Facts) != 2 {
		t.Errorf("unexpected view: %+v", view)
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleResult(), "text"); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"PHYSICAL_ADDRESS", "Springfield, US", "Possible full name: Jane Doe", "error:"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	if err := Render(&bytes.Buffer{}, sampleResult(), "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
