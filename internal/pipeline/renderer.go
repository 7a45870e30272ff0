package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/peoplefinder/internal/model"
	"gopkg.in/yaml.v3"
)

// factView is a fact flattened for output
type factView struct {
	Type       string   `json:"type" yaml:"type"`
	Data       string   `json:"data" yaml:"data"`
	Module     string   `json:"module" yaml:"module"`
	Source     string   `json:"source" yaml:"source"`
	SourceType string   `json:"source_type" yaml:"source_type"`
	Path       []string `json:"path" yaml:"path"`
	Depth      int      `json:"depth" yaml:"depth"`
}

// reportView is a run result flattened for output
type reportView struct {
	Seed      string     `json:"seed" yaml:"seed"`
	Facts     []factView `json:"facts" yaml:"facts"`
	Errors    []string   `json:"errors,omitempty" yaml:"errors,omitempty"`
	Truncated bool       `json:"truncated" yaml:"truncated"`
	Duration  string     `json:"duration" yaml:"duration"`
}

func newReportView(r *RunResult) reportView {
	view := reportView{
		Seed:      r.Seed,
		Facts:     make([]factView, 0, len(r.Facts)),
		Truncated: r.Truncated,
		Duration:  r.FinishedAt.Sub(r.StartedAt).String(),
	}
	for _, f := range r.Derived() {
		fv := factView{
			Type:   string(f.Type),
			Data:   f.Data,
			Module: f.Module,
			Path:   provenancePath(f),
			Depth:  f.Depth,
		}
		if f.Source != nil {
			fv.Source = f.Source.Data
			fv.SourceType = string(f.Source.Type)
		}
		view.Facts = append(view.Facts, fv)
	}
	for _, e := range r.Errors {
		view.Errors = append(view.Errors, e.Error())
	}
	return view
}

// provenancePath lists the data of every ancestor of f, seed first.
// The root fact is left out since it repeats the seed.
func provenancePath(f *model.Fact) []string {
	chain := f.Chain()
	path := make([]string, 0, len(chain))
	for i := len(chain) - 1; i > 0; i-- {
		if chain[i].Type == model.FactRoot {
			continue
		}
		path = append(path, chain[i].Data)
	}
	return path
}

// Render writes a run result in the given format (text, json, yaml)
func Render(w io.Writer, r *RunResult, format string) error {
	switch format {
	case "", "text":
		return RenderText(w, r)
	case "json":
		return RenderJSON(w, r)
	case "yaml", "yml":
		return RenderYAML(w, r)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// RenderJSON writes the run result as indented JSON
func RenderJSON(w io.Writer, r *RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(newReportView(r)); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// RenderYAML writes the run result as YAML
func RenderYAML(w io.Writer, r *RunResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newReportView(r)); err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}
	return enc.Close()
}

// RenderText writes the run result as an aligned table
func RenderText(w io.Writer, r *RunResult) error {
	view := newReportView(r)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Seed:\t%s\n", view.Seed)
	fmt.Fprintf(tw, "Facts:\t%d\n", len(view.Facts))
	if view.Truncated {
		fmt.Fprintf(tw, "Truncated:\tyes\n")
	}
	fmt.Fprintln(tw)

	if len(view.Facts) > 0 {
		fmt.Fprintln(tw, "TYPE\tDATA\tMODULE\tFOUND VIA")
		for _, f := range view.Facts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Type, f.Data, f.Module, strings.Join(f.Path, " > "))
		}
	}

	for _, e := range view.Errors {
		fmt.Fprintf(tw, "error:\t%s\n", e)
	}

	return tw.Flush()
}

// RenderFile writes a run result to path, creating parent directories
func RenderFile(path string, r *RunResult, format string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return Render(f, r, format)
}
