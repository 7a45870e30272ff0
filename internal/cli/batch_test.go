package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/peoplefinder/internal/clearbit"
	"github.com/ppiankov/peoplefinder/internal/model"
	"github.com/ppiankov/peoplefinder/internal/pipeline"
	"github.com/ppiankov/peoplefinder/internal/worker"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultWith(seed string, facts ...*model.Fact) *pipeline.RunResult {
	root := model.NewRootFact(seed)
	r := &pipeline.RunResult{Seed: seed, Root: root}
	r.Facts = append(r.Facts, model.NewFact(model.FactEmailAddress, seed, "", root))
	r.Facts = append(r.Facts, facts...)
	return r
}

func TestWriteOutcomes(t *testing.T) {
	dir := t.TempDir()
	var stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetErr(&stderr)

	ok := resultWith("jane@example.com")
	ok.Facts = append(ok.Facts, model.NewFact(model.FactPhoneNumber, "+1 555 0100", "clearbit", ok.Facts[0]))

	keyless := resultWith("bob@example.com")
	keyless.Errors = []pipeline.UnitError{{Unit: "clearbit", Fact: "bob@example.com", Err: clearbit.ErrMissingAPIKey}}

	outcomes := []*worker.RunOutcome{
		{Seed: "jane@example.com", Result: ok},
		{Seed: "bob@example.com", Result: keyless},
		{Seed: "late@example.com", Error: errors.New("run not started")},
		{Seed: "cut@example.com", Result: resultWith("cut@example.com"), Error: errors.New("run interrupted")},
	}

	s := writeOutcomes(cmd, outcomes, dir)

	assert.Equal(t, 2, s.success)
	assert.Equal(t, 2, s.failure)
	assert.Equal(t, 1, s.facts)
	assert.True(t, s.missingKey)

	for _, name := range []string{"jane@example.com.json", "bob@example.com.json", "cut@example.com.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}
	_, err := os.Stat(filepath.Join(dir, "late@example.com.json"))
	assert.True(t, os.IsNotExist(err))

	assert.Contains(t, stderr.String(), "✓ jane@example.com (1 facts)")
	assert.Contains(t, stderr.String(), "✗ late@example.com: run not started")
	assert.Contains(t, stderr.String(), "partial report written")
}
