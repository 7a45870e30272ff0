// Test program to show how a saved Clearbit response is interpreted.
// Every extraction branch is reported, including the ones that found nothing.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/peoplefinder/internal/clearbit"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: test-clearbit-response <response.json | ->")
		os.Exit(2)
	}

	body, err := readInput(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read: %v\n", err)
		os.Exit(1)
	}

	resp, err := clearbit.ParseResponse(body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Clearbit Response Interpretation ===")
	fmt.Println()

	if resp.Empty() {
		fmt.Println("Response has no person or company section.")
	}

	total := 0
	for _, br := range clearbit.NewInterpreter(zap.NewNop()).Evaluate(resp) {
		fmt.Printf("%s\n", br.Branch)
		fmt.Println(strings.Repeat("-", 60))

		switch {
		case errors.Is(br.Err, clearbit.ErrFieldAbsent):
			fmt.Println("  (absent)")
		case br.Err != nil:
			fmt.Printf("  ⚠️  skipped: %v\n", br.Err)
		case len(br.Derivations) == 0:
			fmt.Println("  (nothing to emit)")
		}

		for _, d := range br.Derivations {
			fmt.Printf("  ✓ %-24s %s\n", d.Type, d.Data)
			total++
		}
		fmt.Println()
	}

	fmt.Printf("=== %d facts would be emitted ===\n", total)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
