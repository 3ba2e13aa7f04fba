package main

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/obschronicle/internal/chronicle"
)

// #region fixture-cmd
func newFixtureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fixture FILE...",
		Short: "Replay fixture files and compare each window against its expectation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			diverge := 0
			for _, path := range args {
				n, err := runFixture(os.Stdout, path)
				if err != nil {
					return err
				}
				diverge += n
			}
			if diverge > 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("%d cases diverge", diverge)}
			}
			return nil
		},
	}
}

// runFixture prints a comparison table for one fixture and returns the
// number of diverging cases.
func runFixture(w io.Writer, path string) (int, error) {
	f, err := chronicle.LoadFixture(path)
	if err != nil {
		return 0, fmt.Errorf("load fixture: %w", err)
	}

	fmt.Fprintf(w, "%s: %s\n", path, f.Description)
	fmt.Fprintf(w, "%-36s| %-26s| %-26s| %s\n", "Case", "Expected", "Replayed", "Match")
	fmt.Fprintf(w, "%-36s+%-27s+%-27s+%s\n",
		"------------------------------------", "---------------------------", "---------------------------", "------")

	matches := 0
	for _, c := range f.Cases {
		cfg, err := chronicle.Process(c.Begin, c.Final, &f.Document)

		var exp, got string
		ok := false
		switch {
		case c.Error != "":
			exp = "error " + c.Error
			got = "error " + chronicle.Classify(err)
			if err == nil {
				got = fmt.Sprintf("active %v", cfg.Active)
			}
			ok = err != nil && chronicle.Classify(err) == c.Error
		case err != nil:
			exp = fmt.Sprintf("active %v", c.Expected.Active)
			got = "error " + chronicle.Classify(err)
		default:
			want := c.Expected.ToConfiguration()
			exp = fmt.Sprintf("active %v", want.Active)
			got = fmt.Sprintf("active %v", cfg.Active)
			ok = reflect.DeepEqual(cfg.Simulated, want.Simulated) &&
				reflect.DeepEqual(cfg.Active, want.Active) &&
				reflect.DeepEqual(cfg.Variables, want.Variables)
		}

		match := "DIFF"
		if ok {
			match = "OK"
			matches++
		}
		fmt.Fprintf(w, "%-36s| %-26s| %-26s| %s\n", c.Name, exp, got, match)
	}

	diverge := len(f.Cases) - matches
	fmt.Fprintf(w, "\nSummary: %d total, %d match, %d diverge\n\n", len(f.Cases), matches, diverge)
	return diverge, nil
}

// #endregion fixture-cmd
