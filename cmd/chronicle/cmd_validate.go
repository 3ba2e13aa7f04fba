package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/obschronicle/internal/chronicle"
)

// #region validate-cmd
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check chronicle files without resolving a window",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if failed := validateFiles(os.Stdout, args); failed > 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("%d of %d chronicles invalid", failed, len(args))}
			}
			return nil
		},
	}
}

// validateFiles runs the structural, ordering and initial-declaration checks
// on each file and returns how many failed.
func validateFiles(w io.Writer, paths []string) int {
	failed := 0
	for _, path := range paths {
		if err := validateFile(path); err != nil {
			failed++
			fmt.Fprintf(w, "%-40s FAIL  %s: %v\n", path, chronicle.Classify(err), err)
			continue
		}
		fmt.Fprintf(w, "%-40s OK\n", path)
	}
	return failed
}

func validateFile(path string) error {
	doc, err := chronicle.LoadFile(path)
	if err != nil {
		return err
	}
	if _, err := chronicle.Validate(doc); err != nil {
		return err
	}
	_, err = chronicle.Initial(doc)
	return err
}

// #endregion validate-cmd
