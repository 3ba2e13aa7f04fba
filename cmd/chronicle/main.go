package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/obschronicle/internal/config"
)

// #region main
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "chronicle",
		Short:         "Resolve observation chronicles for assimilation windows",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newResolveCmd(cfg),
		newValidateCmd(),
		newHistoryCmd(cfg),
		newFixtureCmd(),
	)
	return root
}

// #endregion main

// #region helpers

// exitError carries a process exit code out of a RunE.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitCode(err error) int {
	if ee, ok := err.(*exitError); ok {
		return ee.code
	}
	return 2
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func fmtFloat(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

// #endregion helpers
