package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/obschronicle/internal/config"
	"github.com/danielpatrickdp/obschronicle/internal/library"
	"github.com/danielpatrickdp/obschronicle/internal/resolve"
	"github.com/danielpatrickdp/obschronicle/internal/rpc"
	"github.com/danielpatrickdp/obschronicle/internal/store"
)

// #region resolve-cmd
type resolveOpts struct {
	dir      string
	observer string
	begin    string
	length   string
	dbPath   string
	remote   string
	jsonOut  bool
}

type resolveOutput struct {
	Observer    string                `json:"observer"`
	WindowBegin string                `json:"window_begin"`
	WindowFinal string                `json:"window_final"`
	Use         bool                  `json:"use"`
	Config      resolve.Configuration `json:"configuration"`
}

func newResolveCmd(cfg config.Config) *cobra.Command {
	o := resolveOpts{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the channel configuration of one observer for a window",
		Example: `  chronicle resolve --dir chronicles --observer amsua_n19 --begin 2021-12-31T21:00:00Z
  chronicle resolve --observer amsua_n19 --begin 2021-12-31T21:00:00Z --length PT3H --json
  chronicle resolve --remote localhost:50061 --observer amsua_n19 --begin 2021-12-31T21:00:00Z`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out resolveOutput
			var err error
			if o.remote != "" {
				out, err = resolveRemote(cmd.Context(), o)
			} else {
				out, err = resolveLocal(o)
			}
			if err != nil {
				return err
			}
			if o.jsonOut {
				return printJSON(out)
			}
			printConfiguration(os.Stdout, out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.dir, "dir", cfg.ChronicleDir, "directory of <observer>.yaml chronicles")
	f.StringVar(&o.observer, "observer", "", "observer name (chronicle file stem)")
	f.StringVar(&o.begin, "begin", "", "window begin, ISO-8601 (e.g. 2021-12-31T21:00:00Z)")
	f.StringVar(&o.length, "length", cfg.WindowLength, "window length, ISO-8601 duration")
	f.StringVar(&o.dbPath, "db", cfg.DBPath, "record the resolution in this SQLite database")
	f.StringVar(&o.remote, "remote", "", "resolve through a chronicled server at this address")
	f.BoolVar(&o.jsonOut, "json", false, "output as JSON instead of table")
	_ = cmd.MarkFlagRequired("observer")
	_ = cmd.MarkFlagRequired("begin")
	return cmd
}

func resolveLocal(o resolveOpts) (resolveOutput, error) {
	opts := library.Options{}
	if o.dbPath != "" {
		st, err := store.NewStore(o.dbPath)
		if err != nil {
			return resolveOutput{}, fmt.Errorf("open db: %w", err)
		}
		defer st.Close()
		opts.Store = st
	}
	lib, err := library.Open(o.dir, opts)
	if err != nil {
		return resolveOutput{}, err
	}
	sess, err := library.NewSession(lib, o.begin, o.length)
	if err != nil {
		return resolveOutput{}, err
	}
	use, err := sess.UseObserver(o.observer)
	if err != nil {
		return resolveOutput{}, err
	}
	out := resolveOutput{
		Observer:    o.observer,
		WindowBegin: sess.Window().Begin.Format(time.RFC3339),
		WindowFinal: sess.Window().Final.Format(time.RFC3339),
		Use:         use,
	}
	if !use {
		return out, nil
	}
	res, err := lib.Resolve(o.observer, sess.Window())
	if err != nil {
		return resolveOutput{}, err
	}
	out.Config = res.Config
	return out, nil
}

func resolveRemote(ctx context.Context, o resolveOpts) (resolveOutput, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	c, err := rpc.NewClient(o.remote)
	if err != nil {
		return resolveOutput{}, err
	}
	defer c.Close()

	use, err := c.UseObserver(ctx, o.observer, o.begin, o.length)
	if err != nil {
		return resolveOutput{}, err
	}
	out := resolveOutput{Observer: o.observer, Use: use}
	if !use {
		return out, nil
	}
	res, err := c.Resolve(ctx, o.observer, o.begin, o.length)
	if err != nil {
		return resolveOutput{}, err
	}
	out.WindowBegin = res.WindowBegin.Format(time.RFC3339)
	out.WindowFinal = res.WindowFinal.Format(time.RFC3339)
	out.Config = res.Config
	return out, nil
}

// #endregion resolve-cmd

// #region resolve-output
func printConfiguration(w io.Writer, out resolveOutput) {
	fmt.Fprintf(w, "Observer %s  window [%s, %s)\n", out.Observer, out.WindowBegin, out.WindowFinal)
	if !out.Use {
		fmt.Fprintln(w, "not in service for this window")
		return
	}

	names := make([]string, 0, len(out.Config.Variables))
	for name := range out.Config.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	header := []string{fmt.Sprintf("%-8s", "Channel"), fmt.Sprintf("%-6s", "Active")}
	rule := []string{"--------", "------"}
	for _, n := range names {
		header = append(header, fmt.Sprintf("%10s", n))
		rule = append(rule, "----------")
	}
	fmt.Fprintln(w, strings.Join(header, "| "))
	fmt.Fprintln(w, strings.Join(rule, "+-"))

	for i, ch := range out.Config.Simulated {
		active := "no"
		if out.Config.Active[i] == 1 {
			active = "yes"
		}
		row := []string{fmt.Sprintf("%-8d", ch), fmt.Sprintf("%-6s", active)}
		for _, n := range names {
			row = append(row, fmt.Sprintf("%10s", fmtFloat(out.Config.Variables[n][i])))
		}
		fmt.Fprintln(w, strings.Join(row, "| "))
	}
	fmt.Fprintf(w, "\n%d simulated, %d active\n", len(out.Config.Simulated), len(out.Config.ActiveChannels()))
}

// #endregion resolve-output
