package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/obschronicle/internal/channels"
	"github.com/danielpatrickdp/obschronicle/internal/config"
	"github.com/danielpatrickdp/obschronicle/internal/logging"
	"github.com/danielpatrickdp/obschronicle/internal/store"
)

// #region history-cmd
type historyRow struct {
	ResolutionID string              `json:"resolution_id"`
	Observer     string              `json:"observer"`
	WindowBegin  string              `json:"window_begin"`
	WindowFinal  string              `json:"window_final"`
	Simulated    string              `json:"simulated_channels"`
	Active       string              `json:"active_channels"`
	Steps        int                 `json:"steps_applied"`
	CreatedAt    string              `json:"created_at"`
	Replay       []logging.StepEntry `json:"replay,omitempty"`
}

func newHistoryCmd(cfg config.Config) *cobra.Command {
	var (
		dbPath   string
		observer string
		last     int
		id       string
		jsonOut  bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded resolutions",
		RunE: func(_ *cobra.Command, _ []string) error {
			if dbPath == "" {
				return &exitError{code: 2, msg: "history needs --db or OBSCHRONICLE_DB"}
			}
			st, err := store.NewStore(dbPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer st.Close()

			var rows []historyRow
			if id != "" {
				row, err := historyDetail(st, id)
				if err != nil {
					return err
				}
				rows = []historyRow{row}
			} else {
				if rows, err = historyList(st, observer, last); err != nil {
					return err
				}
			}
			if jsonOut {
				return printJSON(rows)
			}
			printHistory(os.Stdout, rows)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&dbPath, "db", cfg.DBPath, "path to the resolution database")
	f.StringVar(&observer, "observer", "", "only show this observer")
	f.IntVar(&last, "last", 20, "show N most recent resolutions")
	f.StringVar(&id, "id", "", "show one resolution with its replay log")
	f.BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

func toHistoryRow(rec store.Record) historyRow {
	return historyRow{
		ResolutionID: rec.ResolutionID,
		Observer:     rec.Observer,
		WindowBegin:  rec.WindowBegin.Format(time.RFC3339),
		WindowFinal:  rec.WindowFinal.Format(time.RFC3339),
		Simulated:    channels.Format(rec.Config.Simulated),
		Active:       channels.Format(rec.Config.ActiveChannels()),
		Steps:        rec.StepsApplied,
		CreatedAt:    rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func historyList(st *store.Store, observer string, last int) ([]historyRow, error) {
	recs, err := st.ListResolutions(observer, last)
	if err != nil {
		return nil, err
	}
	// store returns DESC, reverse for chronological
	rows := make([]historyRow, len(recs))
	for i, rec := range recs {
		rows[len(recs)-1-i] = toHistoryRow(rec)
	}
	return rows, nil
}

func historyDetail(st *store.Store, id string) (historyRow, error) {
	rec, err := st.GetResolution(id)
	if err != nil {
		return historyRow{}, err
	}
	row := toHistoryRow(rec)
	if row.Replay, err = logging.ReadSteps(st.DB(), id); err != nil {
		return historyRow{}, err
	}
	return row, nil
}

func printHistory(w io.Writer, rows []historyRow) {
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no resolutions found")
		return
	}
	fmt.Fprintf(w, "%-8s  %-16s  %-20s  %-20s  %-12s  %-12s  %5s  %s\n",
		"ID", "Observer", "Begin", "Final", "Simulated", "Active", "Steps", "Time")
	for _, r := range rows {
		fmt.Fprintf(w, "%-8s  %-16s  %-20s  %-20s  %-12s  %-12s  %5d  %s\n",
			shortID(r.ResolutionID), r.Observer, r.WindowBegin, r.WindowFinal, r.Simulated, r.Active, r.Steps, r.CreatedAt)
		for _, s := range r.Replay {
			fmt.Fprintf(w, "    %s  %-36s %-10s %-12s %s\n",
				s.ActionDate.Format(time.RFC3339), s.ActionKind, s.Channels, s.Phase, s.Justification)
		}
	}
}

// #endregion history-cmd
