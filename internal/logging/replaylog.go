package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielpatrickdp/obschronicle/internal/channels"
	"github.com/danielpatrickdp/obschronicle/internal/replay"
)

// #region log-step
// LogStep writes a provenance entry to the replay_log table.
func LogStep(db *sql.DB, entry StepEntry) error {
	return logStep(context.Background(), db, entry)
}

func logStep(ctx context.Context, db *sql.DB, entry StepEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO replay_log (resolution_id, action_date, action_kind, justification, channels, phase, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ResolutionID,
		entry.ActionDate.UTC().Format(time.RFC3339),
		entry.ActionKind,
		nullIfEmpty(entry.Justification),
		nullIfEmpty(entry.Channels),
		entry.Phase,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log step: %w", err)
	}
	return nil
}

// #endregion log-step

// #region log-steps
// LogSteps records every applied step of one resolution, in replay order.
// It stops at the first failed insert.
func LogSteps(db *sql.DB, resolutionID string, steps []replay.Step) error {
	return LogStepsContext(context.Background(), db, resolutionID, steps)
}

// LogStepsContext is LogSteps bounded by ctx.
func LogStepsContext(ctx context.Context, db *sql.DB, resolutionID string, steps []replay.Step) error {
	now := time.Now().UTC()
	for _, st := range steps {
		err := logStep(ctx, db, StepEntry{
			ResolutionID:  resolutionID,
			ActionDate:    st.Date,
			ActionKind:    string(st.Kind),
			Justification: st.Justification,
			Channels:      channels.Format(st.Channels),
			Phase:         string(st.Phase),
			CreatedAt:     now,
		})
		if err != nil {
			return fmt.Errorf("resolution %s step %s: %w", resolutionID, st.Date.Format(time.RFC3339), err)
		}
	}
	return nil
}

// #endregion log-steps

// #region read-steps
// ReadSteps returns the logged steps of a resolution in insertion order.
func ReadSteps(db *sql.DB, resolutionID string) ([]StepEntry, error) {
	rows, err := db.Query(
		`SELECT resolution_id, action_date, action_kind, justification, channels, phase, created_at
		 FROM replay_log WHERE resolution_id = ? ORDER BY id`, resolutionID,
	)
	if err != nil {
		return nil, fmt.Errorf("read steps: %w", err)
	}
	defer rows.Close()

	var out []StepEntry
	for rows.Next() {
		var e StepEntry
		var date, created string
		var justification, chans sql.NullString
		if err := rows.Scan(&e.ResolutionID, &date, &e.ActionKind, &justification, &chans, &e.Phase, &created); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		e.ActionDate, _ = time.Parse(time.RFC3339, date)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		e.Justification = justification.String
		e.Channels = chans.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion read-steps

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
