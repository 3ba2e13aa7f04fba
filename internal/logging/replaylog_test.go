package logging

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/obschronicle/internal/action"
	"github.com/danielpatrickdp/obschronicle/internal/replay"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE replay_log (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		resolution_id TEXT NOT NULL,
		action_date   TEXT NOT NULL,
		action_kind   TEXT NOT NULL,
		justification TEXT,
		channels      TEXT,
		phase         TEXT NOT NULL,
		created_at    TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-step-tests
func TestLogStep_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := StepEntry{
		ResolutionID:  "r1",
		ActionDate:    time.Date(2009, 4, 20, 0, 0, 0, 0, time.UTC),
		ActionKind:    string(action.KindRemoveActiveChannels),
		Justification: "Channels 1 and 2 degraded",
		Channels:      "1-2",
		Phase:         string(replay.PhaseInWindow),
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogStep(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM replay_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var actionDate, kind string
	db.QueryRow("SELECT action_date, action_kind FROM replay_log").Scan(&actionDate, &kind)
	if actionDate != "2009-04-20T00:00:00Z" {
		t.Errorf("expected action_date '2009-04-20T00:00:00Z', got %q", actionDate)
	}
	if kind != "remove_active_channels" {
		t.Errorf("expected kind 'remove_active_channels', got %q", kind)
	}
}

func TestLogStep_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	err := LogStep(db, StepEntry{ResolutionID: "r2", ActionKind: "add_active_channels", Phase: "before_begin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM replay_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogStep_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	err := LogStep(db, StepEntry{ResolutionID: "r3", ActionKind: "add_active_channels", Phase: "in_window"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var justification, chans sql.NullString
	db.QueryRow("SELECT justification, channels FROM replay_log").Scan(&justification, &chans)
	if justification.Valid {
		t.Error("expected NULL justification for empty string")
	}
	if chans.Valid {
		t.Error("expected NULL channels for empty string")
	}
}

func TestLogStep_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	if err := LogStep(db, StepEntry{ResolutionID: "r4", ActionKind: "x", Phase: "in_window"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-step-tests

// #region log-steps-tests
func TestLogSteps_RoundTrip(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	steps := []replay.Step{
		{
			Date:          time.Date(2009, 5, 1, 0, 0, 0, 0, time.UTC),
			Kind:          action.KindAddSimulatedChannels,
			Justification: "Channel 4 enters the forward operator",
			Channels:      []int{4},
			Phase:         replay.PhaseBeforeBegin,
		},
		{
			Date:          time.Date(2009, 5, 1, 1, 0, 0, 0, time.UTC),
			Kind:          action.KindAddActiveChannels,
			Justification: "Channel 4 passes monitoring",
			Channels:      []int{1, 2, 3, 7},
			Phase:         replay.PhaseInWindow,
		},
	}
	if err := LogSteps(db, "r5", steps); err != nil {
		t.Fatalf("LogSteps: %v", err)
	}

	got, err := ReadSteps(db, "r5")
	if err != nil {
		t.Fatalf("ReadSteps: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(got))
	}
	if got[1].Channels != "1-3,7" {
		t.Errorf("expected compact channels '1-3,7', got %q", got[1].Channels)
	}
	if !got[0].ActionDate.Equal(steps[0].Date) {
		t.Errorf("action date = %v, want %v", got[0].ActionDate, steps[0].Date)
	}
	if got[0].Phase != "before_begin" || got[1].Phase != "in_window" {
		t.Errorf("phases = %q, %q", got[0].Phase, got[1].Phase)
	}

	other, err := ReadSteps(db, "unknown")
	if err != nil {
		t.Fatalf("ReadSteps: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no steps for unknown resolution, got %d", len(other))
	}
}

func TestLogSteps_StopsOnError(t *testing.T) {
	db := setupDB(t)
	db.Close()

	steps := []replay.Step{{Date: time.Now(), Kind: action.KindAddActiveChannels, Phase: replay.PhaseInWindow}}
	if err := LogSteps(db, "r6", steps); err == nil {
		t.Fatal("expected error on closed db")
	}
}

func TestLogStepsContext_Canceled(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	steps := []replay.Step{{Date: time.Now(), Kind: action.KindAddActiveChannels, Phase: replay.PhaseInWindow}}
	if err := LogStepsContext(ctx, db, "r7", steps); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM replay_log").Scan(&count)
	if count != 0 {
		t.Errorf("expected no rows, got %d", count)
	}
}

// #endregion log-steps-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	if result := nullIfEmpty(""); result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	if result := nullIfEmpty("hello"); result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests
