package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/obschronicle/internal/resolve"
)

// ErrNotFound is returned when a resolution or observer has no stored record.
var ErrNotFound = errors.New("resolution not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS resolutions (
	resolution_id  TEXT PRIMARY KEY,
	observer       TEXT NOT NULL,
	window_begin   TEXT NOT NULL,
	window_final   TEXT NOT NULL,
	config_json    TEXT NOT NULL,
	begin_as_of    TEXT NOT NULL,
	final_as_of    TEXT NOT NULL,
	steps_applied  INTEGER NOT NULL,
	created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS resolutions_observer ON resolutions(observer, created_at);

CREATE TABLE IF NOT EXISTS replay_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	resolution_id  TEXT NOT NULL,
	action_date    TEXT NOT NULL,
	action_kind    TEXT NOT NULL,
	justification  TEXT,
	channels       TEXT,
	phase          TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (resolution_id) REFERENCES resolutions(resolution_id)
);

CREATE TABLE IF NOT EXISTS latest_resolution (
	observer       TEXT PRIMARY KEY,
	resolution_id  TEXT NOT NULL,
	FOREIGN KEY (resolution_id) REFERENCES resolutions(resolution_id)
);
`

// #endregion schema

// #region record
// Record is one stored window resolution for an observer.
type Record struct {
	ResolutionID string
	Observer     string
	WindowBegin  time.Time
	WindowFinal  time.Time
	Config       resolve.Configuration
	BeginAsOf    time.Time // date of the last action folded into the begin snapshot
	FinalAsOf    time.Time
	StepsApplied int
	CreatedAt    time.Time
}

// #endregion record

// #region store-struct
// Store persists resolutions and their replay provenance in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already-migrated database.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema on db.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #region save
// SaveResolution inserts rec and makes it the latest resolution of its
// observer. An empty ResolutionID is filled with a fresh uuid and a zero
// CreatedAt with the current time; the completed record is returned.
func (s *Store) SaveResolution(rec Record) (Record, error) {
	return s.SaveResolutionContext(context.Background(), rec)
}

// SaveResolutionContext is SaveResolution bounded by ctx.
func (s *Store) SaveResolutionContext(ctx context.Context, rec Record) (Record, error) {
	if rec.ResolutionID == "" {
		rec.ResolutionID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cfgJSON, err := json.Marshal(rec.Config)
	if err != nil {
		return Record{}, fmt.Errorf("marshal configuration: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO resolutions (resolution_id, observer, window_begin, window_final, config_json,
		 begin_as_of, final_as_of, steps_applied, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ResolutionID, rec.Observer, formatTime(rec.WindowBegin), formatTime(rec.WindowFinal),
		string(cfgJSON), formatTime(rec.BeginAsOf), formatTime(rec.FinalAsOf), rec.StepsApplied,
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert resolution: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO latest_resolution (observer, resolution_id) VALUES (?, ?)
		 ON CONFLICT(observer) DO UPDATE SET resolution_id = excluded.resolution_id`,
		rec.Observer, rec.ResolutionID,
	)
	if err != nil {
		return Record{}, fmt.Errorf("set latest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion save

// #region get
const selectColumns = `SELECT resolution_id, observer, window_begin, window_final, config_json,
	begin_as_of, final_as_of, steps_applied, created_at FROM resolutions`

// GetResolution retrieves a resolution by id.
func (s *Store) GetResolution(id string) (Record, error) {
	rec, err := scanRecord(s.db.QueryRow(selectColumns+` WHERE resolution_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("get resolution %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get resolution %s: %w", id, err)
	}
	return rec, nil
}

// GetLatest returns the most recently saved resolution for observer.
func (s *Store) GetLatest(observer string) (Record, error) {
	var id string
	err := s.db.QueryRow(`SELECT resolution_id FROM latest_resolution WHERE observer = ?`, observer).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("latest for %s: %w", observer, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("latest for %s: %w", observer, err)
	}
	return s.GetResolution(id)
}

// #endregion get

// #region list
// ListResolutions returns up to limit resolutions, newest first. An empty
// observer lists every observer.
func (s *Store) ListResolutions(observer string, limit int) ([]Record, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if observer == "" {
		rows, err = s.db.Query(selectColumns+` ORDER BY created_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(selectColumns+` WHERE observer = ? ORDER BY created_at DESC LIMIT ?`, observer, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list

// #region scan
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var begin, final, cfgJSON, beginAsOf, finalAsOf, created string
	if err := row.Scan(&rec.ResolutionID, &rec.Observer, &begin, &final, &cfgJSON,
		&beginAsOf, &finalAsOf, &rec.StepsApplied, &created); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(cfgJSON), &rec.Config); err != nil {
		return Record{}, fmt.Errorf("unmarshal configuration: %w", err)
	}
	rec.WindowBegin, _ = time.Parse(time.RFC3339Nano, begin)
	rec.WindowFinal, _ = time.Parse(time.RFC3339Nano, final)
	rec.BeginAsOf, _ = time.Parse(time.RFC3339Nano, beginAsOf)
	rec.FinalAsOf, _ = time.Parse(time.RFC3339Nano, finalAsOf)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// #endregion scan
