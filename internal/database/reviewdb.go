package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/banreview/internal/model"
)

// FileName is the database file inside the database directory.
const FileName = "banreview.db"

var (
	// ErrNotFound is returned when the database file does not exist and
	// Options.CreateIfNotExists is false.
	ErrNotFound = errors.New("database not found")

	// ErrRunNotFound is returned when no run matches the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRun is returned when an ID prefix matches several runs.
	ErrAmbiguousRun = errors.New("run ID prefix matches more than one run")
)

// ReviewDB stores review runs and their verdicts.
type ReviewDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// now returns the current time; replaced in tests.
	now func() time.Time

	// newID generates run IDs.
	newID func() string
}

// Options configures ReviewDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the ReviewDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, ErrNotFound is returned.
func Open(dbDir string, opts Options) (*ReviewDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ReviewDB{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
		newID:  uuid.NewString,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *ReviewDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *ReviewDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ReviewDB) createTables() error {
	schema := `
	-- One row per review run; totals are filled in when the run finishes
	CREATE TABLE IF NOT EXISTS runs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		community TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		pages INTEGER DEFAULT 0,
		evaluated INTEGER DEFAULT 0,
		recommended INTEGER DEFAULT 0,
		screened_out INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		recommended_users TEXT
	);

	-- Verdicts keep ban list order through (page, position)
	CREATE TABLE IF NOT EXISTS verdicts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		page INTEGER NOT NULL,
		position INTEGER NOT NULL,
		username TEXT NOT NULL,
		reason TEXT,
		note TEXT,
		unban INTEGER NOT NULL DEFAULT 0,
		user_url TEXT,
		content_urls TEXT,
		content_checks TEXT,
		outcome TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_verdicts_run ON verdicts(run_id, page, position);
	CREATE INDEX IF NOT EXISTS idx_verdicts_username ON verdicts(username);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// StartRun records the start of a review of community and returns the new run.
func (rdb *ReviewDB) StartRun(ctx context.Context, community string) (model.Run, error) {
	run := model.Run{
		ID:        rdb.newID(),
		Community: community,
		StartedAt: rdb.now().UTC(),
	}

	query := `INSERT INTO runs (id, community, started_at) VALUES (?, ?, ?)`
	if _, err := rdb.db.ExecContext(ctx, query, run.ID, run.Community, formatTimestamp(run.StartedAt)); err != nil {
		return model.Run{}, fmt.Errorf("failed to start run: %w", err)
	}

	return run, nil
}

// FinishRun stores the totals of the run and marks it finished.
func (rdb *ReviewDB) FinishRun(ctx context.Context, runID string, summary model.RunSummary) error {
	users := summary.RecommendedUsers
	if users == nil {
		users = []string{}
	}
	usersJSON, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to serialize recommended users: %w", err)
	}

	query := `
	UPDATE runs SET
		finished_at = ?,
		pages = ?,
		evaluated = ?,
		recommended = ?,
		screened_out = ?,
		failed = ?,
		recommended_users = ?
	WHERE id = ?
	`

	result, err := rdb.db.ExecContext(ctx, query,
		formatTimestamp(rdb.now().UTC()),
		summary.Pages,
		summary.Evaluated,
		summary.Recommended,
		summary.ScreenedOut,
		summary.Failed,
		string(usersJSON),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return nil
}

// SaveVerdicts stores the verdicts of one ban list page of a run.
// When replace is true the run's earlier verdicts are removed first.
func (rdb *ReviewDB) SaveVerdicts(ctx context.Context, runID string, page int, verdicts []model.Verdict, replace bool) error {
	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM verdicts WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("failed to clear verdicts: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO verdicts (run_id, page, position, username, reason, note, unban, user_url, content_urls, content_checks, outcome)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare verdict insert: %w", err)
	}
	defer stmt.Close()

	for i, v := range verdicts {
		_, err := stmt.ExecContext(ctx,
			runID,
			page,
			i,
			v.Username,
			v.Reason,
			v.Note,
			v.UnbanRecommended,
			v.ProfileURL,
			v.EvidenceURLs,
			v.EvidenceDetail,
			string(v.Outcome),
		)
		if err != nil {
			return fmt.Errorf("failed to insert verdict for %s: %w", v.Username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit verdicts: %w", err)
	}
	return nil
}

// History returns the most recent runs, newest first.
// A non-positive limit returns every run.
func (rdb *ReviewDB) History(ctx context.Context, limit int) ([]model.Run, error) {
	query := `
	SELECT id, community, started_at, finished_at, pages, evaluated, recommended, screened_out, failed, recommended_users
	FROM runs
	ORDER BY seq DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRun returns the run whose ID equals id or starts with it.
func (rdb *ReviewDB) GetRun(ctx context.Context, id string) (model.Run, error) {
	if id == "" {
		return model.Run{}, ErrRunNotFound
	}

	query := `
	SELECT id, community, started_at, finished_at, pages, evaluated, recommended, screened_out, failed, recommended_users
	FROM runs
	WHERE id = ? OR substr(id, 1, ?) = ?
	ORDER BY (id = ?) DESC, seq DESC
	LIMIT 2
	`

	rows, err := rdb.db.QueryContext(ctx, query, id, len(id), id, id)
	if err != nil {
		return model.Run{}, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return model.Run{}, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return model.Run{}, fmt.Errorf("failed to get run: %w", err)
	}

	switch {
	case len(runs) == 0:
		return model.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case runs[0].ID == id:
		return runs[0], nil
	case len(runs) > 1:
		return model.Run{}, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	default:
		return runs[0], nil
	}
}

// RunVerdicts returns the verdicts of a run in ban list order.
func (rdb *ReviewDB) RunVerdicts(ctx context.Context, runID string) ([]model.Verdict, error) {
	query := `
	SELECT username, reason, note, unban, user_url, content_urls, content_checks, outcome
	FROM verdicts
	WHERE run_id = ?
	ORDER BY page, position
	`

	rows, err := rdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []model.Verdict
	for rows.Next() {
		var v model.Verdict
		var outcome string
		err := rows.Scan(
			&v.Username,
			&v.Reason,
			&v.Note,
			&v.UnbanRecommended,
			&v.ProfileURL,
			&v.EvidenceURLs,
			&v.EvidenceDetail,
			&outcome,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		v.Outcome = model.Outcome(outcome)
		verdicts = append(verdicts, v)
	}

	return verdicts, rows.Err()
}

// scanRun reads one runs row.
func scanRun(rows *sql.Rows) (model.Run, error) {
	var run model.Run
	var startedAt string
	var finishedAt, usersJSON sql.NullString

	err := rows.Scan(
		&run.ID,
		&run.Community,
		&startedAt,
		&finishedAt,
		&run.Summary.Pages,
		&run.Summary.Evaluated,
		&run.Summary.Recommended,
		&run.Summary.ScreenedOut,
		&run.Summary.Failed,
		&usersJSON,
	)
	if err != nil {
		return model.Run{}, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	if usersJSON.Valid && usersJSON.String != "" {
		if err := json.Unmarshal([]byte(usersJSON.String), &run.Summary.RecommendedUsers); err != nil {
			return model.Run{}, fmt.Errorf("failed to parse recommended users: %w", err)
		}
	}

	return run, nil
}

// formatTimestamp renders t the way it is stored.
func formatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,      // written by formatTimestamp
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05", // ISO 8601 without timezone
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
