package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/dupcheck/internal/model"
)

// FileName is the database file created inside the history directory.
const FileName = "dupcheck.db"

// HistoryDB stores finished duplicate-check runs.
// It is safe for concurrent use; writes are serialized by the single
// connection.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in the given directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist,
// ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		input_path TEXT NOT NULL,
		output_path TEXT NOT NULL,
		digest TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		sentence_count INTEGER NOT NULL DEFAULT 0,
		matched_sentences INTEGER NOT NULL DEFAULT 0,
		match_count INTEGER NOT NULL DEFAULT 0,
		top_score REAL NOT NULL DEFAULT 0,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(digest);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunMetadata contains summary information about a stored run.
// This is used for listing history without loading the full report.
type RunMetadata struct {
	ID               string
	InputPath        string
	OutputPath       string
	Digest           string
	StartedAt        time.Time
	FinishedAt       time.Time
	SentenceCount    int
	MatchedSentences int
	MatchCount       int
	TopScore         float64
	Error            string
}

// SaveRun stores a run. Saving the same run ID again replaces the
// previous row.
func (hdb *HistoryDB) SaveRun(ctx context.Context, report *model.CheckReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	summary := model.NewSummary(report)

	var finished sql.NullString
	if !report.FinishedAt.IsZero() {
		finished = sql.NullString{String: formatTimestamp(report.FinishedAt), Valid: true}
	}

	query := `
	INSERT INTO runs (id, input_path, output_path, digest, started_at, finished_at,
		sentence_count, matched_sentences, match_count, top_score, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		output_path = excluded.output_path,
		digest = excluded.digest,
		finished_at = excluded.finished_at,
		sentence_count = excluded.sentence_count,
		matched_sentences = excluded.matched_sentences,
		match_count = excluded.match_count,
		top_score = excluded.top_score,
		error = excluded.error,
		report_json = excluded.report_json
	`

	_, err = hdb.db.ExecContext(ctx, query,
		report.ID,
		report.InputPath,
		report.OutputPath,
		report.Digest,
		formatTimestamp(report.StartedAt),
		finished,
		summary.SentenceCount,
		summary.MatchedSentences,
		summary.MatchCount,
		summary.TopScore,
		report.ErrorMessage,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun retrieves a stored run by ID. It returns ErrRunNotFound when no
// such run exists.
func (hdb *HistoryDB) GetRun(ctx context.Context, id string) (*model.CheckReport, error) {
	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.CheckReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// ListRuns returns metadata of the most recent runs, newest first.
// A limit of zero or less returns every run.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunMetadata, error) {
	query := metadataQuery + ` ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return hdb.queryMetadata(ctx, query, args...)
}

// FindByDigest returns the runs whose input had the given digest,
// newest first.
func (hdb *HistoryDB) FindByDigest(ctx context.Context, digest string) ([]RunMetadata, error) {
	if digest == "" {
		return nil, nil
	}
	return hdb.queryMetadata(ctx, metadataQuery+` WHERE digest = ? ORDER BY started_at DESC`, digest)
}

const metadataQuery = `
	SELECT id, input_path, output_path, digest, started_at, finished_at,
		sentence_count, matched_sentences, match_count, top_score, error
	FROM runs`

func (hdb *HistoryDB) queryMetadata(ctx context.Context, query string, args ...any) ([]RunMetadata, error) {
	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var (
			meta     RunMetadata
			digest   sql.NullString
			started  string
			finished sql.NullString
			errMsg   sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.InputPath, &meta.OutputPath, &digest, &started, &finished,
			&meta.SentenceCount, &meta.MatchedSentences, &meta.MatchCount, &meta.TopScore, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		meta.Digest = digest.String
		meta.StartedAt = parseTimestamp(started)
		if finished.Valid {
			meta.FinishedAt = parseTimestamp(finished.String)
		}
		meta.Error = errMsg.String
		results = append(results, meta)
	}
	return results, rows.Err()
}

// timestampLayout sorts lexicographically in time order, which the
// ORDER BY clauses rely on.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// Rows written by hand or by older versions may use SQLite's own format.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02 15:04:05.999",
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
