package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"lapse/internal/config"
	"lapse/internal/photo"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; the ledger is rebuildable so a mismatch just asks for a reset.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database.
func Open(cfg *config.Config) (*Store, error) {
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "ledger.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// Record upserts the photo's current lifecycle state, keyed by filename.
func (s *Store) Record(ctx context.Context, p photo.Photo, state State, detail string) error {
	if !state.Valid() {
		return fmt.Errorf("unknown ledger state %q", state)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO photos (
            sequence, filename, capture_date, captured_at, state, detail, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(filename) DO UPDATE SET
            state = excluded.state,
            detail = excluded.detail,
            updated_at = excluded.updated_at`,
		p.Sequence,
		p.Name(),
		p.Date(),
		p.CapturedAt.UTC().Format(time.RFC3339Nano),
		string(state),
		nullableString(detail),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", p.Name(), err)
	}
	return nil
}

// ForDate returns the ledger entries for one capture date, ordered by
// sequence number.
func (s *Store) ForDate(ctx context.Context, date string) ([]Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, sequence, filename, capture_date, captured_at, state, detail, created_at, updated_at
         FROM photos WHERE capture_date = ? ORDER BY sequence`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("query date %s: %w", date, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get returns one photo's ledger entry by filename.
func (s *Store) Get(ctx context.Context, filename string) (*Entry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, sequence, filename, capture_date, captured_at, state, detail, created_at, updated_at
         FROM photos WHERE filename = ?`,
		filename,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CountByState returns per-state row counts for one capture date.
func (s *Store) CountByState(ctx context.Context, date string) (map[State]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT state, COUNT(1) FROM photos WHERE capture_date = ? GROUP BY state`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("count date %s: %w", date, err)
	}
	defer rows.Close()

	counts := make(map[State]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[State(state)] = count
	}
	return counts, rows.Err()
}

// Prune deletes entries whose capture date is older than the cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		"DELETE FROM photos WHERE capture_date < ?",
		photo.DatePart(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune ledger: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var entry Entry
	var capturedAt, createdAt, updatedAt string
	var state string
	var detail sql.NullString

	if err := row.Scan(
		&entry.ID,
		&entry.Sequence,
		&entry.Filename,
		&entry.CaptureDate,
		&capturedAt,
		&state,
		&detail,
		&createdAt,
		&updatedAt,
	); err != nil {
		return Entry{}, err
	}

	entry.State = State(state)
	entry.Detail = detail.String
	entry.CapturedAt = parseTimestamp(capturedAt)
	entry.CreatedAt = parseTimestamp(createdAt)
	entry.UpdatedAt = parseTimestamp(updatedAt)
	return entry, nil
}

func parseTimestamp(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
