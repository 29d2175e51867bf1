package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-piano/logging"
	"github.com/RyanBlaney/sonido-piano/pipeline"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultPath is used when neither the config nor SONIDO_DB_PATH names a file
const DefaultPath = "./data/sonido-piano.db"

// ErrNotFound is returned by Latest when a source has never been analyzed
var ErrNotFound = errors.New("no analysis found")

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	sample_rate INTEGER NOT NULL,
	frames INTEGER NOT NULL,
	onsets INTEGER NOT NULL,
	key TEXT,
	tempo REAL,
	summary TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_path ON analyses(source);
`

// columns added after the first schema, applied to older databases
var migrations = []string{
	"ALTER TABLE analyses ADD COLUMN scale_key TEXT",
	"ALTER TABLE analyses ADD COLUMN notes INTEGER DEFAULT 0",
}

// Config holds the store location
type Config struct {
	Path string `json:"path"`
}

// DefaultConfig returns the default store location
func DefaultConfig() Config {
	return Config{Path: DefaultPath}
}

// Record is one stored analysis
type Record struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Summary   pipeline.Summary `json:"summary"`
}

// Store persists analysis summaries in SQLite
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open creates or opens the database at path and brings its schema up to date
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps writes serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil && !strings.Contains(err.Error(), "duplicate column name") {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return &Store{
		db: db,
		logger: logging.WithFields(logging.Fields{
			"component": "store",
			"path":      path,
		}),
	}, nil
}

// Close releases the database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores a summary under a fresh id and returns the id
func (s *Store) Save(ctx context.Context, summary pipeline.Summary) (string, error) {
	payload, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}

	id := uuid.NewString()
	var key any
	if summary.Key != "" {
		key = summary.Key
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, source, created_at, duration_ms, sample_rate, frames, onsets, key, tempo, summary, scale_key, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, summary.Source, time.Now().UnixNano(), summary.Duration.Milliseconds(), summary.SampleRate,
		summary.Frames, summary.Onsets, key, summary.Tempo, string(payload), summary.ScaleKey, summary.Notes)
	if err != nil {
		s.logger.Error(err, "Failed to save analysis", logging.Fields{"source": summary.Source})
		return "", fmt.Errorf("failed to save analysis: %w", err)
	}

	s.logger.Debug("Saved analysis", logging.Fields{"id": id, "source": summary.Source})
	return id, nil
}

// Latest returns the most recent analysis of source
func (s *Store) Latest(ctx context.Context, source string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, summary FROM analyses
		WHERE source = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, source)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for %s", ErrNotFound, source)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns up to limit analyses, newest first. A non-positive limit
// returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, summary FROM analyses
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		record    Record
		createdAt int64
		payload   string
	)
	if err := row.Scan(&record.ID, &createdAt, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read analysis: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &record.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode analysis %s: %w", record.ID, err)
	}
	record.CreatedAt = time.Unix(0, createdAt)
	return &record, nil
}
