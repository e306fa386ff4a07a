package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/threadwatch/internal/models"
)

// DBFileName is the SQLite database file inside the state directory.
const DBFileName = "threadwatch.db"

const lastRunKey = "last_run"

// SQLiteThreadStore implements ThreadStore using SQLite for persistence.
type SQLiteThreadStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dir    string
	dbPath string
	logger *slog.Logger
}

// NewSQLiteThreadStore opens (or creates) the store under dir. A nil
// logger discards warnings.
func NewSQLiteThreadStore(dir string, logger *slog.Logger) (*SQLiteThreadStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dbPath := filepath.Join(dir, DBFileName)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteThreadStore{
		db:     db,
		dir:    dir,
		dbPath: dbPath,
		logger: logger,
	}, nil
}

// Dir returns the state directory the store lives in.
func (s *SQLiteThreadStore) Dir() string {
	return s.dir
}

// PutThread inserts or replaces the record keyed by thread.RootURI.
// The write is a single statement, so a crash can never leave a
// half-written record.
func (s *SQLiteThreadStore) PutThread(ctx context.Context, thread *models.TrackedThread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if thread == nil || thread.RootURI == "" {
		return fmt.Errorf("thread root URI is required")
	}

	record, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("failed to marshal thread record: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	createdAt := now
	if !thread.CreatedAt.IsZero() {
		createdAt = thread.CreatedAt.UTC().Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO threads (
			root_uri, record, score, enabled, backoff_level,
			last_activity, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, thread.RootURI, string(record), thread.Score, boolToInt(thread.Enabled), thread.BackoffLevel,
		nullTime(thread.LastActivity), createdAt, now)
	if err != nil {
		return fmt.Errorf("failed to store thread %s: %w", thread.RootURI, err)
	}

	return nil
}

// GetThread returns the record for rootURI. Missing rows and records
// that no longer decode both read as (nil, nil).
func (s *SQLiteThreadStore) GetThread(ctx context.Context, rootURI string) (*models.TrackedThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM threads WHERE root_uri = ?`, rootURI).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", rootURI, err)
	}

	thread, err := models.DecodeThread([]byte(record))
	if err != nil {
		if errors.Is(err, models.ErrLegacyRecord) {
			s.logger.Warn("skipping legacy thread record", "root_uri", rootURI)
		} else {
			s.logger.Warn("skipping corrupt thread record", "root_uri", rootURI, "error", err)
		}
		return nil, nil
	}
	return thread, nil
}

// ListThreads returns all decodable records, highest score first.
func (s *SQLiteThreadStore) ListThreads(ctx context.Context) ([]*models.TrackedThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listThreadsUnlocked(ctx)
}

func (s *SQLiteThreadStore) listThreadsUnlocked(ctx context.Context) ([]*models.TrackedThread, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT root_uri, record FROM threads ORDER BY score DESC, root_uri`)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	var threads []*models.TrackedThread
	for rows.Next() {
		var rootURI, record string
		if err := rows.Scan(&rootURI, &record); err != nil {
			return nil, fmt.Errorf("failed to scan thread row: %w", err)
		}
		thread, err := models.DecodeThread([]byte(record))
		if err != nil {
			s.logger.Warn("skipping undecodable thread record", "root_uri", rootURI, "error", err)
			continue
		}
		threads = append(threads, thread)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate threads: %w", err)
	}

	return threads, nil
}

// DeleteThread removes the record for rootURI.
func (s *SQLiteThreadStore) DeleteThread(ctx context.Context, rootURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE root_uri = ?`, rootURI); err != nil {
		return fmt.Errorf("failed to delete thread %s: %w", rootURI, err)
	}
	return nil
}

// EngagedAcross unions the engaged sets of every stored thread.
func (s *SQLiteThreadStore) EngagedAcross(ctx context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads, err := s.listThreadsUnlocked(ctx)
	if err != nil {
		return nil, err
	}

	engaged := make(map[string]bool)
	for _, t := range threads {
		for _, did := range t.Engaged {
			engaged[did] = true
		}
	}
	return engaged, nil
}

// FilterUnevaluated returns the uris not yet in the evaluated log,
// preserving input order.
func (s *SQLiteThreadStore) FilterUnevaluated(ctx context.Context, uris []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(uris) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(uris))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(uris))
	for i, uri := range uris {
		args[i] = uri
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT uri FROM evaluated_notifications WHERE uri IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluated notifications: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("failed to scan evaluated uri: %w", err)
		}
		seen[uri] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate evaluated notifications: %w", err)
	}

	var fresh []string
	for _, uri := range uris {
		if !seen[uri] {
			fresh = append(fresh, uri)
		}
	}
	return fresh, nil
}

// MarkEvaluated appends uris to the evaluated log and truncates it to
// the most recent max entries, all in one transaction.
func (s *SQLiteThreadStore) MarkEvaluated(ctx context.Context, uris []string, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, uri := range uris {
		if uri == "" {
			continue
		}
		// INSERT OR REPLACE refreshes the rowid, so re-marking a uri
		// also refreshes its position in the recency order.
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO evaluated_notifications (uri, seen_at) VALUES (?, ?)`,
			uri, now); err != nil {
			return fmt.Errorf("failed to mark notification evaluated: %w", err)
		}
	}

	if max > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM evaluated_notifications WHERE uri NOT IN (
				SELECT uri FROM evaluated_notifications ORDER BY rowid DESC LIMIT ?
			)
		`, max); err != nil {
			return fmt.Errorf("failed to truncate evaluated notifications: %w", err)
		}
	}

	return tx.Commit()
}

// LastRun returns when discovery last completed, or the zero time.
func (s *SQLiteThreadStore) LastRun(ctx context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, lastRunKey).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last run: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		s.logger.Warn("unparseable last_run value", "value", value, "error", err)
		return time.Time{}, nil
	}
	return at, nil
}

// SetLastRun records when discovery last completed.
func (s *SQLiteThreadStore) SetLastRun(ctx context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`,
		lastRunKey, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to set last run: %w", err)
	}
	return nil
}

// Close closes the store.
func (s *SQLiteThreadStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
