package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteConfig contains configuration for the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path. Parent directories are created.
	Path string

	// MaxEntries bounds the number of kept entries. 0 means unlimited.
	MaxEntries int

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Logger receives store lifecycle messages. Defaults to slog.Default().
	Logger *slog.Logger
}

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	maxEntries int
	logger     *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at cfg.Path.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, storageErr("sqlite", "open", errors.New("database path is required"))
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "journal.sqlite")

	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, storageErr("sqlite", "open", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(cfg.Path, cfg.BusyTimeout))
	if err != nil {
		return nil, storageErr("sqlite", "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	s := &SQLiteStore{
		db:         db,
		path:       cfg.Path,
		maxEntries: cfg.MaxEntries,
		logger:     logger,
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("journal opened", "path", cfg.Path, "max_entries", cfg.MaxEntries)
	return s, nil
}

// dsn applies the pragmas to every pooled connection.
func dsn(path string, busy time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(schema); err != nil {
		return storageErr("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return storageErr("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(getSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return storageErr("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return storageErr("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Record inserts e and prunes entries beyond MaxEntries.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) (Entry, error) {
	if err := e.validate(); err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, insertEntry,
		e.ID, string(e.Kind), e.Outcome,
		nullString(e.Revision), nullString(e.Detail), nullString(e.Error),
		e.Started.UnixNano(), e.Finished.UnixNano(),
	)
	if err != nil {
		return Entry{}, storageErr("sqlite", "record", err)
	}

	if s.maxEntries > 0 {
		res, err := s.db.ExecContext(ctx, pruneEntries, s.maxEntries)
		if err != nil {
			return e, storageErr("sqlite", "prune", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.logger.Debug("pruned journal entries", "deleted_count", n, "max_entries", s.maxEntries)
		}
	}
	return e, nil
}

// List returns matching entries, newest first.
func (s *SQLiteStore) List(ctx context.Context, q Query) ([]Entry, error) {
	var conditions []string
	var args []any

	if q.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if !q.Since.IsZero() {
		conditions = append(conditions, "started >= ?")
		args = append(args, q.Since.UnixNano())
	}

	query := "SELECT id, kind, outcome, revision, detail, error, started, finished FROM entries"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY seq DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("sqlite", "list", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                       Entry
			kind                    string
			revision, detail, cause sql.NullString
			started, finished       int64
		)
		if err := rows.Scan(&e.ID, &kind, &e.Outcome, &revision, &detail, &cause, &started, &finished); err != nil {
			return nil, storageErr("sqlite", "scan", err)
		}
		e.Kind = Kind(kind)
		e.Revision = revision.String
		e.Detail = detail.String
		e.Error = cause.String
		e.Started = time.Unix(0, started)
		e.Finished = time.Unix(0, finished)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("sqlite", "list", err)
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return 0, storageErr("sqlite", "count", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return storageErr("sqlite", "close", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
