// Package sqlite implements the store on an embedded SQLite database.
//
// The database runs in WAL mode with a busy timeout so that concurrent
// workers can write without failing on lock contention. Writes that span
// several statements use IMMEDIATE transactions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/ccollicutt/synclog/pkg/config"
	"github.com/ccollicutt/synclog/pkg/model"
	"github.com/ccollicutt/synclog/pkg/store"
)

// DefaultMaxConns is used when Open is given a non-positive maxConns.
const DefaultMaxConns = 8

var _ store.Store = (*DB)(nil)

// DB wraps a SQLite connection pool.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and initializes
// the schema. The caller must call Close.
func Open(ctx context.Context, path string, maxConns int) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)&_pragma=journal_mode(wal)&_txlock=immediate", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(maxConns)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	if err := db.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := db.InitSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database. A WAL checkpoint is attempted first.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		slog.Warn("failed to checkpoint WAL", "path", db.path, "error", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// InitSchema creates tables and indexes if they don't exist.
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS file_versions (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		file_name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_hash TEXT NOT NULL,
		hash_algorithm TEXT NOT NULL,
		parsed_at TEXT NOT NULL,
		is_complete INTEGER NOT NULL DEFAULT 0,
		completed_at TEXT
	);

	CREATE TABLE IF NOT EXISTS classified_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_version_id TEXT NOT NULL,
		owner TEXT NOT NULL,
		file_name TEXT NOT NULL,
		line_num INTEGER NOT NULL,
		kind TEXT NOT NULL,
		logged_at TEXT NOT NULL,
		database_name TEXT,
		sync_direction TEXT,
		author TEXT,
		modification TEXT,
		document_id TEXT,
		is_skipped INTEGER NOT NULL DEFAULT 0,
		is_error INTEGER NOT NULL DEFAULT 0,
		error_text TEXT,
		FOREIGN KEY (file_version_id) REFERENCES file_versions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS unparsed_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_version_id TEXT NOT NULL,
		line_num INTEGER NOT NULL,
		text TEXT NOT NULL,
		FOREIGN KEY (file_version_id) REFERENCES file_versions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_versions_lookup
	    ON file_versions(owner, file_name, file_hash, is_complete);
	CREATE INDEX IF NOT EXISTS idx_classified_version ON classified_lines(file_version_id);
	CREATE INDEX IF NOT EXISTS idx_unparsed_version ON unparsed_lines(file_version_id);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// FindCompletedVersion returns the most recently completed matching version.
func (db *DB) FindCompletedVersion(ctx context.Context, owner, fileName, hash string) (*model.FileVersion, error) {
	query := `
	SELECT id, owner, file_name, file_path, file_hash, hash_algorithm,
	       parsed_at, is_complete, completed_at
	FROM file_versions
	WHERE owner = ? AND file_name = ? AND file_hash = ? AND is_complete = 1
	ORDER BY completed_at DESC
	LIMIT 1
	`

	v, err := scanVersion(db.conn.QueryRowContext(ctx, query, owner, fileName, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file version: %w", err)
	}
	return v, nil
}

// CreateVersion inserts a version, assigning a UUID if it has no ID.
func (db *DB) CreateVersion(ctx context.Context, v *model.FileVersion) (*model.FileVersion, error) {
	created := *v
	if created.ID == "" {
		created.ID = uuid.NewString()
	}

	query := `
	INSERT INTO file_versions (
		id, owner, file_name, file_path, file_hash, hash_algorithm,
		parsed_at, is_complete, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		created.ID,
		created.Owner,
		created.FileName,
		created.Path,
		created.Hash,
		created.HashAlgorithm,
		formatTime(created.ParsedAt),
		created.Complete,
		timeToNullString(created.CompletedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert file version: %w", err)
	}

	return &created, nil
}

// MarkComplete flags a version as fully ingested.
func (db *DB) MarkComplete(ctx context.Context, v *model.FileVersion) error {
	now := time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE file_versions SET is_complete = 1, completed_at = ? WHERE id = ?`,
		formatTime(now), v.ID)
	if err != nil {
		return fmt.Errorf("failed to mark version %s complete: %w", v.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark version %s complete: %w", v.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("version %s: %w", v.ID, store.ErrVersionNotFound)
	}

	v.Complete = true
	v.CompletedAt = &now
	return nil
}

// AppendLine inserts one record.
func (db *DB) AppendLine(ctx context.Context, rec model.Record) error {
	return insertRecord(ctx, db.conn, rec)
}

// AppendLines inserts records in order inside one transaction.
func (db *DB) AppendLines(ctx context.Context, recs []model.Record) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		if err := insertRecord(ctx, tx, rec); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListVersions returns versions ordered by parse start.
func (db *DB) ListVersions(ctx context.Context, owner string) ([]*model.FileVersion, error) {
	query := `
	SELECT id, owner, file_name, file_path, file_hash, hash_algorithm,
	       parsed_at, is_complete, completed_at
	FROM file_versions
	WHERE (? = '' OR owner = ?)
	ORDER BY parsed_at, owner, file_name
	`

	rows, err := db.conn.QueryContext(ctx, query, owner, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list file versions: %w", err)
	}
	defer rows.Close()

	var versions []*model.FileVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list file versions: %w", err)
	}

	return versions, nil
}

// CountRecords counts stored lines for a version.
func (db *DB) CountRecords(ctx context.Context, versionID string) (int, int, error) {
	var classified, unparsed int
	query := `
	SELECT
		(SELECT COUNT(*) FROM classified_lines WHERE file_version_id = ?),
		(SELECT COUNT(*) FROM unparsed_lines WHERE file_version_id = ?)
	`
	if err := db.conn.QueryRowContext(ctx, query, versionID, versionID).Scan(&classified, &unparsed); err != nil {
		return 0, 0, fmt.Errorf("failed to count records: %w", err)
	}
	return classified, unparsed, nil
}

// Reset deletes all stored data.
func (db *DB) Reset(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"classified_lines", "unparsed_lines", "file_versions"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func init() {
	store.Register(store.DriverSQLite, func(ctx context.Context, cfg config.Store) (store.Store, error) {
		return Open(ctx, cfg.DSN, cfg.MaxConns)
	})
}
