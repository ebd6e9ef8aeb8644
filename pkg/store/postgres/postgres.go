// Package postgres implements the store on PostgreSQL using a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ccollicutt/synclog/pkg/config"
	"github.com/ccollicutt/synclog/pkg/model"
	"github.com/ccollicutt/synclog/pkg/store"
)

var _ store.Store = (*DB)(nil)

func init() {
	store.Register(store.DriverPostgres, func(ctx context.Context, cfg config.Store) (store.Store, error) {
		return Open(ctx, cfg.DSN, cfg.MaxConns)
	})
}

const schema = `
CREATE TABLE IF NOT EXISTS file_versions (
	id TEXT PRIMARY KEY,
	owner TEXT NOT NULL,
	file_name TEXT NOT NULL,
	file_path TEXT NOT NULL,
	file_hash TEXT NOT NULL,
	hash_algorithm TEXT NOT NULL,
	parsed_at TIMESTAMPTZ NOT NULL,
	is_complete BOOLEAN NOT NULL DEFAULT FALSE,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS classified_lines (
	id BIGSERIAL PRIMARY KEY,
	file_version_id TEXT NOT NULL REFERENCES file_versions(id) ON DELETE CASCADE,
	owner TEXT NOT NULL,
	file_name TEXT NOT NULL,
	line_num INTEGER NOT NULL,
	kind TEXT NOT NULL,
	logged_at TIMESTAMPTZ NOT NULL,
	database_name TEXT,
	sync_direction TEXT,
	author TEXT,
	modification TEXT,
	document_id TEXT,
	is_skipped BOOLEAN NOT NULL DEFAULT FALSE,
	is_error BOOLEAN NOT NULL DEFAULT FALSE,
	error_text TEXT
);

CREATE TABLE IF NOT EXISTS unparsed_lines (
	id BIGSERIAL PRIMARY KEY,
	file_version_id TEXT NOT NULL REFERENCES file_versions(id) ON DELETE CASCADE,
	line_num INTEGER NOT NULL,
	text TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_versions_lookup
    ON file_versions(owner, file_name, file_hash, is_complete);
CREATE INDEX IF NOT EXISTS idx_classified_version ON classified_lines(file_version_id);
CREATE INDEX IF NOT EXISTS idx_unparsed_version ON unparsed_lines(file_version_id);
`

const versionColumns = `id, owner, file_name, file_path, file_hash, hash_algorithm,
	parsed_at, is_complete, completed_at`

const insertClassified = `
INSERT INTO classified_lines (
	file_version_id, owner, file_name, line_num, kind, logged_at,
	database_name, sync_direction, author, modification, document_id,
	is_skipped, is_error, error_text
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

const insertUnparsed = `
INSERT INTO unparsed_lines (file_version_id, line_num, text) VALUES ($1, $2, $3)
`

// DB wraps a pgx connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and creates the schema if needed.
func Open(ctx context.Context, dsn string, maxConns int) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the pool.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// FindCompletedVersion returns the most recently completed matching version.
func (db *DB) FindCompletedVersion(ctx context.Context, owner, fileName, hash string) (*model.FileVersion, error) {
	query := `SELECT ` + versionColumns + `
	FROM file_versions
	WHERE owner = $1 AND file_name = $2 AND file_hash = $3 AND is_complete
	ORDER BY completed_at DESC
	LIMIT 1`

	v, err := scanVersion(db.pool.QueryRow(ctx, query, owner, fileName, hash))
	if errors.Is(err, pgx.ErrNoRows) {
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

	_, err := db.pool.Exec(ctx, `
	INSERT INTO file_versions (`+versionColumns+`)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		created.ID,
		created.Owner,
		created.FileName,
		created.Path,
		created.Hash,
		created.HashAlgorithm,
		created.ParsedAt.UTC(),
		created.Complete,
		created.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert file version: %w", err)
	}

	return &created, nil
}

// MarkComplete flags a version as fully ingested.
func (db *DB) MarkComplete(ctx context.Context, v *model.FileVersion) error {
	now := time.Now().UTC()

	tag, err := db.pool.Exec(ctx,
		`UPDATE file_versions SET is_complete = TRUE, completed_at = $2 WHERE id = $1`,
		v.ID, now)
	if err != nil {
		return fmt.Errorf("failed to mark version %s complete: %w", v.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("version %s: %w", v.ID, store.ErrVersionNotFound)
	}

	v.Complete = true
	v.CompletedAt = &now
	return nil
}

// AppendLine inserts one record.
func (db *DB) AppendLine(ctx context.Context, rec model.Record) error {
	query, args, err := recordInsert(rec)
	if err != nil {
		return err
	}
	if _, err := db.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert line %d: %w", rec.Line(), err)
	}
	return nil
}

// AppendLines sends all inserts as one batch inside a transaction.
func (db *DB) AppendLines(ctx context.Context, recs []model.Record) error {
	if len(recs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range recs {
		query, args, err := recordInsert(rec)
		if err != nil {
			return err
		}
		batch.Queue(query, args...)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for _, rec := range recs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert line %d: %w", rec.Line(), err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListVersions returns versions ordered by parse start.
func (db *DB) ListVersions(ctx context.Context, owner string) ([]*model.FileVersion, error) {
	query := `SELECT ` + versionColumns + `
	FROM file_versions
	WHERE ($1::text = '' OR owner = $1)
	ORDER BY parsed_at, owner, file_name`

	rows, err := db.pool.Query(ctx, query, owner)
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
	err := db.pool.QueryRow(ctx, `
	SELECT
		(SELECT COUNT(*) FROM classified_lines WHERE file_version_id = $1),
		(SELECT COUNT(*) FROM unparsed_lines WHERE file_version_id = $1)`,
		versionID).Scan(&classified, &unparsed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count records: %w", err)
	}
	return classified, unparsed, nil
}

// Reset deletes all stored data.
func (db *DB) Reset(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, `TRUNCATE classified_lines, unparsed_lines, file_versions`); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return nil
}

func recordInsert(rec model.Record) (string, []any, error) {
	switch r := rec.(type) {
	case *model.ClassifiedLine:
		return insertClassified, []any{
			r.FileVersionID,
			r.Owner,
			r.FileName,
			r.LineNum,
			string(r.Kind),
			r.Timestamp.UTC(),
			nullIfEmpty(r.Database),
			nullIfEmpty(string(r.Direction)),
			nullIfEmpty(r.Author),
			nullIfEmpty(string(r.Modification)),
			nullIfEmpty(r.DocumentID),
			r.IsSkipped,
			r.IsError,
			nullIfEmpty(r.ErrorText),
		}, nil
	case *model.UnparsedLine:
		return insertUnparsed, []any{r.FileVersionID, r.LineNum, r.Text}, nil
	default:
		return "", nil, fmt.Errorf("unsupported record type %T", rec)
	}
}

func scanVersion(row pgx.Row) (*model.FileVersion, error) {
	var v model.FileVersion
	err := row.Scan(
		&v.ID,
		&v.Owner,
		&v.FileName,
		&v.Path,
		&v.Hash,
		&v.HashAlgorithm,
		&v.ParsedAt,
		&v.Complete,
		&v.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	v.ParsedAt = v.ParsedAt.UTC()
	if v.CompletedAt != nil {
		t := v.CompletedAt.UTC()
		v.CompletedAt = &t
	}
	return &v, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
