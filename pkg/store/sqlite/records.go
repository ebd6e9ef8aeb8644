package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ccollicutt/synclog/pkg/model"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const insertClassified = `
INSERT INTO classified_lines (
	file_version_id, owner, file_name, line_num, kind, logged_at,
	database_name, sync_direction, author, modification, document_id,
	is_skipped, is_error, error_text
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const insertUnparsed = `
INSERT INTO unparsed_lines (file_version_id, line_num, text) VALUES (?, ?, ?)
`

func insertRecord(ctx context.Context, ex execer, rec model.Record) error {
	switch r := rec.(type) {
	case *model.ClassifiedLine:
		_, err := ex.ExecContext(ctx, insertClassified,
			r.FileVersionID,
			r.Owner,
			r.FileName,
			r.LineNum,
			string(r.Kind),
			formatTime(r.Timestamp),
			nullString(r.Database),
			nullString(string(r.Direction)),
			nullString(r.Author),
			nullString(string(r.Modification)),
			nullString(r.DocumentID),
			r.IsSkipped,
			r.IsError,
			nullString(r.ErrorText),
		)
		if err != nil {
			return fmt.Errorf("failed to insert classified line %d: %w", r.LineNum, err)
		}
	case *model.UnparsedLine:
		if _, err := ex.ExecContext(ctx, insertUnparsed, r.FileVersionID, r.LineNum, r.Text); err != nil {
			return fmt.Errorf("failed to insert unparsed line %d: %w", r.LineNum, err)
		}
	default:
		return fmt.Errorf("unsupported record type %T", rec)
	}
	return nil
}

func scanVersion(row rowScanner) (*model.FileVersion, error) {
	var (
		v           model.FileVersion
		parsedAt    string
		completedAt sql.NullString
	)

	err := row.Scan(
		&v.ID,
		&v.Owner,
		&v.FileName,
		&v.Path,
		&v.Hash,
		&v.HashAlgorithm,
		&parsedAt,
		&v.Complete,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if v.ParsedAt, err = time.Parse(time.RFC3339Nano, parsedAt); err != nil {
		return nil, fmt.Errorf("invalid parsed_at %q: %w", parsedAt, err)
	}
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at %q: %w", completedAt.String, err)
		}
		v.CompletedAt = &t
	}

	return &v, nil
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
