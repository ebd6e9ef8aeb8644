// Package store defines the persistence gateway used by the ingest pipeline.
//
// The pipeline only needs the narrow Gateway interface. Administrative
// operations (listing and resetting stored data) live on Admin so they can
// never be reached from a parse run by accident.
package store

import (
	"context"
	"errors"

	"github.com/ccollicutt/synclog/pkg/model"
)

// Driver names accepted in configuration.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ErrVersionNotFound is returned when a FileVersion to update does not exist.
var ErrVersionNotFound = errors.New("file version not found")

// Gateway is the durable store for file versions and line records.
// Implementations must be safe for concurrent use.
type Gateway interface {
	// FindCompletedVersion returns a completed FileVersion with the given
	// owner, file name and hash, or nil if there is none.
	FindCompletedVersion(ctx context.Context, owner, fileName, hash string) (*model.FileVersion, error)

	// CreateVersion persists a new FileVersion and returns it with its ID set.
	CreateVersion(ctx context.Context, v *model.FileVersion) (*model.FileVersion, error)

	// MarkComplete sets the completion flag of an existing FileVersion.
	MarkComplete(ctx context.Context, v *model.FileVersion) error

	// AppendLine persists one ClassifiedLine or UnparsedLine.
	AppendLine(ctx context.Context, rec model.Record) error
}

// BatchAppender is implemented by gateways that can persist several records
// at once. Records must be written in slice order.
type BatchAppender interface {
	AppendLines(ctx context.Context, recs []model.Record) error
}

// Admin holds maintenance operations that are not part of parsing.
type Admin interface {
	// ListVersions returns stored file versions, oldest first. An empty
	// owner lists all owners.
	ListVersions(ctx context.Context, owner string) ([]*model.FileVersion, error)

	// CountRecords returns how many classified and unparsed lines are
	// stored for a version.
	CountRecords(ctx context.Context, versionID string) (classified, unparsed int, err error)

	// Reset deletes every stored version and record.
	Reset(ctx context.Context) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// Store is a complete store implementation.
type Store interface {
	Gateway
	BatchAppender
	Admin
	Close() error
}
