// Package store persists imported entities and the history of import runs.
//
// Two implementations share one contract: Memory, used for dry runs and
// tests, and Postgres, backed by a pgx connection pool. Both satisfy
// importer.EntityStore and can produce the validate.Existing snapshot the
// validation pipeline resolves references against.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/portfolio-import/internal/importer"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

// ErrNotFound is returned when a record to replace does not exist.
var ErrNotFound = errors.New("entity not found")

// ErrDuplicateID is returned when a created record's id is already taken.
var ErrDuplicateID = errors.New("entity id already exists")

// Run summarises one executed import.
type Run struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	Created    int       `json:"created"`
	Replaced   int       `json:"replaced"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	DurationMs int64     `json:"durationMs"`
	Cancelled  bool      `json:"cancelled"`
	StartedAt  time.Time `json:"startedAt"`
}

// RunFromResult builds the history entry for an executor result.
func RunFromResult(fileName string, res *importer.Result, startedAt time.Time) Run {
	return Run{
		ID:         res.ImportID,
		FileName:   fileName,
		Created:    res.Created,
		Replaced:   res.Replaced,
		Skipped:    res.Skipped,
		Failed:     res.Failed,
		DurationMs: res.DurationMs,
		Cancelled:  res.Cancelled,
		StartedAt:  startedAt,
	}
}

// Store is everything the import service needs from persistence.
type Store interface {
	importer.EntityStore

	// Snapshot returns every existing record, per entity type.
	Snapshot(ctx context.Context) (validate.Existing, error)

	// InTx runs fn against a store whose writes commit together. If fn
	// returns an error nothing it wrote is kept.
	InTx(ctx context.Context, fn func(Store) error) error

	// RecordRun appends to the import history.
	RecordRun(ctx context.Context, run Run) error

	// Runs returns the most recent runs first, at most limit.
	Runs(ctx context.Context, limit int) ([]Run, error)
}
