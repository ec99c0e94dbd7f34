package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// migrations create the tables the store needs. Each is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS entities (
		id          TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		name        TEXT NOT NULL,
		fields      JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS entities_type_idx ON entities (entity_type)`,
	`CREATE TABLE IF NOT EXISTS import_runs (
		id          TEXT PRIMARY KEY,
		file_name   TEXT NOT NULL DEFAULT '',
		created     INTEGER NOT NULL DEFAULT 0,
		replaced    INTEGER NOT NULL DEFAULT 0,
		skipped     INTEGER NOT NULL DEFAULT 0,
		failed      INTEGER NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		cancelled   BOOLEAN NOT NULL DEFAULT false,
		started_at  TIMESTAMPTZ NOT NULL
	)`,
}

// Postgres stores entities in a single JSONB-backed table.
type Postgres struct {
	db DBTX
}

// NewPostgres wraps a connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool}
}

// Migrate creates the store's tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// savepoint runs fn in a nested transaction: a real transaction on the pool,
// a savepoint inside InTx. A failing row then leaves the outer transaction
// usable.
func (p *Postgres) savepoint(ctx context.Context, fn func(DBTX) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Create implements importer.EntityStore.
func (p *Postgres) Create(ctx context.Context, et schema.EntityType, rec validate.Record) error {
	return p.savepoint(ctx, func(db DBTX) error {
		_, err := db.Exec(ctx,
			`INSERT INTO entities (id, entity_type, name, fields) VALUES ($1, $2, $3, $4)`,
			rec.ID, string(et), rec.Name, rec.Fields,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("create %s %s: %w", et, rec.ID, ErrDuplicateID)
			}
			return fmt.Errorf("create %s %s: %w", et, rec.ID, err)
		}
		return nil
	})
}

// Replace implements importer.EntityStore.
func (p *Postgres) Replace(ctx context.Context, et schema.EntityType, existingID string, rec validate.Record) error {
	return p.savepoint(ctx, func(db DBTX) error {
		tag, err := db.Exec(ctx,
			`UPDATE entities SET name = $3, fields = $4, updated_at = now()
			 WHERE id = $1 AND entity_type = $2`,
			existingID, string(et), rec.Name, rec.Fields,
		)
		if err != nil {
			return fmt.Errorf("replace %s %s: %w", et, existingID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("replace %s %s: %w", et, existingID, ErrNotFound)
		}
		return nil
	})
}

// Snapshot loads every entity type concurrently.
func (p *Postgres) Snapshot(ctx context.Context) (validate.Existing, error) {
	start := time.Now()
	types := schema.DependencyOrder
	results := make([][]validate.Record, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, et := range types {
		i, et := i, et
		g.Go(func() error {
			recs, err := p.list(gctx, et)
			if err != nil {
				return fmt.Errorf("load %s: %w", et, err)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(validate.Existing, len(types))
	total := 0
	for i, et := range types {
		out[et] = results[i]
		total += len(results[i])
	}

	slog.Debug("snapshot loaded", "records", total, "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (p *Postgres) list(ctx context.Context, et schema.EntityType) ([]validate.Record, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id, name, fields FROM entities WHERE entity_type = $1 ORDER BY created_at, id`,
		string(et),
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (validate.Record, error) {
		var r validate.Record
		err := row.Scan(&r.ID, &r.Name, &r.Fields)
		return r, err
	})
}

// InTx runs fn inside one database transaction.
func (p *Postgres) InTx(ctx context.Context, fn func(Store) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Postgres{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecordRun appends run to import_runs.
func (p *Postgres) RecordRun(ctx context.Context, run Run) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO import_runs (id, file_name, created, replaced, skipped, failed, duration_ms, cancelled, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.FileName, run.Created, run.Replaced, run.Skipped, run.Failed,
		run.DurationMs, run.Cancelled, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("record import run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs first.
func (p *Postgres) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.db.Query(ctx,
		`SELECT id, file_name, created, replaced, skipped, failed, duration_ms, cancelled, started_at
		 FROM import_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Run])
	if err != nil {
		return nil, fmt.Errorf("scan import runs: %w", err)
	}
	return runs, nil
}
