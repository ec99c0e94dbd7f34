// Package importer creates the entities of a validated import.
//
// The Executor walks the sheets of a validate.ImportValidationResult in the
// order they were validated (dependency order), so every parent exists before
// its children. Invalid rows are never written. A failing row is recorded and
// the run continues; only context cancellation stops it early.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

// ErrCannotProceed is returned for validation results that are not importable.
var ErrCannotProceed = errors.New("validation result cannot proceed")

// Executor writes validated rows through an EntityStore.
type Executor struct {
	store  EntityStore
	logger *slog.Logger
}

// NewExecutor creates an executor. A nil logger uses slog.Default().
func NewExecutor(store EntityStore, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, logger: logger}
}

// run is the state of one execution.
type run struct {
	opts Options

	// Ids handed out during validation that now point elsewhere: rows skipped
	// or replaced as duplicates resolve to the existing record.
	remap map[string]string

	// Ids of rows that could not be written.
	failed map[string]bool

	done, total int
}

// Execute imports every valid row of res.
//
// On cancellation the partial result is returned together with ctx's error.
func (e *Executor) Execute(ctx context.Context, res validate.ImportValidationResult, opts Options) (*Result, error) {
	if !res.CanProceed {
		return nil, ErrCannotProceed
	}

	strategy, ok := ParseDuplicateStrategy(string(opts.Duplicates))
	if !ok {
		return nil, fmt.Errorf("unknown duplicate strategy %q", opts.Duplicates)
	}
	opts.Duplicates = strategy

	if opts.ImportID == "" {
		opts.ImportID = uuid.NewString()
	}

	start := time.Now()
	logger := e.logger.With("import_id", opts.ImportID)

	r := &run{
		opts:   opts,
		remap:  make(map[string]string),
		failed: make(map[string]bool),
	}
	for _, s := range res.Sheets {
		for _, row := range s.Rows {
			if row.IsValid {
				r.total++
			}
		}
	}

	result := &Result{ImportID: opts.ImportID, Sheets: []SheetResult{}}
	logger.Info("import started", "rows", r.total, "duplicates", string(strategy))

	var err error
	for _, s := range res.Sheets {
		sr, sheetErr := e.importSheet(ctx, r, s)
		result.Sheets = append(result.Sheets, sr)
		result.Created += sr.Created
		result.Replaced += sr.Replaced
		result.Skipped += sr.Skipped
		result.Failed += sr.Failed

		if sheetErr != nil {
			err = sheetErr
			result.Cancelled = true
			break
		}
	}

	result.Duration = time.Since(start)
	result.DurationMs = result.Duration.Milliseconds()
	result.Success = result.Failed == 0 && !result.Cancelled

	phase := PhaseComplete
	if result.Cancelled {
		phase = PhaseCancelled
	}
	r.report(Progress{Phase: phase})

	logger.Info("import finished",
		"created", result.Created,
		"replaced", result.Replaced,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"cancelled", result.Cancelled,
		"duration_ms", result.DurationMs,
	)

	return result, err
}

func (r *run) report(p Progress) {
	if r.opts.Progress == nil {
		return
	}
	p.ImportID = r.opts.ImportID
	p.CurrentRow = r.done
	p.TotalRows = r.total
	r.opts.Progress(p)
}

func (e *Executor) importSheet(ctx context.Context, r *run, s validate.SheetValidationResult) (SheetResult, error) {
	sr := SheetResult{SheetName: s.SheetName, EntityType: s.EntityType, Rows: []RowResult{}}

	es, ok := schema.Get(s.EntityType)
	if !ok {
		return sr, fmt.Errorf("sheet %q: unknown entity type %q", s.SheetName, s.EntityType)
	}

	for _, row := range s.Rows {
		if !row.IsValid {
			continue
		}

		if err := ctx.Err(); err != nil {
			e.logger.Warn("import cancelled", "import_id", r.opts.ImportID, "sheet", s.SheetName, "row", row.RowNumber)
			return sr, err
		}

		rr := e.importRow(ctx, r, es, row)
		if rr.Status == StatusFailed {
			r.failed[row.ID] = true
			e.logger.Warn("row import failed",
				"import_id", r.opts.ImportID,
				"sheet", s.SheetName,
				"row", row.RowNumber,
				"reason", rr.Reason,
			)
		}

		sr.Rows = append(sr.Rows, rr)
		sr.count(rr.Status)

		r.done++
		r.report(Progress{Phase: PhaseImporting, SheetName: s.SheetName})
	}

	return sr, nil
}

func (e *Executor) importRow(ctx context.Context, r *run, es schema.EntitySchema, row validate.RowValidationResult) RowResult {
	rr := RowResult{RowNumber: row.RowNumber, Name: row.Name(es)}

	rec, missing := r.record(es, row)
	if len(missing) > 0 {
		rr.Status = StatusFailed
		rr.Reason = "depends on rows that failed to import: " + strings.Join(missing, ", ")
		return rr
	}

	dup := row.Duplicate
	if dup != nil && dup.MatchType != validate.MatchExact && !r.opts.FuzzyDuplicates {
		rr.Reason = fmt.Sprintf("possible duplicate of %q (%d)", dup.ExistingName, dup.Confidence)
		dup = nil
	}

	switch {
	case dup != nil && r.opts.Duplicates == DuplicateSkip:
		r.remap[row.ID] = dup.ExistingID
		rr.Status = StatusSkipped
		rr.ID = dup.ExistingID
		rr.Reason = fmt.Sprintf("duplicate of %q", dup.ExistingName)

	case dup != nil && r.opts.Duplicates == DuplicateReplace:
		rec.ID = dup.ExistingID
		if err := e.store.Replace(ctx, es.Type, dup.ExistingID, rec); err != nil {
			rr.Status = StatusFailed
			rr.Reason = err.Error()
			return rr
		}
		r.remap[row.ID] = dup.ExistingID
		rr.Status = StatusReplaced
		rr.ID = dup.ExistingID

	default:
		if err := e.store.Create(ctx, es.Type, rec); err != nil {
			rr.Status = StatusFailed
			rr.Reason = err.Error()
			return rr
		}
		rr.Status = StatusCreated
		rr.ID = rec.ID
	}

	return rr
}

// record builds the store record for row, pointing reference ids at their
// final targets. It also returns the reference fields whose parent row failed.
func (r *run) record(es schema.EntitySchema, row validate.RowValidationResult) (validate.Record, []string) {
	fields := make(map[string]any, len(row.Data))
	for k, v := range row.Data {
		fields[k] = v
	}

	var missing []string
	for _, f := range es.ReferenceFields() {
		key := f.Name + "Id"
		id, ok := fields[key].(string)
		if !ok {
			continue
		}
		if r.failed[id] {
			missing = append(missing, f.Name)
			continue
		}
		if to, ok := r.remap[id]; ok {
			fields[key] = to
		}
	}

	return validate.Record{ID: row.ID, Name: row.Name(es), Fields: fields}, missing
}
