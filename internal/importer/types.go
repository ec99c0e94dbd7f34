package importer

import (
	"context"
	"time"

	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

// EntityStore persists imported records.
type EntityStore interface {
	// Create inserts rec as a new entity of type et.
	Create(ctx context.Context, et schema.EntityType, rec validate.Record) error

	// Replace overwrites the entity existingID with rec's fields.
	Replace(ctx context.Context, et schema.EntityType, existingID string, rec validate.Record) error
}

// DuplicateStrategy says what to do with a row flagged as a probable
// duplicate of an existing record.
type DuplicateStrategy string

const (
	DuplicateKeep    DuplicateStrategy = "keep"    // create a second record
	DuplicateSkip    DuplicateStrategy = "skip"    // leave the existing record alone
	DuplicateReplace DuplicateStrategy = "replace" // overwrite the existing record
)

// ParseDuplicateStrategy parses s, case-sensitively. Empty means skip.
func ParseDuplicateStrategy(s string) (DuplicateStrategy, bool) {
	switch DuplicateStrategy(s) {
	case "", DuplicateSkip:
		return DuplicateSkip, true
	case DuplicateKeep, DuplicateReplace:
		return DuplicateStrategy(s), true
	}
	return "", false
}

// Options configure one execution.
type Options struct {
	Duplicates DuplicateStrategy

	// FuzzyDuplicates applies Duplicates to fuzzy matches as well. Without
	// it only exact duplicates are skipped or replaced; rows that merely
	// resemble an existing record are created and the match is noted.
	FuzzyDuplicates bool

	// ImportID labels the run in logs and the result. Empty means a new UUID.
	ImportID string

	// Progress, when set, is called after every processed row.
	Progress func(Progress)
}

// Phase is the executor's current stage.
type Phase string

const (
	PhaseImporting Phase = "importing"
	PhaseComplete  Phase = "complete"
	PhaseCancelled Phase = "cancelled"
)

// Progress reports how far an execution has got.
type Progress struct {
	ImportID   string `json:"importId"`
	Phase      Phase  `json:"phase"`
	SheetName  string `json:"sheetName"`
	CurrentRow int    `json:"currentRow"`
	TotalRows  int    `json:"totalRows"`
}

// Percent returns the progress as a percentage (0-100).
func (p Progress) Percent() int {
	if p.TotalRows == 0 {
		return 0
	}
	return (p.CurrentRow * 100) / p.TotalRows
}

// RowStatus is the outcome of one row.
type RowStatus string

const (
	StatusCreated  RowStatus = "created"
	StatusReplaced RowStatus = "replaced"
	StatusSkipped  RowStatus = "skipped"
	StatusFailed   RowStatus = "failed"
)

// RowResult is the outcome of importing one valid row.
type RowResult struct {
	RowNumber int       `json:"rowNumber"`
	Name      string    `json:"name"`
	Status    RowStatus `json:"status"`
	ID        string    `json:"id,omitempty"` // id of the created or replaced entity
	Reason    string    `json:"reason,omitempty"`
}

// Tally counts row outcomes.
type Tally struct {
	Created  int `json:"created"`
	Replaced int `json:"replaced"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (t *Tally) count(s RowStatus) {
	switch s {
	case StatusCreated:
		t.Created++
	case StatusReplaced:
		t.Replaced++
	case StatusSkipped:
		t.Skipped++
	case StatusFailed:
		t.Failed++
	}
}

// SheetResult is the outcome of one sheet.
type SheetResult struct {
	SheetName  string            `json:"sheetName"`
	EntityType schema.EntityType `json:"entityType"`
	Rows       []RowResult       `json:"rows"`
	Tally
}

// Result is the outcome of one execution. Its JSON form is the stable
// contract returned to every caller.
type Result struct {
	ImportID   string        `json:"importId"`
	Sheets     []SheetResult `json:"sheets"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"durationMs"`
	Cancelled  bool          `json:"cancelled"`
	Success    bool          `json:"success"` // no failed rows and not cancelled
	Tally
}
