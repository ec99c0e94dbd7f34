// Package validate turns mapped sheet rows into typed, cross-referenced
// records.
//
// Validate is a pure function of its Input: it walks the enabled sheets in
// schema.DependencyOrder, transforms and checks every non-empty row, resolves
// reference fields by name against existing records and rows accepted from
// earlier sheets, applies the per-entity business rules, and flags probable
// duplicates. Nothing is persisted and nothing is shared between calls.
package validate

import (
	"time"

	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/workbook"
)

// Issue codes. VAL codes are row-level, IMP codes are global.
const (
	CodeInvalidDate      = "VAL001"
	CodeInvalidNumber    = "VAL002"
	CodeRequired         = "VAL003"
	CodeInvalidEnum      = "VAL006"
	CodeReference        = "VAL007"
	CodeBusinessRule     = "VAL008"
	CodeDuplicateInSheet = "VAL009"
	CodeFormat           = "VAL010"

	CodeNoEnabledSheets = "IMP001"
	CodeSheetNotFound   = "IMP002"
	CodeUnknownEntity   = "IMP003"
	CodeNoDataRows      = "IMP004"
	CodeMappingConflict = "IMP005"
)

// ColumnMapping routes one source column to a schema field.
// An empty TargetField leaves the column unmapped.
type ColumnMapping struct {
	SourceColumnIndex int    `json:"sourceColumnIndex"`
	SourceColumnName  string `json:"sourceColumnName"`
	TargetField       string `json:"targetField"`
}

// SheetConfig says how one sheet is imported.
type SheetConfig struct {
	SheetName      string            `json:"sheetName"`
	EntityType     schema.EntityType `json:"entityType"`
	ColumnMappings []ColumnMapping   `json:"columnMappings"`
	Enabled        bool              `json:"enabled"`
}

// Record is an entity that already exists in the target system.
type Record struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"` // name or title
	Fields map[string]any `json:"fields,omitempty"`
}

// Existing is a snapshot of existing records per entity type.
type Existing map[schema.EntityType][]Record

// Issue is a validation error or warning.
type Issue struct {
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface so an Issue can be wrapped and logged.
func (i Issue) Error() string {
	if i.Field == "" {
		return i.Message
	}
	return i.Field + ": " + i.Message
}

// MatchType says how a duplicate was detected.
type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchFuzzy MatchType = "fuzzy"
)

// DuplicateInfo points at the existing record a row probably duplicates.
type DuplicateInfo struct {
	ExistingID   string    `json:"existingId"`
	ExistingName string    `json:"existingName"`
	Confidence   int       `json:"confidence"`
	MatchType    MatchType `json:"matchType"`
}

// RowValidationResult is the outcome for one non-empty source row.
type RowValidationResult struct {
	RowNumber int            `json:"rowNumber"` // 1-based, header is row 1
	IsValid   bool           `json:"isValid"`
	Errors    []Issue        `json:"errors"`
	Warnings  []Issue        `json:"warnings"`
	Data      map[string]any `json:"data"`
	Raw       []any          `json:"raw"`
	Duplicate *DuplicateInfo `json:"duplicate,omitempty"`
	ID        string         `json:"id,omitempty"`
	WorkID    string         `json:"workId,omitempty"`
}

// Name returns the row's identifier value.
func (r RowValidationResult) Name(es schema.EntitySchema) string {
	s, _ := r.Data[es.IdentifierField].(string)
	return s
}

// Counts aggregates row outcomes.
type Counts struct {
	TotalRows     int `json:"totalRows"`
	ValidRows     int `json:"validRows"`
	ErrorRows     int `json:"errorRows"`
	WarningRows   int `json:"warningRows"`
	DuplicateRows int `json:"duplicateRows"`
}

func (c *Counts) add(o Counts) {
	c.TotalRows += o.TotalRows
	c.ValidRows += o.ValidRows
	c.ErrorRows += o.ErrorRows
	c.WarningRows += o.WarningRows
	c.DuplicateRows += o.DuplicateRows
}

// SheetValidationResult is the outcome for one sheet.
type SheetValidationResult struct {
	SheetName  string                `json:"sheetName"`
	EntityType schema.EntityType     `json:"entityType"`
	Rows       []RowValidationResult `json:"rows"`
	Warnings   []Issue               `json:"warnings,omitempty"`
	Counts
}

// ImportValidationResult is the outcome of one validation run.
type ImportValidationResult struct {
	Sheets       []SheetValidationResult `json:"sheets"`
	GlobalErrors []Issue                 `json:"globalErrors"`
	CanProceed   bool                    `json:"canProceed"`
	Counts
}

// Input is everything Validate needs.
type Input struct {
	Sheets   []workbook.Sheet
	Configs  []SheetConfig
	Existing Existing
	Policy   Policy

	// AsOf is "today" for date rules. Zero means time.Now().
	AsOf time.Time

	// NewID generates record ids. Nil means random UUIDs.
	NewID func() string
}
