package core

import (
	"time"

	"github.com/JonMunkholm/portfolio-import/internal/analyze"
	"github.com/JonMunkholm/portfolio-import/internal/importer"
	"github.com/JonMunkholm/portfolio-import/internal/mapping"
	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

// SheetPlan is one sheet's analysis and proposed column mapping. Suggestions
// and MissingRequired are empty when no entity type was detected.
type SheetPlan struct {
	Analysis        analyze.SheetAnalysis `json:"analysis"`
	Suggestions     []mapping.Suggestion  `json:"suggestions"`
	MissingRequired []string              `json:"missingRequired"`
}

// Enabled reports whether the sheet is an import candidate by default.
func (p SheetPlan) Enabled() bool {
	return !p.Analysis.Excluded && p.Analysis.EntityType != schema.EntityNone
}

// Analysis is the result of uploading a workbook: a session to validate and
// import against, and a plan per sheet.
type Analysis struct {
	SessionID string      `json:"sessionId"`
	FileName  string      `json:"fileName"`
	Sheets    []SheetPlan `json:"sheets"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// ValidateRequest selects what to validate within a session.
//
// With Configs nil, the session's suggested plans are used: every enabled
// sheet, with Overrides (sheet name -> column index -> field, "" to unmap)
// applied on top. Configs, when given, replace the plans entirely.
type ValidateRequest struct {
	SessionID string                    `json:"sessionId"`
	Configs   []validate.SheetConfig    `json:"configs,omitempty"`
	Overrides map[string]map[int]string `json:"overrides,omitempty"`
}

// ImportRequest validates a session and executes the result. Duplicates
// applies to exact duplicates, and to fuzzy ones too when FuzzyDuplicates is
// set.
type ImportRequest struct {
	ValidateRequest
	Duplicates      importer.DuplicateStrategy `json:"duplicates"`
	FuzzyDuplicates bool                       `json:"fuzzyDuplicates,omitempty"`
}

func (r ImportRequest) options() importer.Options {
	return importer.Options{Duplicates: r.Duplicates, FuzzyDuplicates: r.FuzzyDuplicates}
}

// Phases a background import passes through besides the executor's own.
const (
	PhaseQueued importer.Phase = "queued"
	PhaseFailed importer.Phase = "failed"
)

// ImportStatus is the observable state of a background import.
type ImportStatus struct {
	importer.Progress
	FileName string `json:"fileName"`
	Error    string `json:"error,omitempty"`
}
