package analyze

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/portfolio-import/internal/match"
	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/workbook"
)

// SheetAnalysis is the inferred shape of one sheet.
type SheetAnalysis struct {
	SheetName     string            `json:"sheetName"`
	Headers       []string          `json:"headers"`
	SampleRows    [][]any           `json:"sampleRows"`
	RowCount      int               `json:"rowCount"`
	ColumnCount   int               `json:"columnCount"`
	EntityType    schema.EntityType `json:"entityType"`
	Confidence    int               `json:"confidence"`
	Reasons       []string          `json:"reasons"`
	Excluded      bool              `json:"excluded"`
	ExcludeReason string            `json:"excludeReason,omitempty"`
	Columns       []ColumnAnalysis  `json:"columns"`
}

// Sheet-name keywords per entity type.
var sheetKeywords = map[schema.EntityType][]string{
	schema.EntityPillar:     {"pillar", "strategy", "strategic", "theme"},
	schema.EntityResource:   {"resource", "people", "team", "staff", "employee", "member"},
	schema.EntityKPI:        {"kpi", "metric", "measure", "scorecard", "okr"},
	schema.EntityInitiative: {"initiative", "program"},
	schema.EntityProject:    {"project", "portfolio"},
	schema.EntityTask:       {"task", "todo", "backlog", "workitem", "action"},
	schema.EntityMilestone:  {"milestone", "deliverable", "gate", "timeline"},
}

// Header keywords per entity type.
var headerKeywords = map[schema.EntityType][]string{
	schema.EntityPillar:     {"pillar", "strategic pillar", "theme", "rag status", "description"},
	schema.EntityResource:   {"email", "role", "department", "cost rate", "capacity", "skills", "full name"},
	schema.EntityKPI:        {"kpi", "metric", "target", "current", "baseline", "unit", "frequency"},
	schema.EntityInitiative: {"initiative", "pillar", "sponsor", "budget", "start date", "end date"},
	schema.EntityProject:    {"project", "project name", "project manager", "budget", "start date", "end date", "completion", "fiscal year"},
	schema.EntityTask:       {"task", "assignee", "status", "estimated hours", "actual hours", "due date", "priority"},
	schema.EntityMilestone:  {"milestone", "target date", "completed date", "deliverable"},
}

// Sheets whose names contain these are reference material, not data.
var excludeKeywords = []string{
	"lookup", "reference", "instruction", "readme", "help", "notes", "config", "lists", "legend", "dropdown",
}

// ExcludeReason returns why a sheet name is not an import candidate, or "".
func ExcludeReason(name string) string {
	if strings.HasPrefix(strings.TrimSpace(name), "_") {
		return "sheet name starts with an underscore"
	}

	n := match.Normalize(name)
	for _, kw := range excludeKeywords {
		if strings.Contains(n, kw) {
			return fmt.Sprintf("sheet name contains %q", kw)
		}
	}

	return ""
}

// DetectEntityType scores every entity type against a sheet name and its
// headers and returns the best one. Ties go to the type earlier in
// schema.DependencyOrder. Returns schema.EntityNone when the best score is
// below cfg.MinSheetScore.
func DetectEntityType(sheetName string, headers []string, cfg Config) (schema.EntityType, int, []string) {
	var (
		best       = schema.EntityNone
		bestScore  int
		bestReason []string
	)

	for _, et := range schema.DependencyOrder {
		score, reasons := scoreEntity(et, sheetName, headers, cfg)
		if score > bestScore {
			best, bestScore, bestReason = et, score, reasons
		}
	}

	if bestScore < cfg.MinSheetScore {
		return schema.EntityNone, min(100, bestScore), []string{
			fmt.Sprintf("no entity type reached %d (best %d)", cfg.MinSheetScore, bestScore),
		}
	}

	return best, min(100, bestScore), bestReason
}

func scoreEntity(et schema.EntityType, sheetName string, headers []string, cfg Config) (int, []string) {
	var (
		score   int
		reasons []string
	)

	name := match.Normalize(sheetName)
	for _, kw := range sheetKeywords[et] {
		if strings.Contains(name, kw) {
			score += cfg.SheetNameScore
			reasons = append(reasons, fmt.Sprintf("sheet name contains %q (+%d)", kw, cfg.SheetNameScore))
			break
		}
	}

	for _, h := range headers {
		bestKw, bestMatch := "", 0
		for _, kw := range headerKeywords[et] {
			if s := match.FuzzyMatchWithAbbreviations(h, kw); s > bestMatch {
				bestKw, bestMatch = kw, s
			}
		}

		if bestMatch >= cfg.HeaderMatchMin {
			pts := (bestMatch + 5) / 10
			score += pts
			reasons = append(reasons, fmt.Sprintf("header %q matches %q (+%d)", h, bestKw, pts))
		}
	}

	for _, sig := range compositeSignals(cfg) {
		if sig.entity == et && sig.present(headers) {
			score += sig.bonus
			reasons = append(reasons, fmt.Sprintf("%s (+%d)", sig.label, sig.bonus))
		}
	}

	return score, reasons
}

type signal struct {
	entity schema.EntityType
	label  string
	bonus  int
	groups [][]string // every group must be matched by some header
}

func (s signal) present(headers []string) bool {
	for _, group := range s.groups {
		if !anyHeaderContains(headers, group...) {
			return false
		}
	}
	return true
}

func compositeSignals(cfg Config) []signal {
	return []signal{
		{schema.EntityKPI, "target and current headers", cfg.TargetCurrentBonus, [][]string{{"target"}, {"current", "actual"}}},
		{schema.EntityTask, "status and hours headers", cfg.StatusHoursBonus, [][]string{{"status", "kanban", "stage"}, {"hours", "hrs", "effort"}}},
		{schema.EntityResource, "email header", cfg.EmailBonus, [][]string{{"email", "mail"}}},
		{schema.EntityProject, "budget and date headers", cfg.BudgetDateBonus, [][]string{{"budget", "cost"}, {"date", "start", "end"}}},
	}
}

func anyHeaderContains(headers []string, keywords ...string) bool {
	for _, h := range headers {
		n := match.Normalize(h)
		for _, kw := range keywords {
			if strings.Contains(n, kw) {
				return true
			}
		}
	}
	return false
}

// AnalyzeSheet produces the analysis of one sheet.
func AnalyzeSheet(sheet workbook.Sheet, cfg Config) SheetAnalysis {
	if cfg.SampleRows <= 0 {
		cfg.SampleRows = DefaultConfig().SampleRows
	}

	a := SheetAnalysis{
		SheetName:   sheet.Name,
		Headers:     sheet.Headers,
		RowCount:    len(sheet.Rows),
		ColumnCount: len(sheet.Headers),
		EntityType:  schema.EntityNone,
		SampleRows:  sampleRows(sheet.Rows, cfg.SampleRows),
	}

	for i, h := range sheet.Headers {
		a.Columns = append(a.Columns, AnalyzeColumn(i, h, a.SampleRows, cfg))
	}

	if reason := ExcludeReason(sheet.Name); reason != "" {
		a.Excluded = true
		a.ExcludeReason = reason
		a.Reasons = []string{reason}
		return a
	}

	a.EntityType, a.Confidence, a.Reasons = DetectEntityType(sheet.Name, sheet.Headers, cfg)
	return a
}

// AnalyzeWorkbook produces one analysis per sheet, in workbook order.
func AnalyzeWorkbook(wb workbook.Workbook, cfg Config) []SheetAnalysis {
	out := make([]SheetAnalysis, 0, len(wb.Sheets))
	for _, s := range wb.Sheets {
		out = append(out, AnalyzeSheet(s, cfg))
	}
	return out
}
