package mapping

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/JonMunkholm/portfolio-import/internal/analyze"
	"github.com/JonMunkholm/portfolio-import/internal/match"
	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/workbook"
)

// Candidate is one scored (column, field) pair.
type Candidate struct {
	ColumnIndex int    `json:"columnIndex"`
	FieldIndex  int    `json:"-"`
	Field       string `json:"field"`
	Confidence  int    `json:"confidence"`
	Header      int    `json:"header"`
	Type        int    `json:"type"`
	Pattern     int    `json:"pattern"`
	Semantic    int    `json:"semantic"`
	Reason      string `json:"reason"`
}

// compatible lists the inferred column types a field type accepts besides
// its own.
var compatible = map[schema.FieldType][]analyze.ColumnType{
	schema.FieldString:    {analyze.TypeEmail, analyze.TypeURL, analyze.TypeMixed},
	schema.FieldNumber:    {analyze.TypeCurrency, analyze.TypePercentage},
	schema.FieldEnum:      {analyze.TypeString},
	schema.FieldReference: {analyze.TypeString, analyze.TypeNumber, analyze.TypeMixed},
}

// semanticKeywords maps a semantic tag to the header words that signal it.
var semanticKeywords = map[string][]string{
	"budget":      {"budget", "cost", "amount", "spend", "spent", "funding", "capex", "opex"},
	"spend":       {"spent", "spend", "actuals", "actual cost"},
	"cost":        {"cost", "rate", "price"},
	"rate":        {"rate", "hourly", "daily"},
	"date":        {"date", "day", "when"},
	"start":       {"start", "begin", "kickoff"},
	"end":         {"end", "finish", "close", "deadline"},
	"due":         {"due", "deadline"},
	"target":      {"target", "goal", "planned"},
	"completed":   {"completed", "achieved", "actual"},
	"current":     {"current", "actual", "latest"},
	"metric":      {"metric", "value", "baseline", "measure"},
	"person":      {"owner", "manager", "lead", "assignee", "assigned", "sponsor", "responsible", "person", "pm"},
	"name":        {"name", "title"},
	"email":       {"email", "mail"},
	"status":      {"status", "state", "stage", "phase", "rag", "health"},
	"priority":    {"priority", "importance", "severity"},
	"hours":       {"hours", "hrs", "effort", "capacity"},
	"estimate":    {"estimate", "estimated", "est"},
	"percentage":  {"percent", "pct", "completion"},
	"progress":    {"progress", "complete", "completion"},
	"description": {"description", "desc", "details", "notes", "summary"},
	"department":  {"department", "dept", "team", "division"},
	"category":    {"category", "type", "workstream"},
	"year":        {"year", "fy", "fiscal"},
	"parent":      {"parent", "pillar", "initiative", "project", "program"},
	"frequency":   {"frequency", "cadence", "period"},
	"unit":        {"unit", "uom"},
	"role":        {"role", "position"},
	"skills":      {"skills", "expertise"},
}

// Score computes the weighted confidence that col feeds field.
func Score(col analyze.ColumnAnalysis, field schema.FieldSchema, cfg Config) Candidate {
	header, headerReason := headerScore(col.Header, field)
	typ := typeScore(col, field, cfg)
	pattern := patternScore(col, field, cfg)
	semantic := semanticScore(col.Header, field, cfg)

	total := cfg.HeaderWeight*float64(header) +
		cfg.TypeWeight*float64(typ) +
		cfg.PatternWeight*float64(pattern) +
		cfg.SemanticWeight*float64(semantic)

	confidence := max(0, min(100, int(math.Round(total))))

	return Candidate{
		ColumnIndex: col.Index,
		Field:       field.Name,
		Confidence:  confidence,
		Header:      header,
		Type:        typ,
		Pattern:     pattern,
		Semantic:    semantic,
		Reason: fmt.Sprintf("header %d (%s), type %d (%s→%s), pattern %d, semantic %d",
			header, headerReason, typ, col.InferredType, field.Type, pattern, semantic),
	}
}

func headerScore(header string, field schema.FieldSchema) (int, string) {
	n := match.Normalize(header)
	if n == "" {
		return 0, "empty header"
	}

	if n == match.Normalize(field.Name) || n == match.Normalize(field.Label) {
		return match.ExactScore, "exact match"
	}

	aliases := append([]string{field.Name}, field.Aliases...)
	r := match.CompositeMatch(header, field.Label, aliases)
	if !r.Reported() {
		return 0, r.Reason
	}

	return r.Score, r.Reason
}

func typeScore(col analyze.ColumnAnalysis, field schema.FieldSchema, cfg Config) int {
	if string(col.InferredType) == string(field.Type) {
		return cfg.TypeExact
	}

	for _, t := range compatible[field.Type] {
		if col.InferredType == t {
			return cfg.TypeCompatible
		}
	}

	if col.StringLike() {
		return cfg.TypeStringFloor
	}

	return 0
}

func patternScore(col analyze.ColumnAnalysis, field schema.FieldSchema, cfg Config) int {
	switch {
	case len(field.Patterns) > 0:
		return declaredPatternScore(col, field.Patterns, cfg)

	case field.Type == schema.FieldDate && col.HasDatePattern():
		return cfg.PatternDate

	case field.Type == schema.FieldNumber &&
		(col.HasPattern(analyze.PatternCurrency) || col.HasPattern(analyze.PatternPercentage)):
		return cfg.PatternNumeric

	case field.Type == schema.FieldEnum && len(col.EnumValues) > 0:
		return enumOverlapScore(col.EnumValues, field.EnumValues)
	}

	return cfg.PatternNeutral
}

func declaredPatternScore(col analyze.ColumnAnalysis, patterns []string, cfg Config) int {
	if len(col.SampleValues) == 0 {
		return cfg.PatternNeutral
	}

	var res []*regexp.Regexp
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			res = append(res, re)
		}
	}

	hits := 0
	for _, v := range col.SampleValues {
		text := strings.TrimSpace(workbook.CellText(v))
		for _, re := range res {
			if re.MatchString(text) {
				hits++
				break
			}
		}
	}

	frac := float64(hits) / float64(len(col.SampleValues))
	switch {
	case frac >= cfg.PatternStrongAt:
		return cfg.PatternStrong
	case frac >= cfg.PatternPartialAt:
		return cfg.PatternPartial
	}
	return 0
}

// enumOverlapScore is the share of the column's distinct values that belong
// to the field's vocabulary, as 0-100.
func enumOverlapScore(values, vocabulary []string) int {
	allowed := make(map[string]bool, len(vocabulary))
	for _, v := range vocabulary {
		allowed[match.Normalize(v)] = true
	}

	hits := 0
	for _, v := range values {
		if allowed[match.Normalize(v)] {
			hits++
		}
	}

	return int(math.Round(float64(hits) / float64(len(values)) * 100))
}

func semanticScore(header string, field schema.FieldSchema, cfg Config) int {
	if len(field.SemanticTags) == 0 {
		return cfg.SemanticUntagged
	}

	spaced := " " + match.NormalizeSpaced(header) + " "
	for _, tag := range field.SemanticTags {
		for _, kw := range semanticKeywords[tag] {
			if strings.Contains(spaced, " "+kw+" ") {
				return cfg.SemanticDirect
			}
		}
	}

	n := match.Normalize(header)
	for _, tag := range field.SemanticTags {
		if strings.Contains(n, match.Normalize(tag)) {
			return cfg.SemanticTag
		}
	}

	return cfg.SemanticMiss
}
