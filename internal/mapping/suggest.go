package mapping

import (
	"fmt"
	"sort"

	"github.com/JonMunkholm/portfolio-import/internal/analyze"
	"github.com/JonMunkholm/portfolio-import/internal/schema"
)

// Alternative is a ranked runner-up field for a column.
type Alternative struct {
	TargetField string `json:"targetField"`
	Confidence  int    `json:"confidence"`
	Reason      string `json:"reason"`
}

// Suggestion is the proposed mapping for one column.
// TargetField is empty when the column is left unmapped.
type Suggestion struct {
	ColumnIndex  int           `json:"columnIndex"`
	ColumnName   string        `json:"columnName"`
	TargetField  string        `json:"targetField"`
	Confidence   int           `json:"confidence"`
	Reason       string        `json:"reason"`
	Required     bool          `json:"required"`
	Alternatives []Alternative `json:"alternatives"`
}

// Mapped reports whether the column has a target field.
func (s Suggestion) Mapped() bool {
	return s.TargetField != ""
}

// Candidates scores every (column, field) pair and returns those above zero,
// sorted by descending confidence. Equal confidences order by lower column
// index, then by the field's declaration order.
func Candidates(cols []analyze.ColumnAnalysis, es schema.EntitySchema, cfg Config) []Candidate {
	var out []Candidate

	for _, col := range cols {
		for fi, f := range es.Fields {
			c := Score(col, f, cfg)
			if c.Confidence <= 0 {
				continue
			}
			c.FieldIndex = fi
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.ColumnIndex != b.ColumnIndex {
			return a.ColumnIndex < b.ColumnIndex
		}
		return a.FieldIndex < b.FieldIndex
	})

	return out
}

// Suggest proposes one field per column for es.
//
// Assignment is a single greedy pass over Candidates: a pair is committed
// unless its column or field is already taken, and pairs below
// cfg.MinAssign are never committed. This approximates a maximum-weight
// bipartite matching and favours global score order over per-column
// optimality; the ordering of Candidates makes it deterministic.
//
// The result has one Suggestion per column, in column order.
func Suggest(cols []analyze.ColumnAnalysis, es schema.EntitySchema, cfg Config) []Suggestion {
	cands := Candidates(cols, es, cfg)

	assigned := make(map[int]Candidate) // column index -> candidate
	usedBy := make(map[string]int)      // field -> column index

	for _, c := range cands {
		if c.Confidence < cfg.MinAssign {
			break
		}
		if _, taken := assigned[c.ColumnIndex]; taken {
			continue
		}
		if _, taken := usedBy[c.Field]; taken {
			continue
		}

		assigned[c.ColumnIndex] = c
		usedBy[c.Field] = c.ColumnIndex
	}

	out := make([]Suggestion, 0, len(cols))

	for _, col := range cols {
		s := Suggestion{ColumnIndex: col.Index, ColumnName: col.Header}

		if c, ok := assigned[col.Index]; ok {
			f, _ := es.Field(c.Field)
			s.TargetField = c.Field
			s.Confidence = c.Confidence
			s.Reason = c.Reason
			s.Required = f.Required
		} else {
			s.Reason = unassignedReason(col, cands, usedBy, cfg)
		}

		s.Alternatives = alternatives(col.Index, s.TargetField, cands, usedBy, cfg)
		out = append(out, s)
	}

	return out
}

// alternatives lists up to cfg.MaxAlternatives runner-up fields for a column.
// Unmapped columns only see fields nobody claimed.
func alternatives(column int, target string, cands []Candidate, usedBy map[string]int, cfg Config) []Alternative {
	var out []Alternative

	for _, c := range cands {
		if len(out) >= cfg.MaxAlternatives {
			break
		}
		if c.ColumnIndex != column || c.Field == target {
			continue
		}
		if _, used := usedBy[c.Field]; used && target == "" {
			continue
		}

		out = append(out, Alternative{TargetField: c.Field, Confidence: c.Confidence, Reason: c.Reason})
	}

	return out
}

func unassignedReason(col analyze.ColumnAnalysis, cands []Candidate, usedBy map[string]int, cfg Config) string {
	for _, c := range cands {
		if c.ColumnIndex != col.Index {
			continue
		}
		if c.Confidence < cfg.MinAssign {
			break
		}
		if other, ok := usedBy[c.Field]; ok {
			return fmt.Sprintf("best field %q (%d) already mapped from column %d", c.Field, c.Confidence, other)
		}
	}

	return fmt.Sprintf("no field reached %d", cfg.MinAssign)
}

// MissingRequired returns the required fields no suggestion maps to.
func MissingRequired(suggestions []Suggestion, es schema.EntitySchema) []schema.FieldSchema {
	mapped := make(map[string]bool)
	for _, s := range suggestions {
		if s.Mapped() {
			mapped[s.TargetField] = true
		}
	}

	var missing []schema.FieldSchema
	for _, f := range es.RequiredFields() {
		if !mapped[f.Name] {
			missing = append(missing, f)
		}
	}

	return missing
}

// ApplyOverrides returns a copy of suggestions with the caller's choices
// applied. overrides maps a column index to a field name; an empty name
// unmaps the column. A column that held an overridden field loses it, so
// every field stays mapped from at most one column.
func ApplyOverrides(suggestions []Suggestion, overrides map[int]string, es schema.EntitySchema) ([]Suggestion, error) {
	out := make([]Suggestion, len(suggestions))
	copy(out, suggestions)

	byColumn := make(map[int]int, len(out))
	for i, s := range out {
		byColumn[s.ColumnIndex] = i
	}

	claimed := make(map[string]int)
	columns := make([]int, 0, len(overrides))

	for col, field := range overrides {
		if _, ok := byColumn[col]; !ok {
			return nil, fmt.Errorf("override for unknown column %d", col)
		}
		if field == "" {
			columns = append(columns, col)
			continue
		}
		if _, ok := es.Field(field); !ok {
			return nil, fmt.Errorf("override for column %d: %s has no field %q", col, es.Type, field)
		}
		if other, ok := claimed[field]; ok {
			return nil, fmt.Errorf("field %q overridden onto columns %d and %d", field, min(col, other), max(col, other))
		}
		claimed[field] = col
		columns = append(columns, col)
	}

	sort.Ints(columns)

	for _, col := range columns {
		field := overrides[col]
		i := byColumn[col]

		if field != "" {
			for j := range out {
				if j != i && out[j].TargetField == field {
					out[j].TargetField = ""
					out[j].Confidence = 0
					out[j].Required = false
					out[j].Reason = fmt.Sprintf("field %q reassigned to column %d", field, col)
				}
			}
		}

		f, _ := es.Field(field)
		out[i].TargetField = field
		out[i].Required = f.Required
		if field == "" {
			out[i].Confidence = 0
			out[i].Reason = "unmapped by user"
		} else {
			out[i].Confidence = 100
			out[i].Reason = "set by user"
		}
	}

	return out, nil
}
