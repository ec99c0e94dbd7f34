package validate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/portfolio-import/internal/match"
	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/transform"
	"github.com/JonMunkholm/portfolio-import/internal/workbook"
)

// Validate runs the whole pipeline over in and returns the result. It never
// fails: every problem is reported as a row-level or global Issue.
//
// Sheets are processed in dependency order regardless of their order in
// in.Configs. After each sheet, its valid rows become resolvable references
// for the sheets that follow.
func Validate(in Input) ImportValidationResult {
	return newValidator(in).run()
}

type fieldMapping struct {
	column int
	header string
	field  schema.FieldSchema
}

// validator holds the state of one run. None of it outlives Validate.
type validator struct {
	in    Input
	asOf  time.Time
	newID func() string

	// Existing records plus rows accepted from earlier sheets.
	lookups map[schema.EntityType]*lookup

	// Existing records only, for duplicate detection.
	existing map[schema.EntityType]*lookup

	workIDs *workIDs
}

func newValidator(in Input) *validator {
	v := &validator{
		in:       in,
		asOf:     in.AsOf,
		newID:    in.NewID,
		lookups:  make(map[schema.EntityType]*lookup),
		existing: make(map[schema.EntityType]*lookup),
		workIDs:  newWorkIDs(in.Existing[schema.EntityProject]),
	}

	if v.asOf.IsZero() {
		v.asOf = time.Now()
	}
	if v.newID == nil {
		v.newID = uuid.NewString
	}

	for _, et := range schema.DependencyOrder {
		all, prior := newLookup(), newLookup()
		for _, r := range in.Existing[et] {
			name := recordName(r, et)
			all.add(name, r.ID)
			prior.add(name, r.ID)
		}
		v.lookups[et] = all
		v.existing[et] = prior
	}

	return v
}

// recordName is the record's Name, or its identifier field when Name is empty.
func recordName(r Record, et schema.EntityType) string {
	if r.Name != "" {
		return r.Name
	}
	if es, ok := schema.Get(et); ok {
		if s, ok := r.Fields[es.IdentifierField].(string); ok {
			return s
		}
	}
	return ""
}

func (v *validator) run() ImportValidationResult {
	res := ImportValidationResult{
		Sheets:       []SheetValidationResult{},
		GlobalErrors: []Issue{},
	}

	for _, cfg := range v.orderedConfigs(&res) {
		sheet, ok := v.findSheet(cfg.SheetName)
		if !ok {
			res.GlobalErrors = append(res.GlobalErrors, Issue{
				Field:   cfg.SheetName,
				Message: fmt.Sprintf("sheet %q not found in workbook", cfg.SheetName),
				Code:    CodeSheetNotFound,
			})
			continue
		}

		sr := v.validateSheet(cfg, sheet)
		if sr.TotalRows == 0 {
			res.GlobalErrors = append(res.GlobalErrors, Issue{
				Field:   cfg.SheetName,
				Message: fmt.Sprintf("sheet %q has no data rows", cfg.SheetName),
				Code:    CodeNoDataRows,
			})
		}

		res.Sheets = append(res.Sheets, sr)
		res.add(sr.Counts)
	}

	res.CanProceed = len(res.GlobalErrors) == 0 && res.ValidRows > 0
	return res
}

// orderedConfigs returns the enabled configs with a known entity type, sorted
// into dependency order. Configs of the same type keep their input order.
func (v *validator) orderedConfigs(res *ImportValidationResult) []SheetConfig {
	var out []SheetConfig

	enabled := 0
	for _, cfg := range v.in.Configs {
		if !cfg.Enabled {
			continue
		}
		enabled++

		if _, ok := schema.Get(cfg.EntityType); !ok {
			res.GlobalErrors = append(res.GlobalErrors, Issue{
				Field:   cfg.SheetName,
				Value:   string(cfg.EntityType),
				Message: fmt.Sprintf("sheet %q has unknown entity type %q", cfg.SheetName, cfg.EntityType),
				Code:    CodeUnknownEntity,
			})
			continue
		}
		out = append(out, cfg)
	}

	if enabled == 0 {
		res.GlobalErrors = append(res.GlobalErrors, Issue{
			Message: "no sheets are enabled for import",
			Code:    CodeNoEnabledSheets,
		})
		return nil
	}

	sort.SliceStable(out, func(i, j int) bool {
		return schema.OrderIndex(out[i].EntityType) < schema.OrderIndex(out[j].EntityType)
	})

	return out
}

func (v *validator) findSheet(name string) (workbook.Sheet, bool) {
	for _, s := range v.in.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return workbook.Sheet{}, false
}

// ----------------------------------------------------------------------------
// Sheets
// ----------------------------------------------------------------------------

func (v *validator) validateSheet(cfg SheetConfig, sheet workbook.Sheet) SheetValidationResult {
	es := schema.MustGet(cfg.EntityType)

	sr := SheetValidationResult{
		SheetName:  cfg.SheetName,
		EntityType: cfg.EntityType,
		Rows:       []RowValidationResult{},
	}

	mappings, warnings := resolveMappings(cfg, es)
	sr.Warnings = warnings

	seen := make(map[string]int)

	for i, raw := range sheet.Rows {
		if workbook.IsEmptyRow(raw) {
			continue
		}

		row := v.validateRow(es, mappings, raw, i+2)

		if name := row.Name(es); name != "" {
			key := match.Normalize(name)
			if first, ok := seen[key]; ok {
				row.Warnings = append(row.Warnings, Issue{
					Field:   es.IdentifierField,
					Value:   name,
					Message: fmt.Sprintf("%q also appears in row %d", name, first),
					Code:    CodeDuplicateInSheet,
				})
			} else {
				seen[key] = row.RowNumber
			}
		}

		sr.Rows = append(sr.Rows, row)
	}

	lk := v.lookups[es.Type]
	for _, row := range sr.Rows {
		if row.IsValid {
			lk.add(row.Name(es), row.ID)
		}
	}

	sr.Counts = v.count(sr.Rows)
	return sr
}

// resolveMappings keeps the mappings that target a known field, first
// column wins when two columns target the same field.
func resolveMappings(cfg SheetConfig, es schema.EntitySchema) ([]fieldMapping, []Issue) {
	var (
		out      []fieldMapping
		warnings []Issue
	)

	used := make(map[string]string)

	for _, m := range cfg.ColumnMappings {
		if m.TargetField == "" {
			continue
		}

		f, ok := es.Field(m.TargetField)
		if !ok {
			warnings = append(warnings, Issue{
				Field:   m.TargetField,
				Value:   m.SourceColumnName,
				Message: fmt.Sprintf("column %q maps to unknown %s field %q, ignored", m.SourceColumnName, es.Type, m.TargetField),
				Code:    CodeMappingConflict,
			})
			continue
		}

		if prev, dup := used[f.Name]; dup {
			warnings = append(warnings, Issue{
				Field:   f.Name,
				Value:   m.SourceColumnName,
				Message: fmt.Sprintf("%s is already mapped from column %q, column %q ignored", f.Name, prev, m.SourceColumnName),
				Code:    CodeMappingConflict,
			})
			continue
		}

		used[f.Name] = m.SourceColumnName
		out = append(out, fieldMapping{column: m.SourceColumnIndex, header: m.SourceColumnName, field: f})
	}

	return out, warnings
}

func (v *validator) count(rows []RowValidationResult) Counts {
	c := Counts{TotalRows: len(rows)}

	for _, r := range rows {
		hasWarnings := len(r.Warnings) > 0

		if r.IsValid && !(v.in.Policy.TreatWarningsAsErrors && hasWarnings) {
			c.ValidRows++
		} else {
			c.ErrorRows++
		}
		if hasWarnings {
			c.WarningRows++
		}
		if r.Duplicate != nil {
			c.DuplicateRows++
		}
	}

	return c
}

// ----------------------------------------------------------------------------
// Rows
// ----------------------------------------------------------------------------

func (v *validator) validateRow(es schema.EntitySchema, mappings []fieldMapping, raw []any, rowNumber int) RowValidationResult {
	row := RowValidationResult{
		RowNumber: rowNumber,
		Errors:    []Issue{},
		Warnings:  []Issue{},
		Data:      make(map[string]any),
		Raw:       raw,
	}

	filled := 0
	for _, m := range mappings {
		cell := workbook.Cell(raw, m.column)
		if workbook.IsEmptyCell(cell) {
			continue
		}
		filled++

		out, err := transform.Transform(cell, m.field)
		if err != nil {
			row.Errors = append(row.Errors, Issue{
				Field:   m.field.Name,
				Value:   workbook.CellText(cell),
				Message: err.Error(),
				Code:    coercionCode(m.field.Type),
			})
			continue
		}

		row.Data[m.field.Name] = out.Value
		if out.Warning != "" {
			row.Warnings = append(row.Warnings, Issue{
				Field:   m.field.Name,
				Value:   workbook.CellText(cell),
				Message: out.Warning,
				Code:    CodeFormat,
			})
		}
	}

	transform.ApplyDefaults(es.Type, row.Data)

	v.checkRequired(es, mappings, &row)
	v.checkEnums(es, &row)
	v.resolveReferences(es, &row)

	errs, warnings := applyRules(es.Type, row.Data, v.in.Policy, v.asOf.Format(transform.DateLayout))
	row.Errors = append(row.Errors, errs...)
	row.Warnings = append(row.Warnings, warnings...)

	row.Duplicate = v.findDuplicate(es, row.Name(es))

	if minPct := v.in.Policy.MinRowCompleteness; minPct > 0 && len(mappings) > 0 {
		if pct := filled * 100 / len(mappings); pct < minPct {
			row.Warnings = append(row.Warnings, Issue{
				Message: fmt.Sprintf("row fills %d%% of its mapped columns, below the %d%% minimum", pct, minPct),
				Code:    CodeFormat,
			})
		}
	}

	if len(row.Errors) == 0 {
		row.IsValid = true
		row.ID = v.newID()
		if es.Type == schema.EntityProject {
			row.WorkID = v.workIDs.assign(row.Data, v.asOf.Year())
			row.Data["workId"] = row.WorkID
		}
	}

	return row
}

func coercionCode(t schema.FieldType) string {
	switch t {
	case schema.FieldDate:
		return CodeInvalidDate
	case schema.FieldNumber:
		return CodeInvalidNumber
	}
	return CodeFormat
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func (v *validator) checkRequired(es schema.EntitySchema, mappings []fieldMapping, row *RowValidationResult) {
	mapped := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		mapped[m.field.Name] = true
	}

	check := func(name, suffix string) {
		if !isBlank(row.Data[name]) {
			return
		}
		// A failed coercion already reported this field.
		for _, e := range row.Errors {
			if e.Field == name {
				return
			}
		}

		msg := fmt.Sprintf("%s is required%s", name, suffix)
		if !mapped[name] {
			msg += ", but no column is mapped to it"
		}
		row.Errors = append(row.Errors, Issue{Field: name, Message: msg, Code: CodeRequired})
	}

	required := make(map[string]bool)
	for _, f := range es.RequiredFields() {
		required[f.Name] = true
		check(f.Name, "")
	}

	for _, name := range v.in.Policy.AdditionalRequired[es.Type] {
		if !required[name] {
			required[name] = true
			check(name, " by import policy")
		}
	}
}

// checkEnums canonicalises enum values: normalized-equal first, then the
// closest declared value at or above the fuzzy threshold, with a warning.
func (v *validator) checkEnums(es schema.EntitySchema, row *RowValidationResult) {
	for _, f := range es.Fields {
		if f.Type != schema.FieldEnum || len(f.EnumValues) == 0 {
			continue
		}

		s, ok := row.Data[f.Name].(string)
		if !ok || s == "" {
			continue
		}

		if canonical, ok := exactEnum(s, f.EnumValues); ok {
			row.Data[f.Name] = canonical
			continue
		}

		idx, score := match.Best(s, f.EnumValues)
		if idx >= 0 && score >= v.in.Policy.FuzzyMatchThreshold {
			row.Data[f.Name] = f.EnumValues[idx]
			row.Warnings = append(row.Warnings, Issue{
				Field:   f.Name,
				Value:   s,
				Message: fmt.Sprintf("%q read as %q", s, f.EnumValues[idx]),
				Code:    CodeInvalidEnum,
			})
			continue
		}

		row.Errors = append(row.Errors, Issue{
			Field:   f.Name,
			Value:   s,
			Message: fmt.Sprintf("%q is not one of: %s", s, strings.Join(f.EnumValues, ", ")),
			Code:    CodeInvalidEnum,
		})
	}
}

func exactEnum(s string, values []string) (string, bool) {
	key := match.Normalize(s)
	for _, ev := range values {
		if match.Normalize(ev) == key {
			return ev, true
		}
	}
	return "", false
}

// resolveReferences replaces every reference name with the matched record's
// name and stores its id under <field>Id.
func (v *validator) resolveReferences(es schema.EntitySchema, row *RowValidationResult) {
	p := v.in.Policy

	for _, f := range es.ReferenceFields() {
		name, ok := row.Data[f.Name].(string)
		if !ok || name == "" {
			continue
		}

		if !schema.Precedes(f.ReferenceType, es.Type) {
			row.Errors = append(row.Errors, Issue{
				Field:   f.Name,
				Value:   name,
				Message: fmt.Sprintf("%s cannot reference %s, which is imported later", es.Type, f.ReferenceType),
				Code:    CodeReference,
			})
			continue
		}

		e, how, score, found := v.lookups[f.ReferenceType].resolve(name, p.FuzzyReferenceMatching, p.FuzzyMatchThreshold)
		if !found {
			row.Errors = append(row.Errors, Issue{
				Field:   f.Name,
				Value:   name,
				Message: fmt.Sprintf("%s %q not found", f.ReferenceType, name),
				Code:    CodeReference,
			})
			continue
		}

		row.Data[f.Name] = e.Name
		row.Data[f.Name+"Id"] = e.ID

		if how != resolvedExact {
			row.Warnings = append(row.Warnings, Issue{
				Field:   f.Name,
				Value:   name,
				Message: fmt.Sprintf("%q matched %s %q (%s, %d)", name, f.ReferenceType, e.Name, how, score),
				Code:    CodeReference,
			})
		}
	}
}

func (v *validator) findDuplicate(es schema.EntitySchema, name string) *DuplicateInfo {
	if name == "" {
		return nil
	}

	lk := v.existing[es.Type]

	if e, ok := lk.exact(name); ok {
		return &DuplicateInfo{ExistingID: e.ID, ExistingName: e.Name, Confidence: match.ExactScore, MatchType: MatchExact}
	}

	threshold := v.in.Policy.DuplicateThreshold
	if threshold <= 0 {
		return nil
	}

	if e, score := lk.closest(name); score >= threshold {
		return &DuplicateInfo{ExistingID: e.ID, ExistingName: e.Name, Confidence: score, MatchType: MatchFuzzy}
	}

	return nil
}
