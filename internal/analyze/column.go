// Package analyze infers what a sheet contains from its name, headers and a
// bounded sample of its values.
package analyze

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/JonMunkholm/portfolio-import/internal/workbook"
)

// ColumnType is the inferred content type of a column.
type ColumnType string

const (
	TypeString     ColumnType = "string"
	TypeNumber     ColumnType = "number"
	TypeBoolean    ColumnType = "boolean"
	TypeDate       ColumnType = "date"
	TypeEmail      ColumnType = "email"
	TypeURL        ColumnType = "url"
	TypeCurrency   ColumnType = "currency"
	TypePercentage ColumnType = "percentage"
	TypeEnum       ColumnType = "enum"
	TypeMixed      ColumnType = "mixed"
	TypeEmpty      ColumnType = "empty"
)

// Pattern names reported in ColumnAnalysis.Patterns.
const (
	PatternEmail      = "email"
	PatternURL        = "url"
	PatternISODate    = "iso_date"
	PatternUSDate     = "us_date"
	PatternEUDate     = "eu_date"
	PatternCurrency   = "currency"
	PatternPercentage = "percentage"
)

// Detection order matters only for the order of ColumnAnalysis.Patterns.
var patternOrder = []string{
	PatternEmail, PatternURL, PatternISODate, PatternUSDate, PatternEUDate, PatternCurrency, PatternPercentage,
}

var patterns = map[string]*regexp.Regexp{
	PatternEmail:      regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`),
	PatternURL:        regexp.MustCompile(`(?i)^(https?://|www\.)\S+$`),
	PatternISODate:    regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}([T ].*)?$`),
	PatternUSDate:     regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`),
	PatternEUDate:     regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{2,4}$`),
	PatternCurrency:   regexp.MustCompile(`^\(?-?\s*[$€£¥]\s*-?[\d,]+(\.\d+)?\)?$|^-?[\d,]+(\.\d+)?\s*(USD|EUR|GBP)$`),
	PatternPercentage: regexp.MustCompile(`^-?\d+(\.\d+)?\s*%$`),
}

var booleanWords = map[string]bool{"true": true, "false": true, "yes": true, "no": true}

// Config tunes column and sheet analysis.
type Config struct {
	SampleRows        int     // non-empty rows sampled per sheet
	PatternThreshold  float64 // share of samples a pattern must match
	DominantThreshold float64 // share of samples the dominant type must hold
	EnumMaxUnique     int     // unique values allowed for an enum column
	EnumMaxRatio      float64 // unique/non-null ratio must be below this
	MaxEnumValues     int     // candidate enum values reported

	SheetNameScore     int // awarded once when the sheet name contains a keyword
	HeaderMatchMin     int // header matches below this score earn nothing
	MinSheetScore      int // best score below this yields no entity type
	TargetCurrentBonus int // target + current headers -> kpi
	StatusHoursBonus   int // status/kanban + hours headers -> task
	EmailBonus         int // email header -> resource
	BudgetDateBonus    int // budget + date headers -> project
}

// DefaultConfig returns the standard analysis thresholds.
func DefaultConfig() Config {
	return Config{
		SampleRows:        10,
		PatternThreshold:  0.5,
		DominantThreshold: 0.8,
		EnumMaxUnique:     10,
		EnumMaxRatio:      0.3,
		MaxEnumValues:     20,

		SheetNameScore:     40,
		HeaderMatchMin:     70,
		MinSheetScore:      30,
		TargetCurrentBonus: 20,
		StatusHoursBonus:   15,
		EmailBonus:         15,
		BudgetDateBonus:    10,
	}
}

// NumericProfile summarises the numeric values of a column.
type NumericProfile struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// ColumnAnalysis describes one column of a sheet.
type ColumnAnalysis struct {
	Index        int             `json:"index"`
	Header       string          `json:"header"`
	InferredType ColumnType      `json:"inferredType"`
	SampleValues []any           `json:"sampleValues"`
	UniqueCount  int             `json:"uniqueCount"`
	NullCount    int             `json:"nullCount"`
	TotalCount   int             `json:"totalCount"`
	Patterns     []string        `json:"patterns,omitempty"`
	EnumValues   []string        `json:"enumValues,omitempty"`
	Numeric      *NumericProfile `json:"numeric,omitempty"`
}

// HasPattern reports whether the named pattern was detected.
func (c ColumnAnalysis) HasPattern(name string) bool {
	for _, p := range c.Patterns {
		if p == name {
			return true
		}
	}
	return false
}

// HasDatePattern reports whether any date pattern was detected.
func (c ColumnAnalysis) HasDatePattern() bool {
	return c.HasPattern(PatternISODate) || c.HasPattern(PatternUSDate) || c.HasPattern(PatternEUDate)
}

// StringLike reports whether the column holds free text a string field could
// absorb (strings and inferred enums).
func (c ColumnAnalysis) StringLike() bool {
	return c.InferredType == TypeString || c.InferredType == TypeEnum
}

// valueKind is the per-value classification.
type valueKind int

const (
	kindString valueKind = iota
	kindNumber
	kindBoolean
	kindDate
)

// AnalyzeColumn inspects column index of rows. Everything it reports,
// counts included, comes from the sample: the first cfg.SampleRows non-empty
// rows.
func AnalyzeColumn(index int, header string, rows [][]any, cfg Config) ColumnAnalysis {
	if cfg.SampleRows <= 0 {
		cfg.SampleRows = DefaultConfig().SampleRows
	}

	sample := sampleRows(rows, cfg.SampleRows)
	col := ColumnAnalysis{
		Index:      index,
		Header:     header,
		TotalCount: len(sample),
	}

	var (
		distinct []string
		seen     = make(map[string]bool)
		numbers  []float64
	)

	for _, row := range sample {
		v := workbook.Cell(row, index)
		if workbook.IsEmptyCell(v) {
			col.NullCount++
			continue
		}
		col.SampleValues = append(col.SampleValues, v)

		text := workbook.CellText(v)
		if !seen[text] {
			seen[text] = true
			distinct = append(distinct, text)
		}

		if n, ok := numericValue(v); ok {
			numbers = append(numbers, n)
		}
	}

	col.UniqueCount = len(distinct)
	nonNull := col.TotalCount - col.NullCount

	if nonNull == 0 {
		col.InferredType = TypeEmpty
		return col
	}

	col.Patterns = detectPatterns(col.SampleValues, cfg.PatternThreshold)
	col.InferredType = inferType(col, nonNull, cfg)

	if col.UniqueCount <= cfg.MaxEnumValues {
		col.EnumValues = distinct
	}

	switch col.InferredType {
	case TypeNumber, TypeCurrency, TypePercentage:
		col.Numeric = profile(numbers)
	}

	return col
}

// sampleRows returns the first n non-empty rows.
func sampleRows(rows [][]any, n int) [][]any {
	var out [][]any
	for _, row := range rows {
		if len(out) >= n {
			break
		}
		if !workbook.IsEmptyRow(row) {
			out = append(out, row)
		}
	}
	return out
}

func inferType(col ColumnAnalysis, nonNull int, cfg Config) ColumnType {
	counts := make(map[valueKind]int)
	for _, v := range col.SampleValues {
		counts[classify(v)]++
	}

	sample := float64(len(col.SampleValues))
	dominant, found := kindString, false

	for _, k := range []valueKind{kindNumber, kindBoolean, kindDate, kindString} {
		if float64(counts[k])/sample >= cfg.DominantThreshold {
			dominant, found = k, true
			break
		}
	}

	enumLike := col.UniqueCount <= cfg.EnumMaxUnique &&
		float64(col.UniqueCount)/float64(nonNull) < cfg.EnumMaxRatio

	if !found {
		switch {
		case enumLike:
			return TypeEnum
		case counts[kindNumber] > 0 && counts[kindString] > 0:
			return TypeMixed
		default:
			return TypeString
		}
	}

	switch dominant {
	case kindNumber:
		switch {
		case col.HasPattern(PatternCurrency):
			return TypeCurrency
		case col.HasPattern(PatternPercentage):
			return TypePercentage
		}
		return TypeNumber
	case kindBoolean:
		return TypeBoolean
	case kindDate:
		return TypeDate
	}

	switch {
	case col.HasPattern(PatternEmail):
		return TypeEmail
	case col.HasPattern(PatternURL):
		return TypeURL
	case enumLike:
		return TypeEnum
	}
	return TypeString
}

func classify(v any) valueKind {
	switch val := v.(type) {
	case bool:
		return kindBoolean
	case float64, float32, int, int64:
		return kindNumber
	case time.Time:
		return kindDate
	case string:
		s := strings.TrimSpace(val)
		if booleanWords[strings.ToLower(s)] {
			return kindBoolean
		}
		if _, ok := parseNumber(s); ok {
			return kindNumber
		}
		if patterns[PatternISODate].MatchString(s) || patterns[PatternUSDate].MatchString(s) || patterns[PatternEUDate].MatchString(s) {
			return kindDate
		}
	}
	return kindString
}

func detectPatterns(sample []any, threshold float64) []string {
	if len(sample) == 0 {
		return nil
	}

	var found []string
	for _, name := range patternOrder {
		re := patterns[name]
		hits := 0

		for _, v := range sample {
			if re.MatchString(strings.TrimSpace(workbook.CellText(v))) {
				hits++
			}
		}

		if float64(hits)/float64(len(sample)) >= threshold {
			found = append(found, name)
		}
	}

	return found
}

func profile(numbers []float64) *NumericProfile {
	if len(numbers) == 0 {
		return nil
	}

	data := stats.Float64Data(numbers)
	p := &NumericProfile{Count: len(numbers)}

	// Errors only occur on empty input, checked above.
	p.Min, _ = data.Min()
	p.Max, _ = data.Max()
	p.Mean, _ = data.Mean()
	p.Median, _ = data.Median()

	return p
}

func numericValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		return parseNumber(val)
	}
	return 0, false
}

var numberNoise = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", "%", "", " ", "", "USD", "", "EUR", "", "GBP", "")

// parseNumber is a lenient float parse used only for classification.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = numberNoise.Replace(strings.Trim(s, "()"))

	if !strings.ContainsAny(s, "0123456789") {
		return 0, false
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	if neg {
		n = -n
	}
	return n, true
}
