package analyze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/workbook"
)

func column(values ...any) [][]any {
	rows := make([][]any, len(values))
	for i, v := range values {
		rows[i] = []any{v}
	}
	return rows
}

func repeat(n int, values ...any) []any {
	var out []any
	for i := 0; i < n; i++ {
		out = append(out, values...)
	}
	return out
}

func TestAnalyzeColumn_InferredType(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name   string
		values []any
		want   ColumnType
	}{
		{"numbers", []any{1.0, 2.5, "3", "4,000", 5.0}, TypeNumber},
		{"currency", []any{"$1,200", "$300.50", "$99", "$10", "$5"}, TypeCurrency},
		{"percentage", []any{"10%", "25%", "100%", "5 %", "0%"}, TypePercentage},
		{"booleans", []any{true, false, "yes", "no", true}, TypeBoolean},
		{"dates", []any{time.Now(), "2025-01-02", "03/04/2025", "04.05.2025", "2025-06-07"}, TypeDate},
		{"emails", []any{"a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io"}, TypeEmail},
		{"urls", []any{"https://a.io", "https://b.io", "www.c.io", "https://d.io", "https://e.io"}, TypeURL},
		{"enum", repeat(5, "Open", "Closed"), TypeEnum},
		{"free text", []any{"alpha", "bravo", "charlie", "delta", "echo"}, TypeString},
		{"mixed", []any{"alpha", 1.0, "bravo", 2.0, "charlie", 3.0}, TypeMixed},
		{"all null", []any{nil, "", "  "}, TypeEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := AnalyzeColumn(0, "Col", column(tt.values...), cfg)
			assert.Equal(t, tt.want, col.InferredType, "patterns=%v", col.Patterns)
		})
	}
}

func TestAnalyzeColumn_Counts(t *testing.T) {
	rows := [][]any{
		{"A", "todo"},
		{"B", nil},
		{"C", "done"},
		{"D", "todo"},
		{"E", ""},
		{"F", "blocked"},
		{nil, ""},
	}
	col := AnalyzeColumn(1, "Status", rows, DefaultConfig())

	assert.Equal(t, 6, col.TotalCount, "empty rows are not sampled")
	assert.Equal(t, 2, col.NullCount)
	assert.Equal(t, 3, col.UniqueCount)
	assert.Equal(t, []string{"todo", "done", "blocked"}, col.EnumValues)
	assert.Len(t, col.SampleValues, 4)
}

func TestAnalyzeColumn_SampleBounded(t *testing.T) {
	var values []any
	for i := 0; i < 50; i++ {
		values = append(values, float64(i))
	}

	col := AnalyzeColumn(0, "Hours", column(values...), DefaultConfig())

	assert.Equal(t, 10, col.TotalCount)
	assert.Len(t, col.SampleValues, 10)
	assert.Equal(t, 10, col.UniqueCount, "rows past the sample are not counted")
	assert.Equal(t, TypeNumber, col.InferredType)

	require.NotNil(t, col.Numeric)
	assert.Equal(t, 10, col.Numeric.Count)
	assert.Equal(t, 0.0, col.Numeric.Min)
	assert.Equal(t, 9.0, col.Numeric.Max)
	assert.InDelta(t, 4.5, col.Numeric.Mean, 1e-9)
}

func TestAnalyzeColumn_SameResultAsFirstTenRows(t *testing.T) {
	values := repeat(10, "todo", "done", "blocked")
	cfg := DefaultConfig()

	all := AnalyzeColumn(0, "Status", column(values...), cfg)
	head := AnalyzeColumn(0, "Status", column(values[:10]...), cfg)

	assert.Equal(t, head, all)
	assert.Equal(t, 10, all.TotalCount)
	assert.Equal(t, 3, all.UniqueCount)
	assert.Equal(t, TypeString, all.InferredType, "3 of 10 is not a low enough ratio for an enum")
}

func TestAnalyzeColumn_Patterns(t *testing.T) {
	col := AnalyzeColumn(0, "Due", column("2025-01-01", "2025-02-01", "n/a", "tbd"), DefaultConfig())

	assert.True(t, col.HasPattern(PatternISODate), "2 of 4 values meet the pattern threshold")
	assert.True(t, col.HasDatePattern())
	assert.False(t, col.HasPattern(PatternEmail))
}

func TestDetectEntityType_TasksSheet(t *testing.T) {
	et, confidence, reasons := DetectEntityType("Tasks", []string{"Task", "Status", "Est Hours", "Due Date"}, DefaultConfig())

	assert.Equal(t, schema.EntityTask, et)
	assert.GreaterOrEqual(t, confidence, 30)
	assert.LessOrEqual(t, confidence, 100)
	assert.Contains(t, reasons, `sheet name contains "task" (+40)`)
}

func TestDetectEntityType_Signals(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name    string
		sheet   string
		headers []string
		want    schema.EntityType
	}{
		{"kpi by headers", "Sheet1", []string{"KPI", "Target", "Current", "Unit"}, schema.EntityKPI},
		{"resource by email", "Sheet2", []string{"Full Name", "Email", "Role", "Department"}, schema.EntityResource},
		{"project by name", "Projects", []string{"Name", "Budget", "Start Date"}, schema.EntityProject},
		{"milestones", "Key Milestones", []string{"Milestone", "Target Date"}, schema.EntityMilestone},
		{"unrecognised", "Sheet3", []string{"Colour", "Flavour"}, schema.EntityNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			et, confidence, reasons := DetectEntityType(tt.sheet, tt.headers, cfg)
			assert.Equal(t, tt.want, et, "reasons: %v", reasons)
			assert.GreaterOrEqual(t, confidence, 0)
			assert.LessOrEqual(t, confidence, 100)
			assert.NotEmpty(t, reasons)
		})
	}
}

func TestDetectEntityType_TieGoesToEarlierType(t *testing.T) {
	// "Project Team" earns the sheet-name bonus for both resource and project.
	et, _, _ := DetectEntityType("Project Team", nil, DefaultConfig())
	assert.Equal(t, schema.EntityResource, et)
}

func TestExcludeReason(t *testing.T) {
	assert.NotEmpty(t, ExcludeReason("_hidden"))
	assert.NotEmpty(t, ExcludeReason("Lookup Tables"))
	assert.NotEmpty(t, ExcludeReason("Instructions"))
	assert.NotEmpty(t, ExcludeReason("README"))
	assert.Empty(t, ExcludeReason("Projects"))
}

func TestAnalyzeWorkbook(t *testing.T) {
	wb := workbook.Workbook{Sheets: []workbook.Sheet{
		{
			Name:    "Tasks",
			Headers: []string{"Task", "Status", "Est Hours", "Due Date"},
			Rows: [][]any{
				{"Write brief", "todo", 4.0, "2025-03-01"},
				{nil, nil, nil, nil},
				{"Review", "done", 2.0, "2025-03-02"},
			},
		},
		{
			Name:    "Instructions",
			Headers: []string{"Step"},
			Rows:    [][]any{{"Fill in the Tasks sheet"}},
		},
	}}

	got := AnalyzeWorkbook(wb, DefaultConfig())
	require.Len(t, got, 2)

	tasks := got[0]
	assert.Equal(t, schema.EntityTask, tasks.EntityType)
	assert.Equal(t, 3, tasks.RowCount)
	assert.Equal(t, 4, tasks.ColumnCount)
	assert.Len(t, tasks.SampleRows, 2, "empty rows are not sampled")
	require.Len(t, tasks.Columns, 4)
	assert.Equal(t, TypeNumber, tasks.Columns[2].InferredType)
	assert.Equal(t, TypeDate, tasks.Columns[3].InferredType)

	instructions := got[1]
	assert.True(t, instructions.Excluded)
	assert.Equal(t, schema.EntityNone, instructions.EntityType)
	assert.Zero(t, instructions.Confidence)
}
