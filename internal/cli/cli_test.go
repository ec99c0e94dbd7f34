package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/portfolio-import/internal/importer"
	"github.com/JonMunkholm/portfolio-import/internal/workbook"
)

// writePortfolio saves a two-sheet workbook and returns its path.
func writePortfolio(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Pillars"))
	_, err := f.NewSheet("Initiatives")
	require.NoError(t, err)

	rows := map[string][][]any{
		"Pillars":     {{"Pillar Name", "RAG Status"}, {"Growth", "Green"}, {"Efficiency", "Amber"}},
		"Initiatives": {{"Initiative Name", "Pillar"}, {"Grow ARR", "Growth"}, {"Cut Costs", "Efficiency"}},
	}
	for sheet, data := range rows {
		for i, row := range data {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), "portfolio.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")
	t.Setenv("IMPORT_POLICY_FILE", "")

	var stdout, stderr bytes.Buffer
	root := NewRoot()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), err
}

// ----------------------------------------------------------------------------
// Commands
// ----------------------------------------------------------------------------

func TestAnalyze(t *testing.T) {
	out, err := run(t, "analyze", writePortfolio(t))
	require.NoError(t, err)

	assert.Contains(t, out, "portfolio.xlsx: 2 sheet(s)")
	assert.Contains(t, out, "Pillars: pillar")
	assert.Contains(t, out, "Initiatives: initiative")
	assert.Contains(t, out, "COLUMN")
}

func TestAnalyze_JSON(t *testing.T) {
	out, err := run(t, "analyze", "--json", writePortfolio(t))
	require.NoError(t, err)

	var got struct {
		SessionID string `json:"sessionId"`
		Sheets    []any  `json:"sheets"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEmpty(t, got.SessionID)
	assert.Len(t, got.Sheets, 2)
}

func TestValidate(t *testing.T) {
	out, err := run(t, "validate", writePortfolio(t))
	require.NoError(t, err)

	assert.Contains(t, out, "SHEET")
	assert.Contains(t, out, "ready to import 4 of 4 rows")
}

func TestValidate_BlockedExitsWithError(t *testing.T) {
	out, err := run(t, "validate", "--skip-sheet", "Pillars", "--skip-sheet", "Initiatives", writePortfolio(t))

	assert.ErrorIs(t, err, importer.ErrCannotProceed)
	assert.Contains(t, out, "IMP001")
	assert.Contains(t, out, "import blocked")
}

func TestValidate_UnknownSkipSheet(t *testing.T) {
	_, err := run(t, "validate", "--skip-sheet", "Budget", writePortfolio(t))
	assert.ErrorContains(t, err, `sheet "Budget" not found`)
}

func TestImport_DryRun(t *testing.T) {
	out, err := run(t, "import", writePortfolio(t))
	require.NoError(t, err)

	assert.Contains(t, out, "CREATED")
	assert.Contains(t, out, "dry run: nothing was persisted")
}

func TestImport_JSON(t *testing.T) {
	out, err := run(t, "import", "--json", "--duplicates", "replace", writePortfolio(t))
	require.NoError(t, err)

	var res importer.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 4, res.Created)
	assert.True(t, res.Success)
}

func TestImport_Errors(t *testing.T) {
	path := writePortfolio(t)

	_, err := run(t, "import", "--apply", path)
	assert.ErrorContains(t, err, "DATABASE_URL")

	_, err = run(t, "import", "--duplicates", "merge", path)
	assert.ErrorContains(t, err, "unknown duplicate strategy")

	notes := filepath.Join(t.TempDir(), "plan.txt")
	require.NoError(t, os.WriteFile(notes, []byte("not a workbook"), 0o600))
	_, err = run(t, "import", notes)
	assert.ErrorIs(t, err, workbook.ErrUnsupportedFormat)

	_, err = run(t, "import", filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.ErrorContains(t, err, "open workbook")
}

func TestHistory_NeedsDatabase(t *testing.T) {
	_, err := run(t, "history")
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestPolicyFlag(t *testing.T) {
	_, err := run(t, "validate", "--policy", filepath.Join(t.TempDir(), "nope.yaml"), writePortfolio(t))
	assert.ErrorContains(t, err, "read policy")
}
