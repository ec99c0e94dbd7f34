package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/portfolio-import/internal/schema"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	assert.NoError(t, p.Validate())
	assert.True(t, p.FuzzyReferenceMatching)
	assert.Equal(t, 80, p.FuzzyMatchThreshold)
	assert.Equal(t, 85, p.DuplicateThreshold)
	assert.False(t, p.TreatWarningsAsErrors)
	assert.False(t, p.RejectOverBudgetProjects)
	assert.True(t, p.Rules.ProjectDateOrder)
	assert.True(t, p.Rules.MilestoneCompletedByTarget)
}

func TestParsePolicy_KeepsDefaultsForMissingKeys(t *testing.T) {
	p, err := ParsePolicy([]byte(`
fuzzyMatchThreshold: 70
treatWarningsAsErrors: true
additionalRequired:
  resource: [email]
rules:
  taskDueDateNotPast: false
`))
	require.NoError(t, err)

	assert.Equal(t, 70, p.FuzzyMatchThreshold)
	assert.Equal(t, 85, p.DuplicateThreshold)
	assert.True(t, p.TreatWarningsAsErrors)
	assert.True(t, p.FuzzyReferenceMatching)
	assert.Equal(t, []string{"email"}, p.AdditionalRequired[schema.EntityResource])
	assert.False(t, p.Rules.TaskDueDateNotPast)
	assert.True(t, p.Rules.ProjectDateOrder, "unlisted rules stay on")
}

func TestParsePolicy_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"threshold too high", "fuzzyMatchThreshold: 120", "fuzzyMatchThreshold"},
		{"negative duplicate threshold", "duplicateThreshold: -1", "duplicateThreshold"},
		{"completeness out of range", "minRowCompleteness: 101", "minRowCompleteness"},
		{"unknown entity", "additionalRequired:\n  budget: [name]", "unknown entity type"},
		{"unknown field", "additionalRequired:\n  task: [colour]", `no field "colour"`},
		{"malformed", "rules: [", "parse policy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rejectPastDueTasks: true\n"), 0o600))

	p, err := LoadPolicyFile(path)
	require.NoError(t, err)
	assert.True(t, p.RejectPastDueTasks)

	_, err = LoadPolicyFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
