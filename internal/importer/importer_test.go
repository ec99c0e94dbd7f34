package importer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, et schema.EntityType, rec validate.Record) error {
	args := m.Called(ctx, et, rec)
	return args.Error(0)
}

func (m *mockStore) Replace(ctx context.Context, et schema.EntityType, existingID string, rec validate.Record) error {
	args := m.Called(ctx, et, existingID, rec)
	return args.Error(0)
}

func withID(id string) any {
	return mock.MatchedBy(func(r validate.Record) bool { return r.ID == id })
}

func withField(key string, want any) any {
	return mock.MatchedBy(func(r validate.Record) bool { return r.Fields[key] == want })
}

// batch is a pillar sheet with one row and an initiative sheet with one valid
// row referencing it and one invalid row.
func batch(pillarDup *validate.DuplicateInfo) validate.ImportValidationResult {
	return validate.ImportValidationResult{
		CanProceed: true,
		Sheets: []validate.SheetValidationResult{
			{
				SheetName:  "Pillars",
				EntityType: schema.EntityPillar,
				Rows: []validate.RowValidationResult{
					{RowNumber: 2, IsValid: true, ID: "p1", Data: map[string]any{"name": "Growth"}, Duplicate: pillarDup},
				},
			},
			{
				SheetName:  "Initiatives",
				EntityType: schema.EntityInitiative,
				Rows: []validate.RowValidationResult{
					{RowNumber: 2, IsValid: true, ID: "i1", Data: map[string]any{"name": "Grow", "pillar": "Growth", "pillarId": "p1"}},
					{RowNumber: 3, IsValid: false, Data: map[string]any{"name": "Broken"}},
				},
			},
		},
	}
}

// ----------------------------------------------------------------------------
// Execute Tests
// ----------------------------------------------------------------------------

func TestExecute_CreatesValidRows(t *testing.T) {
	store := new(mockStore)
	store.On("Create", mock.Anything, schema.EntityPillar, withID("p1")).Return(nil).Once()
	store.On("Create", mock.Anything, schema.EntityInitiative, withField("pillarId", "p1")).Return(nil).Once()

	res, err := NewExecutor(store, nil).Execute(context.Background(), batch(nil), Options{ImportID: "imp-1"})
	require.NoError(t, err)

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Create", mock.Anything, schema.EntityInitiative, withField("name", "Broken"))

	assert.Equal(t, "imp-1", res.ImportID)
	assert.Equal(t, 2, res.Created)
	assert.True(t, res.Success)
	require.Len(t, res.Sheets, 2)
	assert.Equal(t, []RowResult{{RowNumber: 2, Name: "Grow", Status: StatusCreated, ID: "i1"}}, res.Sheets[1].Rows)
}

func TestExecute_DuplicateSkipRemapsChildren(t *testing.T) {
	dup := &validate.DuplicateInfo{ExistingID: "x1", ExistingName: "Growth", Confidence: 100, MatchType: validate.MatchExact}

	store := new(mockStore)
	store.On("Create", mock.Anything, schema.EntityInitiative, withField("pillarId", "x1")).Return(nil).Once()

	res, err := NewExecutor(store, nil).Execute(context.Background(), batch(dup), Options{Duplicates: DuplicateSkip})
	require.NoError(t, err)

	store.AssertExpectations(t)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, StatusSkipped, res.Sheets[0].Rows[0].Status)
	assert.Equal(t, "x1", res.Sheets[0].Rows[0].ID)
	assert.NotEmpty(t, res.ImportID)
}

func TestExecute_DuplicateReplace(t *testing.T) {
	dup := &validate.DuplicateInfo{ExistingID: "x1", ExistingName: "Growth", Confidence: 92, MatchType: validate.MatchFuzzy}

	store := new(mockStore)
	store.On("Replace", mock.Anything, schema.EntityPillar, "x1", withID("x1")).Return(nil).Once()
	store.On("Create", mock.Anything, schema.EntityInitiative, withField("pillarId", "x1")).Return(nil).Once()

	res, err := NewExecutor(store, nil).Execute(context.Background(), batch(dup), Options{Duplicates: DuplicateReplace, FuzzyDuplicates: true})
	require.NoError(t, err)

	store.AssertExpectations(t)
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, StatusReplaced, res.Sheets[0].Rows[0].Status)
}

func TestExecute_FuzzyDuplicateCreatedByDefault(t *testing.T) {
	dup := &validate.DuplicateInfo{ExistingID: "x1", ExistingName: "Growth", Confidence: 90, MatchType: validate.MatchFuzzy}

	for _, strategy := range []DuplicateStrategy{DuplicateSkip, DuplicateReplace} {
		t.Run(string(strategy), func(t *testing.T) {
			store := new(mockStore)
			store.On("Create", mock.Anything, schema.EntityPillar, withID("p1")).Return(nil).Once()
			store.On("Create", mock.Anything, schema.EntityInitiative, withField("pillarId", "p1")).Return(nil).Once()

			res, err := NewExecutor(store, nil).Execute(context.Background(), batch(dup), Options{Duplicates: strategy})
			require.NoError(t, err)

			store.AssertExpectations(t)
			store.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, 2, res.Created)
			assert.Zero(t, res.Skipped)

			row := res.Sheets[0].Rows[0]
			assert.Equal(t, StatusCreated, row.Status)
			assert.Equal(t, "p1", row.ID)
			assert.Contains(t, row.Reason, `possible duplicate of "Growth"`)
		})
	}
}

func TestExecute_DuplicateKeep(t *testing.T) {
	dup := &validate.DuplicateInfo{ExistingID: "x1", ExistingName: "Growth", Confidence: 100, MatchType: validate.MatchExact}

	store := new(mockStore)
	store.On("Create", mock.Anything, schema.EntityPillar, withID("p1")).Return(nil).Once()
	store.On("Create", mock.Anything, schema.EntityInitiative, withField("pillarId", "p1")).Return(nil).Once()

	res, err := NewExecutor(store, nil).Execute(context.Background(), batch(dup), Options{Duplicates: DuplicateKeep})
	require.NoError(t, err)

	store.AssertExpectations(t)
	assert.Equal(t, 2, res.Created)
}

func TestExecute_FailedParentFailsChildren(t *testing.T) {
	store := new(mockStore)
	store.On("Create", mock.Anything, schema.EntityPillar, withID("p1")).Return(errors.New("unique violation")).Once()

	res, err := NewExecutor(store, nil).Execute(context.Background(), batch(nil), Options{})
	require.NoError(t, err)

	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "Create", 1)

	assert.Equal(t, 2, res.Failed)
	assert.False(t, res.Success)
	assert.Equal(t, "unique violation", res.Sheets[0].Rows[0].Reason)
	assert.Contains(t, res.Sheets[1].Rows[0].Reason, "pillar")
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := new(mockStore)

	res, err := NewExecutor(store, nil).Execute(ctx, batch(nil), Options{})

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.True(t, res.Cancelled)
	assert.False(t, res.Success)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_CancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := new(mockStore)
	store.On("Create", mock.Anything, schema.EntityPillar, withID("p1")).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil).Once()

	res, err := NewExecutor(store, nil).Execute(ctx, batch(nil), Options{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Created)
	assert.True(t, res.Cancelled)
	store.AssertExpectations(t)
}

func TestExecute_Rejects(t *testing.T) {
	store := new(mockStore)
	ex := NewExecutor(store, nil)

	_, err := ex.Execute(context.Background(), validate.ImportValidationResult{}, Options{})
	assert.ErrorIs(t, err, ErrCannotProceed)

	_, err = ex.Execute(context.Background(), batch(nil), Options{Duplicates: "merge"})
	assert.ErrorContains(t, err, "merge")
}

func TestExecute_Progress(t *testing.T) {
	store := new(mockStore)
	store.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var seen []Progress
	_, err := NewExecutor(store, nil).Execute(context.Background(), batch(nil), Options{
		Progress: func(p Progress) { seen = append(seen, p) },
	})
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, 50, seen[0].Percent())
	assert.Equal(t, "Initiatives", seen[1].SheetName)
	assert.Equal(t, PhaseComplete, seen[2].Phase)
	assert.Equal(t, 100, seen[2].Percent())
}

func TestResult_JSONContract(t *testing.T) {
	store := new(mockStore)
	store.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := NewExecutor(store, nil).Execute(context.Background(), batch(nil), Options{ImportID: "imp-1"})
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	for _, key := range []string{"importId", "sheets", "durationMs", "cancelled", "success", "created", "replaced", "skipped", "failed"} {
		assert.Contains(t, got, key)
	}
	assert.NotContains(t, got, "Duration")

	sheet := got["sheets"].([]any)[0].(map[string]any)
	for _, key := range []string{"sheetName", "entityType", "rows", "created"} {
		assert.Contains(t, sheet, key)
	}
}

func TestParseDuplicateStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want DuplicateStrategy
		ok   bool
	}{
		{"", DuplicateSkip, true},
		{"skip", DuplicateSkip, true},
		{"keep", DuplicateKeep, true},
		{"replace", DuplicateReplace, true},
		{"Replace", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseDuplicateStrategy(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
