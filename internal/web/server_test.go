package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/portfolio-import/internal/config"
	"github.com/JonMunkholm/portfolio-import/internal/core"
	"github.com/JonMunkholm/portfolio-import/internal/importer"
	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/store"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeout: 10 * time.Second, ShutdownTimeout: time.Second},
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   50 * time.Millisecond,
			Timeout:       time.Minute,
			SessionTTL:    time.Minute,
			SampleRows:    10,
		},
		Security: config.SecurityConfig{EnableCSP: true},
		Logging:  config.LoggingConfig{Level: "error", Format: "text"},
	}
}

type testServer struct {
	*Server
	store *store.Memory
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()

	opts, err := core.OptionsFromConfig(cfg.Import)
	require.NoError(t, err)

	mem := store.NewMemory(nil)
	srv := NewServer(core.NewService(mem, opts), cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		srv.Shutdown(ctx)
	})

	return &testServer{Server: srv, store: mem}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return ts.do(req)
}

func portfolioXLSX(t *testing.T) []byte {
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

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func uploadRequest(t *testing.T, field, fileName string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/workbooks/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) analyze(t *testing.T) core.Analysis {
	t.Helper()
	rec := ts.do(uploadRequest(t, "file", "portfolio.xlsx", portfolioXLSX(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[core.Analysis](t, rec)
}

// ----------------------------------------------------------------------------
// Basic Routes
// ----------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 2, got.Imports.MaxConcurrent)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestSchemas(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/schemas", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[schemasResponse](t, rec)
	require.NotEmpty(t, got.Schemas)
	assert.Equal(t, schema.EntityPillar, got.Schemas[0].Type)
	assert.Equal(t, validate.DefaultPolicy().DuplicateThreshold, got.Policy.DuplicateThreshold)
}

// ----------------------------------------------------------------------------
// Analyze
// ----------------------------------------------------------------------------

func TestAnalyze(t *testing.T) {
	ts := newTestServer(t, testConfig())

	analysis := ts.analyze(t)

	assert.NotEmpty(t, analysis.SessionID)
	assert.Equal(t, "portfolio.xlsx", analysis.FileName)
	require.Len(t, analysis.Sheets, 2)
	assert.Equal(t, schema.EntityPillar, analysis.Sheets[0].Analysis.EntityType)
	assert.Equal(t, schema.EntityInitiative, analysis.Sheets[1].Analysis.EntityType)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+analysis.SessionID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analysis.SessionID, decode[core.Analysis](t, rec).SessionID)

	rec = ts.do(httptest.NewRequest(http.MethodDelete, "/api/sessions/"+analysis.SessionID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+analysis.SessionID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyze_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 4096
	ts := newTestServer(t, cfg)

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
		wantErr  string
	}{
		{"no file", uploadRequest(t, "attachment", "x.csv", []byte("a,b\n1,2\n")), http.StatusBadRequest, "FILE004"},
		{"unsupported format", uploadRequest(t, "file", "notes.txt", []byte("hello")), http.StatusUnsupportedMediaType, "FILE002"},
		{"too large", uploadRequest(t, "file", "big.csv", bytes.Repeat([]byte("a,b\n"), 4096)), http.StatusRequestEntityTooLarge, "FILE001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.req)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, decode[ErrorResponse](t, rec).Code)
		})
	}
}

// ----------------------------------------------------------------------------
// Validate and Execute
// ----------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	ts := newTestServer(t, testConfig())
	analysis := ts.analyze(t)

	rec := ts.postJSON(t, "/api/imports/validate", core.ValidateRequest{SessionID: analysis.SessionID})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[validate.ImportValidationResult](t, rec)
	assert.True(t, res.CanProceed)
	assert.Equal(t, 4, res.ValidRows)
}

func TestValidate_Errors(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := ts.postJSON(t, "/api/imports/validate", core.ValidateRequest{SessionID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SES003", decode[ErrorResponse](t, rec).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/imports/validate", strings.NewReader("{not json"))
	rec = ts.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ001", decode[ErrorResponse](t, rec).Code)
}

func TestValidate_HTMX(t *testing.T) {
	ts := newTestServer(t, testConfig())
	analysis := ts.analyze(t)

	raw, _ := json.Marshal(core.ValidateRequest{SessionID: analysis.SessionID})
	req := httptest.NewRequest(http.MethodPost, "/api/imports/validate", bytes.NewReader(raw))
	req.Header.Set("HX-Request", "true")
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `data-status="ready"`)

	req = httptest.NewRequest(http.MethodPost, "/api/imports/validate", strings.NewReader(`{"sessionId":"gone"}`))
	req.Header.Set("HX-Request", "true")
	rec = ts.do(req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="alert alert-error"`)
	assert.Contains(t, rec.Body.String(), "SES003")
}

func TestExecute_Sync(t *testing.T) {
	ts := newTestServer(t, testConfig())
	analysis := ts.analyze(t)

	rec := ts.postJSON(t, "/api/imports/execute", executeRequest{
		ImportRequest: core.ImportRequest{ValidateRequest: core.ValidateRequest{SessionID: analysis.SessionID}},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[executeResponse](t, rec)
	require.NotNil(t, got.Result)
	assert.Equal(t, 4, got.Result.Created)
	assert.Equal(t, got.Result.ImportID, got.ImportID)
	assert.Equal(t, 2, ts.store.Count(schema.EntityInitiative))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/imports/history?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]store.Run](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, "portfolio.xlsx", runs[0].FileName)
}

func TestExecute_Blocked(t *testing.T) {
	ts := newTestServer(t, testConfig())
	analysis := ts.analyze(t)

	// Explicit empty configs enable no sheet.
	rec := ts.postJSON(t, "/api/imports/execute", map[string]any{
		"sessionId": analysis.SessionID,
		"configs":   []any{},
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	got := decode[executeResponse](t, rec)
	assert.False(t, got.Validation.CanProceed)
	require.NotEmpty(t, got.Validation.GlobalErrors)
	require.NotNil(t, got.Error)
	assert.Equal(t, "IMP006", got.Error.Code)
	assert.Nil(t, got.Result)
}

func TestExecute_UnknownDuplicateStrategy(t *testing.T) {
	ts := newTestServer(t, testConfig())
	analysis := ts.analyze(t)

	rec := ts.postJSON(t, "/api/imports/execute", map[string]any{
		"sessionId":  analysis.SessionID,
		"duplicates": "merge",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IMP007", decode[ErrorResponse](t, rec).Code)
}

func TestExecute_Async(t *testing.T) {
	ts := newTestServer(t, testConfig())
	analysis := ts.analyze(t)

	rec := ts.postJSON(t, "/api/imports/execute", map[string]any{
		"sessionId": analysis.SessionID,
		"async":     true,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	id := decode[executeResponse](t, rec).ImportID
	require.NotEmpty(t, id)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/imports/"+id+"/result", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[importer.Result](t, rec)
	assert.Equal(t, 4, result.Created)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/imports/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, importer.PhaseComplete, decode[core.ImportStatus](t, rec).Phase)

	// The stream of a finished import replays its final state and closes.
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/imports/"+id+"/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, string(body), "event: progress")
	assert.Contains(t, string(body), "event: complete")
	assert.Contains(t, string(body), `"phase":"complete"`)
}

func TestImportRoutes_UnknownID(t *testing.T) {
	ts := newTestServer(t, testConfig())

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/imports/nope", nil),
		httptest.NewRequest(http.MethodGet, "/api/imports/nope/progress", nil),
		httptest.NewRequest(http.MethodGet, "/api/imports/nope/result", nil),
		httptest.NewRequest(http.MethodPost, "/api/imports/nope/cancel", nil),
	} {
		rec := ts.do(req)
		assert.Equal(t, http.StatusNotFound, rec.Code, req.URL.Path)
		assert.Equal(t, "SES003", decode[ErrorResponse](t, rec).Code, req.URL.Path)
	}
}

// ----------------------------------------------------------------------------
// Middleware Wiring
// ----------------------------------------------------------------------------

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	ts := newTestServer(t, cfg)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/schemas", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTH001", decode[ErrorResponse](t, rec).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/schemas", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, ts.do(req).Code)

	// Health checks stay open.
	assert.Equal(t, http.StatusOK, ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, ImportLimit: 1}
	ts := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	}

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
}

func TestRateLimiter_Allow(t *testing.T) {
	s := &Server{}
	rl := s.newRateLimiter(2, time.Hour)
	defer rl.stop()

	assert.True(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("2.2.2.2"), "limits are per client")

	rl.visitors["1.1.1.1"].lastReset = time.Now().Add(-2 * time.Hour)
	assert.True(t, rl.allow("1.1.1.1"), "window reset refills tokens")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrSessionNotFound, http.StatusNotFound},
		{core.ErrImportNotFound, http.StatusNotFound},
		{core.ErrTooManyImports, http.StatusServiceUnavailable},
		{importer.ErrCannotProceed, http.StatusUnprocessableEntity},
		{store.ErrDuplicateID, http.StatusConflict},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errBadRequest, http.StatusBadRequest},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
