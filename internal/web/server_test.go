package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/vlookup/internal/config"
	"github.com/JonMunkholm/vlookup/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	employeesCSV = "employee_id,name,dept_code\n1,Ann,ENG\n2,Bob,OPS\n3,Cid,XXX\n"
	deptsCSV     = "code,department\nENG,Engineering\nOPS,Operations\n"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080, RequestTimeout: 10 * time.Second, ShutdownTimeout: time.Second},
		Upload:  config.UploadConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second, PreviewRows: 2},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *core.Service) {
	t.Helper()
	svc := core.NewService(core.Config{}, nil)
	srv := NewServer(cfg, svc)
	t.Cleanup(func() { _ = srv.Shutdown(t.Context()) })
	return srv, svc
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, path, fileName, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path string, v any) *http.Request {
	data, _ := json.Marshal(v)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// workspace creates a session with both tables loaded and returns its API base path.
func workspace(t *testing.T, srv *Server) string {
	t.Helper()
	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	base := "/api/sessions/" + created["id"]

	rec = do(t, srv, uploadRequest(t, base+"/tables/a", "employees.csv", employeesCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, srv, uploadRequest(t, base+"/tables/B", "departments.csv", deptsCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return base
}

func TestIndex_RedirectsToNewSession(t *testing.T) {
	srv, svc := newTestServer(t, testConfig())

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/sessions/"))
	assert.Equal(t, 1, svc.SessionCount())

	page := do(t, srv, httptest.NewRequest(http.MethodGet, rec.Header().Get("Location")+"?notice=hi", nil))
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "VLOOKUP")
	assert.Contains(t, page.Body.String(), "hi")
	assert.Equal(t, "nosniff", page.Header().Get("X-Content-Type-Options"))
}

func TestUploadTable(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	base := workspace(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, base, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var summary core.SessionSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Equal(t, 3, summary.RowsA)
	assert.Equal(t, 2, summary.RowsB)
	assert.Equal(t, "departments.csv", summary.FileNameB)
	assert.Equal(t, []string{"code", "department"}, summary.ColumnsB)
}

func TestUploadTable_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 512
	srv, svc := newTestServer(t, cfg)
	base := "/api/sessions/" + svc.CreateSession().ID

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
		wantErr  string
	}{
		{
			name:     "unknown slot",
			req:      uploadRequest(t, base+"/tables/c", "x.csv", "a\n1\n"),
			wantCode: http.StatusBadRequest,
			wantErr:  "VAL004",
		},
		{
			name:     "too large",
			req:      uploadRequest(t, base+"/tables/a", "x.csv", strings.Repeat("a,b\n", 200)),
			wantCode: http.StatusRequestEntityTooLarge,
			wantErr:  "FILE001",
		},
		{
			name:     "no file field",
			req:      jsonRequest(http.MethodPost, base+"/tables/a", map[string]string{}),
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE004",
		},
		{
			name:     "bad header",
			req:      uploadRequest(t, base+"/tables/a", "x.csv", "id,id\n1,2\n"),
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE006",
		},
		{
			name:     "unknown session",
			req:      uploadRequest(t, "/api/sessions/nope/tables/a", "x.csv", "a\n1\n"),
			wantCode: http.StatusNotFound,
			wantErr:  "SES001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantErr, resp.Code)
		})
	}
}

func TestLookupFlow(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	base := workspace(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, base+"/common-columns", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"columns":[]}`, rec.Body.String())

	rec = do(t, srv, jsonRequest(http.MethodPost, base+"/selection", core.Selection{
		LookupColumn: "dept_code", MatchColumn: "code", ReturnColumn: "department",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, jsonRequest(http.MethodPost, base+"/lookup", map[string]string{"value": " ops "}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var single SingleLookupResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&single))
	assert.True(t, single.Found)
	assert.Equal(t, "Operations", single.Display)

	rec = do(t, srv, jsonRequest(http.MethodPost, base+"/lookup", map[string]string{"value": "HR"}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&single))
	assert.False(t, single.Found)
	assert.Equal(t, "N/A", single.Display)

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, base+"/bulk", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var bulk BulkLookupResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&bulk))
	assert.Equal(t, 3, bulk.Summary.Processed)
	assert.Equal(t, 2, bulk.Summary.Matched)
	require.Len(t, bulk.Rows, 3)
	assert.Equal(t, "N/A", bulk.Rows[2].Value("department").String())
}

func TestBulkLookup_IncompleteSelection(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	base := workspace(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, base+"/bulk", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "VAL001", resp.Code)
}

func TestExport(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	base := workspace(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, base+"/export", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	do(t, srv, jsonRequest(http.MethodPost, base+"/selection", core.Selection{
		LookupColumn: "dept_code", MatchColumn: "code", ReturnColumn: "department",
	}))
	do(t, srv, httptest.NewRequest(http.MethodPost, base+"/bulk", nil))

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base+"/export?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "vlookup-results.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "employee_id,name,dept_code,department\n"))

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	req := httptest.NewRequest(http.MethodGet, base+"/export?format=csv", nil)
	req.Header.Set("If-None-Match", etag)
	rec = do(t, srv, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base+"/export?format=parquet", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PAR1")))

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base+"/export?format=xml", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBrowserForm_RedirectsWithNotice(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	base := workspace(t, srv)
	id := strings.TrimPrefix(base, "/api/sessions/")

	form := url.Values{"lookupColumn": {"dept_code"}, "matchColumn": {"code"}, "returnColumn": {"department"}}
	req := httptest.NewRequest(http.MethodPost, base+"/selection", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := do(t, srv, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/sessions/"+id, loc.Path)
	assert.Equal(t, "Column selection saved", loc.Query().Get("notice"))

	req = httptest.NewRequest(http.MethodPost, base+"/lookup", strings.NewReader(url.Values{"value": {""}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	rec = do(t, srv, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err = url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Contains(t, loc.Query().Get("error"), "VAL005")
}

func TestSuggest_NotConfigured(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	base := workspace(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, base+"/suggest", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPreviewTable(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	base := workspace(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, base+"/tables/A/preview", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "showing 2 of 3 rows")

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base+"/tables/A/preview?rows=10", nil))
	assert.Contains(t, rec.Body.String(), "showing 3 of 3 rows")
}

func TestPreviewTable_HTMXError(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/nope/tables/A/preview", nil)
	req.Header.Set("HX-Request", "true")
	rec := do(t, srv, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Workspace not found")
}

func TestDeleteSession(t *testing.T) {
	srv, svc := newTestServer(t, testConfig())
	id := svc.CreateSession().ID

	rec := do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, svc.SessionCount())

	rec = do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	srv, svc := newTestServer(t, testConfig())
	svc.CreateSession()

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Sessions)
	assert.False(t, resp.Suggestions)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, UploadLimit: 1}
	srv, _ := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	srv, _ := newTestServer(t, cfg)

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = do(t, srv, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
