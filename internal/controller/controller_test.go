package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingestion-gateway/internal/config"
	"ingestion-gateway/internal/database"
	"ingestion-gateway/internal/middleware"
	"ingestion-gateway/internal/service"
	"ingestion-gateway/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	CorrelationID string `json:"correlationId"`
}

type testServer struct {
	router    *gin.Engine
	outDir    string
	uploadDir string
	dataDir   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	connector, err := database.NewConnector(config.StoreConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "store.db"),
	})
	require.NoError(t, err)
	pool := database.NewConnectionPool(connector)
	t.Cleanup(func() { pool.CloseAll() })

	db, err := pool.Acquire(context.Background(), "")
	require.NoError(t, err)
	for _, stmt := range []string{
		"CREATE TABLE orders (id TEXT, total TEXT, cust_id TEXT)",
		"CREATE TABLE customers (id TEXT, name TEXT)",
		"INSERT INTO customers VALUES ('c1', 'Ada'), ('c2', 'Grace')",
		"INSERT INTO orders VALUES ('o1', '10', 'c1'), ('o2', '20', 'c2')",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	ts := &testServer{outDir: t.TempDir(), uploadDir: t.TempDir(), dataDir: t.TempDir()}
	svc := service.NewTransferService(pool, service.Settings{PreviewLimit: 1, OutputDir: ts.outDir}, nil)

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.GET("/health", NewHealthController(database.NewHealthChecker(pool), "test").HealthCheck)
	NewIngestionController(svc, storage.NewUploadStore(ts.uploadDir)).RegisterRoutes(router.Group("/ingestion"))
	ts.router = router
	return ts
}

func (ts *testServer) do(t *testing.T, method, target string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if s, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(s))
	} else if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func TestGetTables(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodGet, "/ingestion/tables", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tables []string
	require.NoError(t, json.Unmarshal(resp.Data, &tables))
	assert.ElementsMatch(t, []string{"orders", "customers"}, tables)
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestGetColumns(t *testing.T) {
	ts := newTestServer(t)
	csvPath := filepath.Join(ts.dataDir, "in.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n1,2\n"), 0o644))

	t.Run("store table", func(t *testing.T) {
		w, resp := ts.do(t, http.MethodGet, "/ingestion/columns?source=clickhouse&tableName=customers", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var cols []string
		require.NoError(t, json.Unmarshal(resp.Data, &cols))
		assert.Equal(t, []string{"id", "name"}, cols)
	})

	t.Run("flat file", func(t *testing.T) {
		w, resp := ts.do(t, http.MethodGet, "/ingestion/columns?source=flatfile&filePath="+csvPath, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var cols []string
		require.NoError(t, json.Unmarshal(resp.Data, &cols))
		assert.Equal(t, []string{"a", "b"}, cols)
	})

	t.Run("missing file", func(t *testing.T) {
		w, resp := ts.do(t, http.MethodGet, "/ingestion/columns?source=flatfile&filePath="+filepath.Join(ts.dataDir, "nope.csv"), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "NOT_FOUND", resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "Fetching columns failed:")
	})

	t.Run("unknown source", func(t *testing.T) {
		w, resp := ts.do(t, http.MethodGet, "/ingestion/columns?source=parquet", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
	})
}

func TestGetColumnsForTables(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodPost, "/ingestion/columns/multiple", []string{"orders", "customers"})
	require.Equal(t, http.StatusOK, w.Code)
	var byTable map[string][]string
	require.NoError(t, json.Unmarshal(resp.Data, &byTable))
	assert.Equal(t, []string{"id", "total", "cust_id"}, byTable["orders"])
	assert.Equal(t, []string{"id", "name"}, byTable["customers"])

	w, _ = ts.do(t, http.MethodPost, "/ingestion/columns/multiple", `{"not":"a list"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartIngestionExport(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]any{
		"source":    "clickhouse",
		"tableName": "orders",
		"filePath":  "out.csv",
		"columns":   []string{"orders.id", "customers.name"},
		"joinConditions": []map[string]string{{
			"joinType": "INNER", "mainTable": "orders", "mainColumn": "cust_id",
			"joinTable": "customers", "joinColumn": "id",
		}},
	}
	w, resp := ts.do(t, http.MethodPost, "/ingestion/start", body)
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	assert.Equal(t, "Ingestion completed. Records processed: 2", resp.Message)

	content, err := os.ReadFile(filepath.Join(ts.outDir, "out.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,name\no1,Ada\no2,Grace\n", string(content))
}

func TestStartIngestionImportFailures(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing file", func(t *testing.T) {
		w, resp := ts.do(t, http.MethodPost, "/ingestion/start", map[string]any{
			"source": "flatfile", "tableName": "t", "filePath": filepath.Join(ts.dataDir, "missing.csv"),
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		require.NotNil(t, resp.Error)
		assert.Contains(t, resp.Error.Message, "Ingestion failed:")
	})

	t.Run("header only", func(t *testing.T) {
		path := filepath.Join(ts.dataDir, "empty.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))
		w, resp := ts.do(t, http.MethodPost, "/ingestion/start", map[string]any{
			"source": "flatfile", "tableName": "t", "filePath": path,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "EMPTY_INPUT", resp.Error.Code)
	})

	t.Run("bad source", func(t *testing.T) {
		w, resp := ts.do(t, http.MethodPost, "/ingestion/start", map[string]any{
			"source": "parquet", "tableName": "t", "filePath": "x.csv",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w, _ := ts.do(t, http.MethodPost, "/ingestion/start", `{"source":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUploadThenImport(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "people.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("name,age\nAda,36\nAlan,41\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingestion/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var saved string
	require.NoError(t, json.Unmarshal(resp.Data, &saved))
	assert.Equal(t, filepath.Join(ts.uploadDir, "people.csv"), saved)

	w, resp = ts.do(t, http.MethodPost, "/ingestion/start", map[string]any{
		"source": "flatfile", "tableName": "people", "filePath": saved,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ingestion completed. Records processed: 2", resp.Message)

	w, resp = ts.do(t, http.MethodGet, "/ingestion/columns?source=clickhouse&tableName=people", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cols []string
	require.NoError(t, json.Unmarshal(resp.Data, &cols))
	assert.Equal(t, []string{"name", "age"}, cols)
}

func TestUploadWithoutFile(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingestion/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No file uploaded")
}

func TestPreviewData(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodPost, "/ingestion/preview", map[string]any{
		"source": "clickhouse", "tableName": "customers", "columns": []string{"id", "name"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var preview struct {
		Columns []string            `json:"columns"`
		Rows    []map[string]string `json:"rows"`
		Limit   int                 `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &preview))
	assert.Equal(t, []string{"id", "name"}, preview.Columns)
	assert.Len(t, preview.Rows, 1)
	assert.Equal(t, 1, preview.Limit)

	w, resp = ts.do(t, http.MethodPost, "/ingestion/preview", map[string]any{
		"source": "clickhouse", "tableName": "missing_table", "columns": []string{"id"},
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "QUERY_FAILED", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Preview failed:")
}

func TestGetStats(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/ingestion/start", map[string]any{
		"source": "clickhouse", "tableName": "orders", "filePath": "o.csv", "columns": []string{"id"},
	})

	w, resp := ts.do(t, http.MethodGet, "/ingestion/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats service.TransferStats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	export := stats.ByDirection["clickhouse_to_flatfile"]
	assert.Equal(t, int64(1), export.Succeeded)
	assert.Equal(t, int64(2), export.RowsMoved)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "sqlite", health.Store.Driver)
}

func TestBearerCredential(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerCredential(c))

	c.Request.Header.Set("Authorization", "Bearer  secret ")
	assert.Equal(t, "secret", bearerCredential(c))

	c.Request.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, bearerCredential(c))
}
