package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/roadreport-upload/internal/api/middleware"
	"github.com/andresuchdata/roadreport-upload/internal/audit"
	"github.com/andresuchdata/roadreport-upload/internal/config"
	"github.com/andresuchdata/roadreport-upload/internal/credentials"
	"github.com/andresuchdata/roadreport-upload/internal/domain"
	"github.com/andresuchdata/roadreport-upload/internal/metrics"
	"github.com/andresuchdata/roadreport-upload/internal/pipeline"
	"github.com/andresuchdata/roadreport-upload/internal/storage"
	"github.com/andresuchdata/roadreport-upload/internal/token"
	"github.com/andresuchdata/roadreport-upload/internal/upload"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRunner struct {
	calls   int
	outcome *pipeline.Outcome
}

func (s *stubRunner) Run(context.Context, *http.Request) *pipeline.Outcome {
	s.calls++
	return s.outcome
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func assertCORS(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestPreflightWithoutConfiguration(t *testing.T) {
	for _, router := range []*gin.Engine{NewRouter(nil), NewRouter(&Services{Uploads: &stubRunner{}})} {
		for _, path := range []string{UploadPath, UploadAliasPath, "/anything"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, path, nil))

			assert.Equal(t, http.StatusOK, w.Code, path)
			assert.Empty(t, w.Body.String(), path)
			assertCORS(t, w)
		}
	}
}

func TestUploadSuccessResponse(t *testing.T) {
	runner := &stubRunner{outcome: &pipeline.Outcome{
		State: pipeline.StateDone,
		Result: &domain.UploadResult{
			URL: "https://storage.googleapis.com/pothole-images/reports/a.jpg",
			Key: "reports/a.jpg",
		},
		AuditErr: domain.NewError(domain.KindAuditPersistFailure, "Failed to log upload", nil),
	}}
	router := NewRouter(&Services{Uploads: runner})

	for _, path := range []string{UploadPath, UploadAliasPath} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assertCORS(t, w)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		assert.Equal(t, map[string]interface{}{
			"success":  true,
			"url":      "https://storage.googleapis.com/pothole-images/reports/a.jpg",
			"filename": "reports/a.jpg",
		}, decode(t, w))
	}
	assert.Equal(t, 2, runner.calls)
}

func TestUploadFailureResponse(t *testing.T) {
	runner := &stubRunner{outcome: &pipeline.Outcome{
		State:    pipeline.StateFailed,
		FailedAt: pipeline.StateMinting,
		Err:      domain.NewHTTPError(domain.KindTokenExchangeFailed, "Failed to get access token", 401, `{"error":"invalid_grant"}`),
	}}
	router := NewRouter(&Services{Uploads: runner})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, UploadPath, nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to get access token: 401", body["error"])
	assert.NotContains(t, w.Body.String(), "invalid_grant")
}

func TestRequestIDIsPropagated(t *testing.T) {
	router := NewRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, map[string]interface{}{"status": "ok"}, decode(t, w))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	m.RecordUpload("success", 10)

	router := NewRouter(&Services{Gatherer: reg})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `roadreport_upload_uploads_total{outcome="success"} 1`)
}

func TestRecoveryReturnsJSON(t *testing.T) {
	router := NewRouter(nil)
	router.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func newUnconfiguredRouter() *gin.Engine {
	cfg := config.GCSConfig{
		StorageBaseURL: config.DefaultStorageBaseURL,
		UploadBaseURL:  config.DefaultUploadBaseURL,
	}
	orch := pipeline.NewOrchestrator(
		upload.NewParser(),
		credentials.NewLoader(cfg),
		token.NewMinter(),
		storage.NewMediaUploader(cfg, nil),
		audit.Noop(),
	)
	return NewRouter(&Services{Uploads: orch})
}

func TestUnconfiguredServerReportsMissingConfiguration(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "a.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("filename", "reports/a.jpg"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, UploadPath, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	newUnconfiguredRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]interface{}{
		"success": false,
		"error":   "Missing Google Cloud configuration",
	}, decode(t, w))
}

func TestMissingFileResponse(t *testing.T) {
	w := httptest.NewRecorder()
	newUnconfiguredRouter().ServeHTTP(w, httptest.NewRequest(http.MethodPost, UploadPath, nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]interface{}{
		"success": false,
		"error":   "No file provided",
	}, decode(t, w))
}
