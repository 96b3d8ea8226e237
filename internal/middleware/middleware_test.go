package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"intentlink/internal/logging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logging.Logger {
	logger, err := logging.NewLogger(logging.Options{Level: "error"})
	require.NoError(t, err)
	return logger
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(logging.RequestIDKey).(string)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestViewerIssuesCookie(t *testing.T) {
	var seen string
	h := Viewer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ViewerID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, ViewerCookie, cookies[0].Name)
	assert.Equal(t, seen, cookies[0].Value)
}

func TestViewerReusesCookie(t *testing.T) {
	id := uuid.New().String()
	var seen string
	h := Viewer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ViewerID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ViewerCookie, Value: id})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, id, seen)
	assert.Empty(t, rec.Result().Cookies())
}

func TestViewerReplacesGarbageCookie(t *testing.T) {
	var seen string
	h := Viewer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ViewerID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ViewerCookie, Value: "../../etc"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEqual(t, "../../etc", seen)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestRecover(t *testing.T) {
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }),
		Recover(testLogger(t)),
		RequestID,
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggerKeepsStatus(t *testing.T) {
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }),
		Logger(testLogger(t)),
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLoggerRecordsRequestAndViewer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	logger, err := logging.NewLogger(logging.Options{Level: "info", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	id := uuid.New().String()
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "hello") }),
		Logger(logger),
		Viewer,
		RequestID,
	)

	req := httptest.NewRequest(http.MethodGet, "/i/abc", nil)
	req.AddCookie(&http.Cookie{Name: ViewerCookie, Value: id})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, `"msg":"request completed"`)
	assert.Contains(t, line, `"viewer":"`+id+`"`)
	assert.Contains(t, line, `"request_id":"`+rec.Header().Get("X-Request-ID")+`"`)
	assert.Contains(t, line, `"bytes":5`)
	assert.Contains(t, line, `"path":"/i/abc"`)
}

func TestCompress(t *testing.T) {
	body := strings.Repeat("intention ", 1000)
	h := Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, body)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}
