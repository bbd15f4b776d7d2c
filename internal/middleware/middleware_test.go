package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genai-gallery/internal/logging"
	"genai-gallery/internal/metrics"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, logging.Init(logging.Config{Format: "json", Level: "info", Output: &buf}))
	t.Cleanup(func() { _ = logging.Init(logging.Config{}) })
	return &buf
}

func TestResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)
	assert.Equal(t, http.StatusOK, rw.statusCode)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusNotFound, rw.statusCode, "first WriteHeader wins")

	n, err := rw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, int64(5), rw.bytesWritten)
	assert.Equal(t, "hello", w.Body.String())
}

func TestLoggerWritesStructuredEvent(t *testing.T) {
	buf := captureLogs(t)

	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/images?q=fox%0Aevil", http.NoBody)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event), buf.String())
	assert.Equal(t, "http", event["component"])
	assert.Equal(t, "warn", event["level"])
	assert.Equal(t, "GET", event["method"])
	assert.Equal(t, "/api/images", event["path"])
	assert.Equal(t, "q=fox%0Aevil", event["query"])
	assert.Equal(t, "10.0.0.1", event["client_ip"])
	assert.Equal(t, "test-agent", event["user_agent"])
	assert.Equal(t, "-", event["referer"])
	assert.EqualValues(t, http.StatusTeapot, event["status"])
	assert.EqualValues(t, len("short and stout"), event["bytes"])
}

func TestLoggerSkips(t *testing.T) {
	tests := []struct {
		name    string
		config  LoggingConfig
		path    string
		skipped bool
	}{
		{"api logged", DefaultLoggingConfig(), "/api/images", false},
		{"static skipped by default", DefaultLoggingConfig(), "/images/a/b.png", true},
		{"static logged when enabled", LoggingConfig{StaticPrefix: "/images/", LogStaticFiles: true}, "/images/b.png", false},
		{"health logged by default", DefaultLoggingConfig(), "/health", false},
		{"health skipped when disabled", LoggingConfig{LogHealthChecks: false}, "/readyz", true},
		{"explicit skip path", LoggingConfig{SkipPaths: []string{"/metrics"}, LogHealthChecks: true}, "/metrics", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.skipped, shouldSkip(tt.path, tt.config))
		})
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := map[string]string{
		"plain":              "plain",
		"line\nbreak":        "line break",
		"cr\rlf":             "cr lf",
		"nul\x00byte":        "nulbyte",
		"\x1b[31mred":        "[31mred",
		"tab\tkept":          "tab\tkept",
		"bell\x07":           "bell",
		"unicode ✓ survives": "unicode ✓ survives",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeLogField(in), "input %q", in)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = "192.168.1.5:54321"
	assert.Equal(t, "192.168.1.5", getClientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.9")
	assert.Equal(t, "172.16.0.9", getClientIP(req))

	req.Header.Set("X-Forwarded-For", " 10.1.1.1 ")
	assert.Equal(t, "10.1.1.1", getClientIP(req))
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/":                        "/",
		"/api/images":              "/api/images",
		"/api/images/abc123":       "/api/images/{path}",
		"/images/a/b/c/d.png":      "/images/a/{path}",
		"/unknown/deep/route/here": "/unknown/deep/{path}",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizePath(in), "input %q", in)
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Metrics(DefaultMetricsConfig()))
	router.HandleFunc("/api/images/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/images/{id}", "404")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"aaa", "bbb"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/images/"+id, http.NoBody))
	}

	assert.InDelta(t, before+2, testutil.ToFloat64(counter), 0.001)
}

func TestMetricsSkipPaths(t *testing.T) {
	called := false
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/metrics", "200")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.True(t, called)
	assert.InDelta(t, before, testutil.ToFloat64(counter), 0.001)
}

func TestMetricsResponseWriterStatus(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newMetricsResponseWriter(w)
	assert.Equal(t, http.StatusOK, rw.statusCode)

	rw.WriteHeader(http.StatusCreated)
	assert.Equal(t, http.StatusCreated, rw.statusCode)
	assert.Equal(t, http.StatusCreated, w.Code)
}
