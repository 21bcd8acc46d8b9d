package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"narrative-workers/internal/common/config"
	"narrative-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestServer(t *testing.T, checks map[string]Check) http.Handler {
	return NewOpsServer(config.ServerConfig{Address: ":0"}, checks, logger.NewTestLogger(t)).Handler()
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestOpsServer_Health(t *testing.T) {
	rec, body := get(t, createTestServer(t, nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestOpsServer_Ready(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		checks map[string]Check
		code   int
		status string
		detail map[string]interface{}
	}{
		{
			name:   "no checks",
			code:   http.StatusOK,
			status: "ready",
			detail: map[string]interface{}{},
		},
		{
			name:   "all pass",
			checks: map[string]Check{"zeebe": ok, "elasticsearch": ok},
			code:   http.StatusOK,
			status: "ready",
			detail: map[string]interface{}{"zeebe": "ok", "elasticsearch": "ok"},
		},
		{
			name:   "one fails",
			checks: map[string]Check{"zeebe": ok, "redis": down},
			code:   http.StatusServiceUnavailable,
			status: "not_ready",
			detail: map[string]interface{}{"zeebe": "ok", "redis": "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, createTestServer(t, tt.checks), "/ready")
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.status, body["status"])
			assert.Equal(t, tt.detail, body["checks"])
		})
	}
}

func TestOpsServer_Metrics(t *testing.T) {
	rec, _ := get(t, createTestServer(t, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestOpsServer_UnknownRoute(t *testing.T) {
	rec, _ := get(t, createTestServer(t, nil), "/v1/insights")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
