package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"narrative-workers/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newESServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestElasticsearch_PingAndEnsureIndex(t *testing.T) {
	var created int32
	srv := newESServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodHead && r.URL.Path == "/data_records":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && r.URL.Path == "/data_records":
			atomic.AddInt32(&created, 1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.EnsureIndex(context.Background(), "data_records", `{"mappings":{}}`))
	assert.Equal(t, int32(1), atomic.LoadInt32(&created))
}

func TestElasticsearch_PingError(t *testing.T) {
	srv := newESServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	assert.Error(t, client.Ping(context.Background()))
}

func TestRedis_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))

	_, err = NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestRedis_DeletePrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("narrative:records:a", "1"))
	require.NoError(t, mr.Set("narrative:records:b", "2"))
	require.NoError(t, mr.Set("other:c", "3"))

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr(), PoolSize: 4})
	require.NoError(t, err)
	defer client.Close()

	n, err := client.DeletePrefix(context.Background(), "narrative:records:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("narrative:records:a"))
	assert.True(t, mr.Exists("other:c"))

	_, err = client.DeletePrefix(context.Background(), "")
	assert.Error(t, err)
}

func TestSQLite_OpenAndPing(t *testing.T) {
	client, err := NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "records.db")})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))

	_, err = client.DB.Exec("CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)
}
