package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: narrative-workers
database:
  elasticsearch:
    addresses: ["http://localhost:9200"]
workers:
  analyze-query:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9200", cfg.Database.Elasticsearch.URL)
	assert.Equal(t, []string{BackendElasticsearch}, cfg.Retrieval.Backends)
	assert.Equal(t, 5000, cfg.Retrieval.Timeout)
	assert.Equal(t, 0.5, cfg.Intelligence.StoryConfidenceThreshold)
	assert.Equal(t, 2.0, cfg.Intelligence.AnomalyZThreshold)
	assert.Equal(t, 5, cfg.Intelligence.AnomalyMinPoints)
	assert.Equal(t, 1, cfg.Intelligence.ExpectedSources)
	assert.Equal(t, DispatcherNone, cfg.Render.Dispatcher)
	assert.Equal(t, ":8080", cfg.Server.Address)

	w := cfg.Workers["analyze-query"]
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_PG_HOST", "pg.internal")
	path := writeConfig(t, `
retrieval:
  backends: ["postgres"]
database:
  postgres:
    host: ${TEST_PG_HOST}
    database: narratives
    user: reader
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pg.internal", cfg.Database.Postgres.Host)
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "host=pg.internal port=5432")
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "elasticsearch backend without address",
			body:    "retrieval:\n  backends: [\"elasticsearch\"]\n",
			wantErr: "database.elasticsearch",
		},
		{
			name:    "unknown backend",
			body:    "retrieval:\n  backends: [\"mongo\"]\n",
			wantErr: "unknown backend",
		},
		{
			name:    "cache without redis",
			body:    "retrieval:\n  backends: [\"sqlite\"]\n  cache_enabled: true\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "nats without url",
			body:    "retrieval:\n  backends: [\"sqlite\"]\nrender:\n  dispatcher: nats\n",
			wantErr: "render.nats.url",
		},
		{
			name:    "threshold out of range",
			body:    "retrieval:\n  backends: [\"sqlite\"]\nintelligence:\n  story_confidence_threshold: 1.5\n",
			wantErr: "story_confidence_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "narrative.db", cfg.Database.SQLite.Path)
	assert.Equal(t, "configs/template-registry.json", cfg.Template.RegistryPath)
	assert.True(t, cfg.Retrieval.HasBackend(BackendElasticsearch))
	assert.False(t, cfg.Retrieval.HasBackend(BackendPostgres))
}

func TestWorkerConfigHelpers(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"generate-insight": {Enabled: false, Timeout: 1500},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "generate-insight"))
	assert.True(t, IsWorkerEnabled(cfg, "select-template"))
	assert.Equal(t, 1500*time.Millisecond, GetDuration(GetWorkerConfig(cfg, "generate-insight").Timeout))
	assert.Equal(t, 5, GetWorkerConfig(cfg, "missing").MaxJobsActive)
}
