// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, overlays config.<APP_ENVIRONMENT>.yaml and
// applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

// Defaults returns a configuration with every default applied and no file
// or environment input. narrative-cli uses it when no config is present.
func Defaults() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found walking from the working directory
// to the module root.
func loadEnvFile() string {
	possiblePaths := []string{".env", "../.env", "../../.env", "../../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are commonly provided as bare env vars.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty := func(dst *string, env string) {
		if *dst != "" {
			return
		}
		if val := os.Getenv(env); val != "" {
			*dst = val
		}
	}

	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
	setIfEmpty(&cfg.Database.Elasticsearch.Password, "ELASTICSEARCH_PASSWORD")
	setIfEmpty(&cfg.APIs.GenAI.APIKey, "GENAI_API_KEY")
	setIfEmpty(&cfg.Render.SNS.Region, "AWS_REGION")
	setIfEmpty(&cfg.Render.SNS.TopicARN, "RENDER_TOPIC_ARN")
	setIfEmpty(&cfg.Tracing.JaegerEndpoint, "JAEGER_ENDPOINT")
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "narrative-workers"
	}

	if cfg.Camunda.BrokerAddress == "" {
		cfg.Camunda.BrokerAddress = "localhost:26500"
	}
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "narrative.db"
	}

	if len(cfg.Retrieval.Backends) == 0 {
		cfg.Retrieval.Backends = []string{BackendElasticsearch}
	}
	if cfg.Retrieval.Index == "" {
		cfg.Retrieval.Index = "data_records"
	}
	if cfg.Retrieval.Table == "" {
		cfg.Retrieval.Table = "data_records"
	}
	if cfg.Retrieval.Timeout == 0 {
		cfg.Retrieval.Timeout = 5000
	}
	if cfg.Retrieval.MaxRecords == 0 {
		cfg.Retrieval.MaxRecords = 500
	}
	if cfg.Retrieval.CacheTTL == 0 {
		cfg.Retrieval.CacheTTL = 300
	}
	if cfg.Retrieval.CachePrefix == "" {
		cfg.Retrieval.CachePrefix = "records:"
	}

	if cfg.Intelligence.StoryConfidenceThreshold == 0 {
		cfg.Intelligence.StoryConfidenceThreshold = 0.5
	}
	if cfg.Intelligence.ExpectedSources == 0 {
		cfg.Intelligence.ExpectedSources = 1
	}
	if cfg.Intelligence.CompletenessFloor == 0 {
		cfg.Intelligence.CompletenessFloor = 0.3
	}
	if cfg.Intelligence.AnomalyZThreshold == 0 {
		cfg.Intelligence.AnomalyZThreshold = 2.0
	}
	if cfg.Intelligence.AnomalyMinPoints == 0 {
		cfg.Intelligence.AnomalyMinPoints = 5
	}
	if cfg.Intelligence.MaxAnomaliesPerMetric == 0 {
		cfg.Intelligence.MaxAnomaliesPerMetric = 3
	}

	if cfg.Template.RegistryPath == "" {
		cfg.Template.RegistryPath = "configs/template-registry.json"
	}
	if cfg.Template.CacheTTL == 0 {
		cfg.Template.CacheTTL = 300
	}

	if cfg.Render.Dispatcher == "" {
		cfg.Render.Dispatcher = DispatcherNone
	}
	if cfg.Render.NATS.Subject == "" {
		cfg.Render.NATS.Subject = "render.requests"
	}

	if cfg.APIs.GenAI.Timeout == 0 {
		cfg.APIs.GenAI.Timeout = 3000
	}
	if cfg.APIs.GenAI.MaxRetries == 0 {
		cfg.APIs.GenAI.MaxRetries = 2
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig checks the fields required by the selected backends.
func validateConfig(cfg *Config) error {
	for _, b := range cfg.Retrieval.Backends {
		switch b {
		case BackendElasticsearch:
			if cfg.Database.Elasticsearch.GetURL() == "" {
				return fmt.Errorf("database.elasticsearch.addresses or url is required for the elasticsearch backend")
			}
		case BackendPostgres:
			if cfg.Database.Postgres.Host == "" {
				return fmt.Errorf("database.postgres.host is required for the postgres backend")
			}
			if cfg.Database.Postgres.Database == "" {
				return fmt.Errorf("database.postgres.database is required for the postgres backend")
			}
		case BackendSQLite:
		default:
			return fmt.Errorf("retrieval.backends: unknown backend %q", b)
		}
	}

	if cfg.Retrieval.CacheEnabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when retrieval.cache_enabled is set")
	}

	switch cfg.Render.Dispatcher {
	case DispatcherNone:
	case DispatcherSNS:
		if cfg.Render.SNS.TopicARN == "" {
			return fmt.Errorf("render.sns.topic_arn is required for the sns dispatcher")
		}
	case DispatcherNATS:
		if cfg.Render.NATS.URL == "" {
			return fmt.Errorf("render.nats.url is required for the nats dispatcher")
		}
	default:
		return fmt.Errorf("render.dispatcher: unknown dispatcher %q", cfg.Render.Dispatcher)
	}

	if t := cfg.Intelligence.StoryConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("intelligence.story_confidence_threshold must be within [0,1], got %v", t)
	}
	if f := cfg.Intelligence.CompletenessFloor; f < 0 || f > 1 {
		return fmt.Errorf("intelligence.completeness_floor must be within [0,1], got %v", f)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
