// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Retrieval    RetrievalConfig         `mapstructure:"retrieval"`
	Intelligence IntelligenceConfig      `mapstructure:"intelligence"`
	Template     TemplateConfig          `mapstructure:"template"`
	Render       RenderConfig            `mapstructure:"render"`
	APIs         APIsConfig              `mapstructure:"apis"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Server       ServerConfig            `mapstructure:"server"`
	Tracing      TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
	SQLite        SQLiteConfig        `mapstructure:"sqlite"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// SQLiteConfig points at the local record store used by narrative-cli.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Pipeline Configuration ---

// Retrieval backend names accepted in RetrievalConfig.Backends.
const (
	BackendElasticsearch = "elasticsearch"
	BackendPostgres      = "postgres"
	BackendSQLite        = "sqlite"
)

// RetrievalConfig selects and tunes the record stores behind the retriever.
type RetrievalConfig struct {
	Backends     []string `mapstructure:"backends"`
	Index        string   `mapstructure:"index"`
	Table        string   `mapstructure:"table"`
	Timeout      int      `mapstructure:"timeout"` // milliseconds
	MaxRecords   int      `mapstructure:"max_records"`
	CacheEnabled bool     `mapstructure:"cache_enabled"`
	CacheTTL     int      `mapstructure:"cache_ttl"` // seconds
	CachePrefix  string   `mapstructure:"cache_prefix"`
}

// IntelligenceConfig carries the detector and orchestrator thresholds.
type IntelligenceConfig struct {
	VocabularyPath           string  `mapstructure:"vocabulary_path"`
	StoryConfidenceThreshold float64 `mapstructure:"story_confidence_threshold"`
	ExpectedSources          int     `mapstructure:"expected_sources"`
	CompletenessFloor        float64 `mapstructure:"completeness_floor"`
	AnomalyZThreshold        float64 `mapstructure:"anomaly_z_threshold"`
	AnomalyMinPoints         int     `mapstructure:"anomaly_min_points"`
	MaxAnomaliesPerMetric    int     `mapstructure:"max_anomalies_per_metric"`
}

// TemplateConfig holds settings for the select-template and build-response workers.
type TemplateConfig struct {
	RegistryPath   string            `mapstructure:"registry_path"`
	SeparateImages bool              `mapstructure:"separate_images"`
	Overrides      map[string]string `mapstructure:"overrides"`
	CacheTTL       int               `mapstructure:"cache_ttl"` // seconds
}

// Render dispatcher names.
const (
	DispatcherNone = "none"
	DispatcherSNS  = "sns"
	DispatcherNATS = "nats"
)

// RenderConfig selects how render requests leave the process.
type RenderConfig struct {
	Dispatcher string     `mapstructure:"dispatcher"`
	SNS        SNSConfig  `mapstructure:"sns"`
	NATS       NATSConfig `mapstructure:"nats"`
}

type SNSConfig struct {
	Region   string `mapstructure:"region"`
	TopicARN string `mapstructure:"topic_arn"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI GenAIConfig `mapstructure:"genai"`
}

// GenAIConfig points at the domain classification service.
type GenAIConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig is the ops endpoint (/health, /ready, /metrics).
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// HasBackend reports whether name is listed in the retrieval backends.
func (r RetrievalConfig) HasBackend(name string) bool {
	for _, b := range r.Backends {
		if b == name {
			return true
		}
	}
	return false
}
