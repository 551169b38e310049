package domain

import "time"

// Config holds the complete ScamSniper configuration.
type Config struct {
	// Server settings
	Server ServerConfig `yaml:"server"`

	// Tier determines which storage, cache and bus backends are used
	Tier Tier `yaml:"tier"`

	// Component configurations
	Repository RepositoryConfig `yaml:"repository"`
	Cache      CacheConfig      `yaml:"cache"`
	EventBus   EventBusConfig   `yaml:"eventBus"`

	// Optional capabilities
	ML  MLConfig  `yaml:"ml"`
	OCR OCRConfig `yaml:"ocr"`

	// Access control
	Security SecurityConfig `yaml:"security"`

	// Observability
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`  // seconds
	WriteTimeout int    `yaml:"writeTimeout"` // seconds

	// MaxUploadBytes bounds multipart image uploads.
	MaxUploadBytes int64 `yaml:"maxUploadBytes"`
}

// MLConfig selects the ML classifier capability.
// ModelDir takes precedence over URL; with neither set the classifier is unavailable.
type MLConfig struct {
	// ModelDir holds model.onnx and vocab.txt for the local ONNX classifier.
	ModelDir string `yaml:"modelDir"`

	// SharedLibraryPath overrides the onnxruntime shared library location.
	SharedLibraryPath string `yaml:"sharedLibraryPath"`

	// MaxSequenceLength is the tokenizer window for the local model.
	MaxSequenceLength int `yaml:"maxSequenceLength"`

	// URL of a remote classifier accepting POST {"text": "..."}.
	URL string `yaml:"url"`

	Timeout time.Duration `yaml:"timeout"`
}

// OCRConfig selects the OCR capability. An empty URL means OCR is unavailable.
type OCRConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SecurityConfig holds admin auth and rate limiting settings.
type SecurityConfig struct {
	// AdminSecret signs HS256 admin bearer tokens. Empty disables admin auth.
	AdminSecret string `yaml:"adminSecret"`

	// RateLimit is the number of requests allowed per client per RateWindow. Zero disables limiting.
	RateLimit  int           `yaml:"rateLimit"`
	RateWindow time.Duration `yaml:"rateWindow"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + in-memory cache + channels
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + Redis + NATS
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			ReadTimeout:    30,
			WriteTimeout:   30,
			MaxUploadBytes: 10 << 20,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./scamsniper.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
			ClassifyTTL:  5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		ML: MLConfig{
			MaxSequenceLength: 128,
			Timeout:           2 * time.Second,
		},
		OCR: OCRConfig{
			Timeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			RateLimit:  120,
			RateWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "scamsniper",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "scamsniper",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
		ClassifyTTL:    5 * time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
