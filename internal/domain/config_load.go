package domain

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadConfig.
const (
	EnvConfigPath   = "SCAMSNIPER_CONFIG"
	EnvTier         = "SCAMSNIPER_TIER"
	EnvPort         = "SCAMSNIPER_PORT"
	EnvDebug        = "SCAMSNIPER_DEBUG"
	EnvLogFormat    = "SCAMSNIPER_LOG_FORMAT"
	EnvMLURL        = "SCAMSNIPER_ML_URL"
	EnvMLModelDir   = "SCAMSNIPER_ML_MODEL_DIR"
	EnvOCRURL       = "SCAMSNIPER_OCR_URL"
	EnvAdminSecret  = "SCAMSNIPER_ADMIN_SECRET"
	EnvBus          = "SCAMSNIPER_BUS"
	EnvKafkaBrokers = "SCAMSNIPER_KAFKA_BROKERS"
	EnvSQLitePath   = "SCAMSNIPER_SQLITE_PATH"
	EnvPostgresHost = "SCAMSNIPER_POSTGRES_HOST"
	EnvRedisAddr    = "SCAMSNIPER_REDIS_ADDR"
	EnvNATSUrl      = "SCAMSNIPER_NATS_URL"
)

// DefaultConfigPath is used when SCAMSNIPER_CONFIG is unset.
const DefaultConfigPath = "./scamsniper.yaml"

// LoadConfig builds the configuration from tier defaults, an optional YAML
// file and environment overrides, in that order.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if Tier(os.Getenv(EnvTier)) == TierPro {
		cfg = ProConfig()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.Server.Port = port
	}
	if os.Getenv(EnvDebug) == "true" {
		cfg.Logging.Level = "debug"
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(EnvMLURL); v != "" {
		cfg.ML.URL = v
	}
	if v := os.Getenv(EnvMLModelDir); v != "" {
		cfg.ML.ModelDir = v
	}
	if v := os.Getenv(EnvOCRURL); v != "" {
		cfg.OCR.URL = v
	}
	if v := os.Getenv(EnvAdminSecret); v != "" {
		cfg.Security.AdminSecret = v
	}
	if v := os.Getenv(EnvBus); v != "" {
		cfg.EventBus.Type = v
	}
	if v := os.Getenv(EnvKafkaBrokers); v != "" {
		cfg.EventBus.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv(EnvSQLitePath); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv(EnvPostgresHost); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv(EnvNATSUrl); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
