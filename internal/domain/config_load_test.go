package domain

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Tier != TierCommunity {
		t.Errorf("expected community tier, got %s", cfg.Tier)
	}
	if cfg.Repository.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.Repository.Driver)
	}
	if cfg.Cache.ClassifyTTL != 5*time.Minute {
		t.Errorf("expected 5m classify TTL, got %v", cfg.Cache.ClassifyTTL)
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scamsniper.yaml")
	data := `
server:
  port: 9100
ocr:
  url: http://ocr.local/extract
  timeout: 3s
security:
  rateLimit: 10
  rateWindow: 30s
logging:
  format: text
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvPort, "9200")
	t.Setenv(EnvKafkaBrokers, "k1:9092, k2:9092,")
	t.Setenv(EnvBus, "kafka")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 9200 {
		t.Errorf("env should override file port, got %d", cfg.Server.Port)
	}
	if cfg.OCR.URL != "http://ocr.local/extract" || cfg.OCR.Timeout != 3*time.Second {
		t.Errorf("unexpected OCR config: %+v", cfg.OCR)
	}
	if cfg.Security.RateLimit != 10 || cfg.Security.RateWindow != 30*time.Second {
		t.Errorf("unexpected security config: %+v", cfg.Security)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected text log format, got %s", cfg.Logging.Format)
	}
	if cfg.EventBus.Type != "kafka" {
		t.Errorf("expected kafka bus, got %s", cfg.EventBus.Type)
	}
	if len(cfg.EventBus.KafkaBrokers) != 2 || cfg.EventBus.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.EventBus.KafkaBrokers)
	}
	// untouched defaults survive the partial file
	if cfg.Server.ReadTimeout != 30 {
		t.Errorf("expected default read timeout, got %d", cfg.Server.ReadTimeout)
	}
}

func TestLoadConfig_ProTierFromEnv(t *testing.T) {
	t.Setenv(EnvTier, string(TierPro))

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Repository.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %s", cfg.Repository.Driver)
	}
	if cfg.EventBus.Type != "nats" {
		t.Errorf("expected nats bus, got %s", cfg.EventBus.Type)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid port", func(t *testing.T) {
		t.Setenv(EnvPort, "eighty")
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected port error")
		}
	})
}
