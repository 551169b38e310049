// ScamSniper - scam and fraud risk scoring for text, links, email,
// receipts and transactions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/opensource-finance/scamsniper/internal/api"
	"github.com/opensource-finance/scamsniper/internal/bus"
	"github.com/opensource-finance/scamsniper/internal/cache"
	"github.com/opensource-finance/scamsniper/internal/domain"
	"github.com/opensource-finance/scamsniper/internal/metrics"
	"github.com/opensource-finance/scamsniper/internal/ml"
	"github.com/opensource-finance/scamsniper/internal/ocr"
	"github.com/opensource-finance/scamsniper/internal/repository"
	"github.com/opensource-finance/scamsniper/internal/rules"
	"github.com/opensource-finance/scamsniper/internal/scoring"
	"github.com/opensource-finance/scamsniper/internal/velocity"
	"github.com/opensource-finance/scamsniper/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	adminSubject := flag.String("issue-admin-token", "", "Print an admin bearer token for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the token printed by -issue-admin-token")
	flag.Parse()

	configPath := os.Getenv(domain.EnvConfigPath)
	if configPath == "" {
		configPath = domain.DefaultConfigPath
	}

	cfg, err := domain.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *adminSubject != "" {
		token, err := issueAdminToken(cfg.Security, *adminSubject, *tokenTTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to issue admin token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	slog.SetDefault(newLogger(cfg.Logging))

	slog.Info("starting scamsniper",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"path", configPath,
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	if !cfg.Tracing.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
	} else {
		slog.Info("tracing enabled", "service", cfg.Tracing.ServiceName)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	engine, err := rules.NewEngine(20)
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := loadRulesFromDatabase(ctx, repo, engine); err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	// Optional capabilities are resolved once and shared by every request.
	classifier := ml.New(cfg.ML)
	if c, ok := classifier.(*ml.ONNXClassifier); ok {
		defer c.Close()
	}
	extractor := ocr.New(cfg.OCR)
	slog.Info("capabilities resolved",
		"ml_available", classifier.Available(),
		"ocr_available", extractor.Available(),
	)

	m := metrics.New()

	scorer := scoring.NewService(scoring.Options{
		Rules:       engine,
		ML:          classifier,
		OCR:         extractor,
		Cache:       cacheImpl,
		ClassifyTTL: cfg.Cache.ClassifyTTL,
		Bus:         busImpl,
		Metrics:     m,
	})

	// Scan history is recorded from completed-scan events.
	scanWorker := worker.NewWorker(busImpl, repo)
	if err := scanWorker.Start(); err != nil {
		slog.Error("failed to start scan worker", "error", err)
		os.Exit(1)
	}

	srv := api.NewServer(cfg.Server, api.Deps{
		Scoring:  scorer,
		Repo:     repo,
		Cache:    cacheImpl,
		Bus:      busImpl,
		Rules:    engine,
		Limiter:  velocity.NewLimiter(cacheImpl, cfg.Security.RateLimit, cfg.Security.RateWindow),
		Metrics:  m,
		Security: cfg.Security,
		Version:  Version,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("scamsniper is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"admin_auth", cfg.Security.AdminSecret != "",
		"rate_limit", cfg.Security.RateLimit,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop the worker after the server so in-flight scans are still recorded
	if err := scanWorker.Stop(); err != nil {
		slog.Error("failed to stop scan worker", "error", err)
	}

	stats := scanWorker.GetStats()
	slog.Info("scamsniper shutdown complete",
		"scans_recorded", stats.Recorded,
		"scans_duplicate", stats.Duplicates,
		"scans_failed", stats.Failed,
	)
}

// newLogger builds the process logger from config.
func newLogger(cfg domain.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// issueAdminToken signs a token accepted by the admin routes of a server
// running with the same admin secret.
func issueAdminToken(cfg domain.SecurityConfig, subject string, ttl time.Duration) (string, error) {
	if cfg.AdminSecret == "" {
		return "", errors.New("admin secret is not configured (set " + domain.EnvAdminSecret + ")")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive, got %v", ttl)
	}
	return api.IssueAdminToken(cfg.AdminSecret, subject, ttl)
}

// loadRulesFromDatabase loads operator rules into the engine.
// Rules are configured via POST /api/rules; there are no built-in defaults.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *rules.Engine) error {
	dbRules, err := repo.ListRuleConfigs(ctx)
	if err != nil {
		slog.Warn("failed to list rules from database", "error", err)
		return nil
	}

	if len(dbRules) > 0 {
		slog.Info("loading rules from database", "count", len(dbRules))
		return engine.LoadRules(dbRules)
	}

	slog.Info("no rules in database - configure via POST /api/rules")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ScamSniper - scam risk scoring")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /api/classify                - Score text and an optional URL")
	fmt.Println("    POST /api/email/check             - Score an email")
	fmt.Println("    POST /api/ocr/scan                - Score text read from an image")
	fmt.Println("    POST /api/transaction/validate    - Validate a transaction record")
	fmt.Println("    POST /api/transaction/check-image - Check a receipt image")
	fmt.Println("    POST /api/report                  - Report a scam")
	fmt.Println("    GET  /api/rules                   - List operator rules")
	fmt.Println("    POST /api/rules/reload            - Hot-reload rules from database")
	fmt.Println("    GET  /health                      - Health check")
	fmt.Println("    GET  /metrics                     - Prometheus metrics")
	fmt.Println()
}
