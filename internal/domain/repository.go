package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Reports
	SaveReport(ctx context.Context, r *Report) error
	ListReports(ctx context.Context) ([]*Report, error)
	ListReportsByCategory(ctx context.Context, category string) ([]*Report, error)

	// Feedback
	SaveFeedback(ctx context.Context, f *Feedback) error
	ListFeedback(ctx context.Context) ([]*Feedback, error)

	// Scan history. SaveScan reports false when an identical scan
	// (same input and timestamp) already exists.
	SaveScan(ctx context.Context, s *Scan) (bool, error)
	ListScans(ctx context.Context) ([]*Scan, error)

	// Support tickets
	SaveSupportTicket(ctx context.Context, t *SupportTicket) error
	ListSupportTickets(ctx context.Context) ([]*SupportTicket, error)

	// Settings
	GetSettings(ctx context.Context) (map[string]string, error)
	UpdateSetting(ctx context.Context, key, value string) error

	// Operator rule configuration
	SaveRuleConfig(ctx context.Context, rule *RuleConfig) error
	GetRuleConfig(ctx context.Context, ruleID string) (*RuleConfig, error)
	ListRuleConfigs(ctx context.Context) ([]*RuleConfig, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `yaml:"driver"`

	// SQLite specific
	SQLitePath string `yaml:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `yaml:"postgresHost"`
	PostgresPort     int    `yaml:"postgresPort"`
	PostgresUser     string `yaml:"postgresUser"`
	PostgresPassword string `yaml:"postgresPassword"`
	PostgresDB       string `yaml:"postgresDB"`
	PostgresSSLMode  string `yaml:"postgresSSLMode"`

	// Connection pool settings
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}
