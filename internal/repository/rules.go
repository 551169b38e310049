package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// SaveRuleConfig inserts or replaces an operator rule.
func (r *SQLRepository) SaveRuleConfig(ctx context.Context, rule *domain.RuleConfig) error {
	if rule.ID == "" || rule.Expression == "" {
		return fmt.Errorf("%w: rule id and expression are required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}
	now := r.nowMillis()

	query := `
		INSERT INTO rule_configs (
			id, name, description, expression, reason, weight, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			reason = excluded.reason,
			weight = excluded.weight,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description, rule.Expression, rule.Reason,
		rule.Weight, enabled, now, now,
	)
	return err
}

// GetRuleConfig retrieves a rule by ID regardless of its enabled flag.
func (r *SQLRepository) GetRuleConfig(ctx context.Context, ruleID string) (*domain.RuleConfig, error) {
	query := `
		SELECT id, name, description, expression, reason, weight, enabled
		FROM rule_configs
		WHERE id = ?
	`

	cfg, err := scanRule(r.db.QueryRowContext(ctx, r.rebind(query), ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListRuleConfigs retrieves every stored rule ordered by ID.
func (r *SQLRepository) ListRuleConfigs(ctx context.Context) ([]*domain.RuleConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, expression, reason, weight, enabled
		FROM rule_configs
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := []*domain.RuleConfig{}
	for rows.Next() {
		cfg, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*domain.RuleConfig, error) {
	var cfg domain.RuleConfig
	var description, reason sql.NullString
	var enabled int

	if err := row.Scan(&cfg.ID, &cfg.Name, &description, &cfg.Expression, &reason, &cfg.Weight, &enabled); err != nil {
		return nil, err
	}
	cfg.Description = description.String
	cfg.Reason = reason.String
	cfg.Enabled = enabled == 1
	return &cfg, nil
}
