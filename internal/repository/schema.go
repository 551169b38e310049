package repository

// Schema definitions for the ScamSniper database.
// Compatible with both SQLite and PostgreSQL. Timestamps are unix milliseconds.

const schemaReports = `
CREATE TABLE IF NOT EXISTS reports (
    id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    category TEXT NOT NULL,
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_category ON reports(category);
CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
`

const schemaFeedback = `
CREATE TABLE IF NOT EXISTS feedback (
    id TEXT PRIMARY KEY,
    message TEXT NOT NULL,
    timestamp BIGINT NOT NULL
);
`

const schemaScans = `
CREATE TABLE IF NOT EXISTS scans (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    input TEXT NOT NULL,
    verdict TEXT NOT NULL,
    score INTEGER NOT NULL,
    timestamp BIGINT NOT NULL,
    UNIQUE (input, timestamp)
);

CREATE INDEX IF NOT EXISTS idx_scans_timestamp ON scans(timestamp);
`

const schemaSupportTickets = `
CREATE TABLE IF NOT EXISTS support_tickets (
    id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    filename TEXT,
    timestamp BIGINT NOT NULL
);
`

const schemaSettings = `
CREATE TABLE IF NOT EXISTS settings (
    name TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const schemaRuleConfigs = `
CREATE TABLE IF NOT EXISTS rule_configs (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    reason TEXT,
    weight INTEGER NOT NULL DEFAULT 0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rule_configs_enabled ON rule_configs(enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaReports,
		schemaFeedback,
		schemaScans,
		schemaSupportTickets,
		schemaSettings,
		schemaRuleConfigs,
	}
}
