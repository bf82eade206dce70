package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("record not found")

// Store provides SQLite-backed persistence for rules, campaigns, metric
// samples, executions, alerts and schedules.
type Store struct {
	logger *zap.Logger
	db     *sql.DB
}

// Open opens (or creates) the database at dbPath and ensures the schema
func Open(logger *zap.Logger, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		logger: logger.Named("storage"),
		db:     db,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initialize creates the necessary tables if they don't exist
func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS acos_rules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			threshold_type TEXT NOT NULL,
			threshold_value REAL NOT NULL,
			window_hours INTEGER NOT NULL,
			action_type TEXT NOT NULL,
			action_config TEXT,
			campaign_ids TEXT,
			categories TEXT,
			minimum_spend REAL NOT NULL DEFAULT 0,
			created_by TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS campaigns (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			max_bid REAL NOT NULL DEFAULT 0,
			daily_budget REAL NOT NULL DEFAULT 0,
			categories TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status);
		CREATE TABLE IF NOT EXISTS metric_samples (
			id TEXT PRIMARY KEY,
			campaign_id TEXT NOT NULL,
			date DATETIME NOT NULL,
			cost REAL NOT NULL DEFAULT 0,
			revenue REAL NOT NULL DEFAULT 0,
			clicks INTEGER NOT NULL DEFAULT 0,
			impressions INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_metric_samples_campaign ON metric_samples(campaign_id, date);
		CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			rule_id TEXT NOT NULL,
			campaign_id TEXT NOT NULL,
			acos REAL NOT NULL,
			threshold REAL NOT NULL,
			action_type TEXT NOT NULL,
			result TEXT,
			status TEXT NOT NULL,
			error TEXT,
			executed_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_executions_rule ON executions(rule_id);
		CREATE INDEX IF NOT EXISTS idx_executions_campaign ON executions(campaign_id);
		CREATE TABLE IF NOT EXISTS alert_rules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			campaign_id TEXT,
			metric TEXT NOT NULL,
			operator TEXT NOT NULL,
			threshold REAL NOT NULL,
			severity TEXT NOT NULL,
			cooldown_minutes INTEGER NOT NULL DEFAULT 0,
			last_triggered DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			rule_id TEXT,
			campaign_id TEXT,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			data TEXT,
			created_at DATETIME NOT NULL,
			resolved_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at);
		CREATE TABLE IF NOT EXISTS campaign_schedules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			campaign_id TEXT NOT NULL,
			expression TEXT NOT NULL,
			action TEXT NOT NULL,
			budget REAL NOT NULL DEFAULT 0,
			last_run_time DATETIME,
			next_run_time DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
