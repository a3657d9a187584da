// Package store provides rule persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "pricewatch/internal/errors"
	"pricewatch/internal/models"
)

// SQLiteStore implements RuleStore and HistoryStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based rule store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Alert rules, one row per monitored condition
	CREATE TABLE IF NOT EXISTS alert_rules (
		id TEXT PRIMARY KEY,
		scope TEXT NOT NULL,
		symbol TEXT NOT NULL,
		target REAL NOT NULL,
		direction TEXT NOT NULL,
		enabled INTEGER DEFAULT 1,
		created_at DATETIME NOT NULL,
		last_fired_at DATETIME
	);

	-- Append-only record of every firing
	CREATE TABLE IF NOT EXISTS alert_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scope TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		price REAL NOT NULL,
		target REAL NOT NULL,
		direction TEXT NOT NULL,
		observed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_scope ON alert_rules(scope);
	CREATE INDEX IF NOT EXISTS idx_rules_symbol ON alert_rules(symbol);
	CREATE INDEX IF NOT EXISTS idx_history_scope ON alert_history(scope);
	CREATE INDEX IF NOT EXISTS idx_history_observed ON alert_history(observed_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// List returns all rules for a scope in creation order.
func (s *SQLiteStore) List(ctx context.Context, scope string) ([]models.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, target, direction, enabled, created_at, last_fired_at
		FROM alert_rules WHERE scope = ? ORDER BY created_at ASC, id ASC
	`, scope)
	if err != nil {
		return nil, apperrors.NewStorageError("list", scope, err)
	}
	defer rows.Close()

	rules := []models.AlertRule{}
	for rows.Next() {
		var r models.AlertRule
		var enabled int
		var lastFired sql.NullTime
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Target, &r.Direction, &enabled, &r.CreatedAt, &lastFired); err != nil {
			return nil, apperrors.NewStorageError("list", scope, err)
		}
		r.Enabled = enabled == 1
		if lastFired.Valid {
			t := lastFired.Time
			r.LastFiredAt = &t
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list", scope, err)
	}

	return rules, nil
}

// Save replaces the full rule set for a scope in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, scope string, rules []models.AlertRule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("save", scope, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM alert_rules WHERE scope = ?`, scope); err != nil {
		return apperrors.NewStorageError("save", scope, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO alert_rules (id, scope, symbol, target, direction, enabled, created_at, last_fired_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return apperrors.NewStorageError("save", scope, err)
	}
	defer stmt.Close()

	for _, r := range rules {
		if _, err := stmt.ExecContext(ctx, r.ID, scope, r.Symbol, r.Target, r.Direction, boolToInt(r.Enabled), r.CreatedAt, nullableTime(r.LastFiredAt)); err != nil {
			return apperrors.NewStorageError("save", scope, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("save", scope, err)
	}
	return nil
}

// Add inserts a single rule.
func (s *SQLiteStore) Add(ctx context.Context, scope string, rule models.AlertRule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_rules (id, scope, symbol, target, direction, enabled, created_at, last_fired_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rule.ID, scope, rule.Symbol, rule.Target, rule.Direction, boolToInt(rule.Enabled), rule.CreatedAt, nullableTime(rule.LastFiredAt))
	if err != nil {
		return apperrors.NewStorageError("add", scope, err)
	}
	return nil
}

// Remove deletes a rule by id.
func (s *SQLiteStore) Remove(ctx context.Context, scope, ruleID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM alert_rules WHERE scope = ? AND id = ?
	`, scope, ruleID)
	if err != nil {
		return apperrors.NewStorageError("remove", scope, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrRuleNotFound, ruleID)
	}
	return nil
}

// UpdateFields applies only the supplied fields.
func (s *SQLiteStore) UpdateFields(ctx context.Context, scope, ruleID string, patch RulePatch) error {
	if patch.IsZero() {
		return nil
	}

	sets := []string{}
	args := []interface{}{}
	if patch.Target != nil {
		sets = append(sets, "target = ?")
		args = append(args, *patch.Target)
	}
	if patch.Direction != nil {
		sets = append(sets, "direction = ?")
		args = append(args, *patch.Direction)
	}
	if patch.Enabled != nil {
		sets = append(sets, "enabled = ?")
		args = append(args, boolToInt(*patch.Enabled))
	}
	if patch.LastFiredAt != nil {
		sets = append(sets, "last_fired_at = ?")
		args = append(args, *patch.LastFiredAt)
	}
	args = append(args, scope, ruleID)

	query := "UPDATE alert_rules SET " + strings.Join(sets, ", ") + " WHERE scope = ? AND id = ?"
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewStorageError("update", scope, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrRuleNotFound, ruleID)
	}
	return nil
}

// RecordFiring appends a firing to the history table.
func (s *SQLiteStore) RecordFiring(ctx context.Context, scope string, firing models.Firing) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_history (scope, rule_id, symbol, price, target, direction, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, scope, firing.RuleID, firing.Symbol, firing.Price, firing.Target, firing.Direction, firing.ObservedAt)
	if err != nil {
		return apperrors.NewStorageError("history", scope, err)
	}
	return nil
}

// ListFirings returns the most recent firings, newest first.
func (s *SQLiteStore) ListFirings(ctx context.Context, scope string, limit int) ([]models.Firing, error) {
	query := `
		SELECT rule_id, symbol, price, target, direction, observed_at
		FROM alert_history WHERE scope = ? ORDER BY observed_at DESC, id DESC
	`
	args := []interface{}{scope}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError("history", scope, err)
	}
	defer rows.Close()

	var firings []models.Firing
	for rows.Next() {
		var f models.Firing
		if err := rows.Scan(&f.RuleID, &f.Symbol, &f.Price, &f.Target, &f.Direction, &f.ObservedAt); err != nil {
			return nil, apperrors.NewStorageError("history", scope, err)
		}
		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("history", scope, err)
	}

	return firings, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
