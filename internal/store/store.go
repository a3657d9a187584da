// Package store provides rule persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"pricewatch/internal/models"
)

// RuleStore is the durable mapping from rule id to AlertRule, scoped to one
// user/account namespace. Backends are interchangeable; the contract is the
// load/save/update semantics, not any specific schema.
type RuleStore interface {
	// List returns all rules for a scope in creation order. Fresh or missing
	// storage yields an empty slice, not an error.
	List(ctx context.Context, scope string) ([]models.AlertRule, error)
	// Save replaces the full rule set for a scope.
	Save(ctx context.Context, scope string, rules []models.AlertRule) error
	// Add inserts a single rule.
	Add(ctx context.Context, scope string, rule models.AlertRule) error
	// Remove deletes a rule by id. Missing rules report ErrRuleNotFound.
	Remove(ctx context.Context, scope, ruleID string) error
	// UpdateFields applies only the fields set in patch, leaving the rest of
	// the record untouched.
	UpdateFields(ctx context.Context, scope, ruleID string, patch RulePatch) error

	Close() error
}

// RulePatch carries a partial rule update. Nil fields are left as-is, so a
// last-fired timestamp can be written without clobbering a concurrent target
// edit (last-writer-wins per field).
type RulePatch struct {
	Target      *float64
	Direction   *models.Direction
	Enabled     *bool
	LastFiredAt *time.Time
}

// IsZero reports whether the patch carries no changes.
func (p RulePatch) IsZero() bool {
	return p.Target == nil && p.Direction == nil && p.Enabled == nil && p.LastFiredAt == nil
}

// HistoryStore is an append-only sink for firings.
type HistoryStore interface {
	RecordFiring(ctx context.Context, scope string, firing models.Firing) error
	// ListFirings returns the most recent firings, newest first.
	ListFirings(ctx context.Context, scope string, limit int) ([]models.Firing, error)
}
