// Package models defines the core data types for price alerts.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "pricewatch/internal/errors"
)

// Direction is the side of the threshold a rule watches.
type Direction string

const (
	// DirectionAbove fires when the price is at or above the target.
	DirectionAbove Direction = "above"
	// DirectionBelow fires when the price is at or below the target.
	DirectionBelow Direction = "below"
)

// ParseDirection parses a user-supplied direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionAbove:
		return DirectionAbove, nil
	case DirectionBelow:
		return DirectionBelow, nil
	default:
		return "", apperrors.NewValidationError("direction", s, "must be 'above' or 'below'")
	}
}

// AlertRule is one monitored price condition.
type AlertRule struct {
	ID          string     `json:"id"`
	Symbol      string     `json:"symbol"`
	Target      float64    `json:"target"`
	Direction   Direction  `json:"direction"`
	Enabled     bool       `json:"enabled"`
	CreatedAt   time.Time  `json:"created_at"`
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`
}

// NewAlertRule builds a validated rule with a fresh ID.
// The symbol is normalized to upper case.
func NewAlertRule(symbol string, target float64, direction Direction) (AlertRule, error) {
	rule := AlertRule{
		ID:        uuid.NewString(),
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Target:    target,
		Direction: direction,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
	if err := rule.Validate(); err != nil {
		return AlertRule{}, err
	}
	return rule, nil
}

// Validate checks the rule invariants. Invalid rules are rejected at
// construction time and never reach the store.
func (r AlertRule) Validate() error {
	if r.ID == "" {
		return apperrors.NewValidationError("id", r.ID, "must not be empty")
	}
	if r.Symbol == "" {
		return apperrors.NewValidationError("symbol", r.Symbol, "must not be empty")
	}
	if r.Target <= 0 {
		return apperrors.NewValidationError("target", r.Target, "must be greater than zero")
	}
	if r.Direction != DirectionAbove && r.Direction != DirectionBelow {
		return apperrors.NewValidationError("direction", string(r.Direction), "must be 'above' or 'below'")
	}
	return nil
}

// Crossed reports whether the given price satisfies the rule's threshold.
// Equality fires in both directions.
func (r AlertRule) Crossed(price float64) bool {
	switch r.Direction {
	case DirectionAbove:
		return price >= r.Target
	case DirectionBelow:
		return price <= r.Target
	default:
		return false
	}
}

// Firing records a single rule crossing its threshold at evaluation time.
// It is ephemeral: dispatched to notification channels and appended to the
// history sink, never mutated afterwards.
type Firing struct {
	RuleID     string    `json:"rule_id"`
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Target     float64   `json:"target"`
	Direction  Direction `json:"direction"`
	ObservedAt time.Time `json:"observed_at"`
}
