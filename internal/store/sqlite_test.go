package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pricewatch/internal/errors"
	"pricewatch/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_FirstRunIsEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)

	rules, err := s.List(context.Background(), "default")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestSQLiteStore_AddRemove(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rule := testRule(t, "AAPL", 230, models.DirectionAbove)
	require.NoError(t, s.Add(ctx, "default", rule))

	rules, err := s.List(ctx, "default")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, rule.ID, rules[0].ID)
	assert.Equal(t, "AAPL", rules[0].Symbol)

	require.NoError(t, s.Remove(ctx, "default", rule.ID))

	rules, err = s.List(ctx, "default")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestSQLiteStore_RemoveMissingRule(t *testing.T) {
	s := newTestSQLiteStore(t)

	err := s.Remove(context.Background(), "default", "no-such-id")
	assert.ErrorIs(t, err, apperrors.ErrRuleNotFound)
}

func TestSQLiteStore_ScopesAreIsolated(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rule := testRule(t, "AAPL", 230, models.DirectionAbove)
	require.NoError(t, s.Add(ctx, "alice", rule))

	rules, err := s.List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, rules)

	// Removing through the wrong scope must not touch the rule.
	err = s.Remove(ctx, "bob", rule.ID)
	assert.ErrorIs(t, err, apperrors.ErrRuleNotFound)

	rules, err = s.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestSQLiteStore_UpdateFields(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rule := testRule(t, "AAPL", 230, models.DirectionAbove)
	require.NoError(t, s.Add(ctx, "default", rule))

	target := 250.0
	enabled := false
	require.NoError(t, s.UpdateFields(ctx, "default", rule.ID, RulePatch{
		Target:  &target,
		Enabled: &enabled,
	}))

	rules, err := s.List(ctx, "default")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 250.0, rules[0].Target)
	assert.False(t, rules[0].Enabled)
	// Untouched fields survive.
	assert.Equal(t, models.DirectionAbove, rules[0].Direction)
	assert.Nil(t, rules[0].LastFiredAt)
}

func TestSQLiteStore_UpdateFieldsMissingRule(t *testing.T) {
	s := newTestSQLiteStore(t)

	target := 100.0
	err := s.UpdateFields(context.Background(), "default", "no-such-id", RulePatch{Target: &target})
	assert.ErrorIs(t, err, apperrors.ErrRuleNotFound)
}

func TestSQLiteStore_HistoryRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		firing := models.Firing{
			RuleID:     "rule-1",
			Symbol:     "BTC",
			Price:      45000 - float64(i*100),
			Target:     45000,
			Direction:  models.DirectionBelow,
			ObservedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.RecordFiring(ctx, "default", firing))
	}

	firings, err := s.ListFirings(ctx, "default", 3)
	require.NoError(t, err)
	require.Len(t, firings, 3)

	// Newest first.
	assert.Equal(t, 44600.0, firings[0].Price)
	assert.Equal(t, 44700.0, firings[1].Price)
	assert.Equal(t, 44800.0, firings[2].Price)
}
