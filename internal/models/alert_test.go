package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pricewatch/internal/errors"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input   string
		want    Direction
		wantErr bool
	}{
		{"above", DirectionAbove, false},
		{"below", DirectionBelow, false},
		{"ABOVE", DirectionAbove, false},
		{" Below ", DirectionBelow, false},
		{"up", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDirection(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidRule)
		} else {
			assert.NoError(t, err, "input %q", tt.input)
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestNewAlertRule(t *testing.T) {
	rule, err := NewAlertRule(" aapl ", 230, DirectionAbove)
	require.NoError(t, err)

	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, "AAPL", rule.Symbol)
	assert.Equal(t, 230.0, rule.Target)
	assert.True(t, rule.Enabled)
	assert.False(t, rule.CreatedAt.IsZero())
	assert.Nil(t, rule.LastFiredAt)
}

func TestNewAlertRule_Invalid(t *testing.T) {
	_, err := NewAlertRule("", 230, DirectionAbove)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRule)

	_, err = NewAlertRule("AAPL", 0, DirectionAbove)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRule)

	_, err = NewAlertRule("AAPL", -5, DirectionBelow)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRule)

	_, err = NewAlertRule("AAPL", 230, Direction("sideways"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidRule)
}

func TestCrossed(t *testing.T) {
	tests := []struct {
		name      string
		direction Direction
		target    float64
		price     float64
		want      bool
	}{
		{"above: price over target", DirectionAbove, 230, 231, true},
		{"above: price at target", DirectionAbove, 230, 230, true},
		{"above: price under target", DirectionAbove, 230, 229.99, false},
		{"below: price under target", DirectionBelow, 45000, 44999, true},
		{"below: price at target", DirectionBelow, 45000, 45000, true},
		{"below: price over target", DirectionBelow, 45000, 45000.01, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := AlertRule{Target: tt.target, Direction: tt.direction}
			assert.Equal(t, tt.want, rule.Crossed(tt.price))
		})
	}
}

func TestCrossed_UnknownDirection(t *testing.T) {
	rule := AlertRule{Target: 100, Direction: Direction("sideways")}
	assert.False(t, rule.Crossed(100))
}
