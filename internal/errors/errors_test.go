package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_MatchesInvalidRule(t *testing.T) {
	err := NewValidationError("target", -1, "must be greater than zero")
	assert.True(t, Is(err, ErrInvalidRule))
	assert.Contains(t, err.Error(), "target")

	var verr *ValidationError
	assert.True(t, As(err, &verr))
	assert.Equal(t, "target", verr.Field)
}

func TestQuoteError_AlwaysReachesPriceUnavailable(t *testing.T) {
	plain := NewQuoteError("yahoo", "AAPL", fmt.Errorf("connection refused"))
	assert.True(t, Is(plain, ErrPriceUnavailable))

	chained := NewQuoteError("yahoo", "ZZZZ", ErrSymbolNotFound)
	assert.True(t, Is(chained, ErrPriceUnavailable))
	assert.True(t, Is(chained, ErrSymbolNotFound))

	nilErr := NewQuoteError("yahoo", "AAPL", nil)
	assert.True(t, Is(nilErr, ErrPriceUnavailable))
}

func TestQuoteError_DoesNotDoubleWrap(t *testing.T) {
	inner := NewQuoteError("yahoo", "AAPL", ErrRateLimited)
	outer := NewQuoteError("cached", "AAPL", inner)

	assert.True(t, Is(outer, ErrPriceUnavailable))
	assert.True(t, Is(outer, ErrRateLimited))
}

func TestStorageError_MatchesStorageUnavailable(t *testing.T) {
	err := NewStorageError("list", "default", fmt.Errorf("database is locked"))
	assert.True(t, Is(err, ErrStorageUnavailable))
	assert.Contains(t, err.Error(), "list")
	assert.Contains(t, err.Error(), "default")

	var serr *StorageError
	assert.True(t, As(err, &serr))
	assert.Equal(t, "list", serr.Op)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))

	err := Wrap(ErrRuleNotFound, "removing rule")
	assert.True(t, Is(err, ErrRuleNotFound))
	assert.Contains(t, err.Error(), "removing rule")

	err = Wrapf(ErrRuleNotFound, "removing rule %s", "abc")
	assert.Contains(t, err.Error(), "abc")
}
