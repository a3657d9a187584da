// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrInvalidRule        = errors.New("invalid alert rule")
	ErrRuleNotFound       = errors.New("alert rule not found")
	ErrSymbolNotFound     = errors.New("symbol not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrTimeout            = errors.New("operation timed out")
	ErrConfigInvalid      = errors.New("invalid configuration")
)

// ValidationError represents a rule construction error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets callers match validation failures with errors.Is(err, ErrInvalidRule).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRule
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// QuoteError represents a failure fetching a quote for a symbol.
type QuoteError struct {
	Provider string
	Symbol   string
	Err      error
}

func (e *QuoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("quote error [%s] %s: %v", e.Provider, e.Symbol, e.Err)
	}
	return fmt.Sprintf("quote error [%s] %s", e.Provider, e.Symbol)
}

func (e *QuoteError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrPriceUnavailable
}

// NewQuoteError creates a new QuoteError. The wrapped error chain always
// reaches ErrPriceUnavailable so callers can treat every variant as no-data.
func NewQuoteError(provider, symbol string, err error) *QuoteError {
	if err == nil || !errors.Is(err, ErrPriceUnavailable) {
		err = fmt.Errorf("%w: %w", ErrPriceUnavailable, orUnknown(err))
	}
	return &QuoteError{Provider: provider, Symbol: symbol, Err: err}
}

func orUnknown(err error) error {
	if err == nil {
		return errors.New("no data")
	}
	return err
}

// StorageError represents a persistence failure for one scope.
type StorageError struct {
	Op    string
	Scope string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [%s] scope %q: %v", e.Op, e.Scope, e.Err)
}

func (e *StorageError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrStorageUnavailable
}

// NewStorageError creates a new StorageError wrapping ErrStorageUnavailable.
func NewStorageError(op, scope string, err error) *StorageError {
	if err == nil || !errors.Is(err, ErrStorageUnavailable) {
		err = fmt.Errorf("%w: %w", ErrStorageUnavailable, orUnknown(err))
	}
	return &StorageError{Op: op, Scope: scope, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
