package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream failed")

func testConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          50 * time.Millisecond,
	}
}

func fail() error { return errUpstream }
func ok() error   { return nil }

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test", testConfig())

	for i := 0; i < 10; i++ {
		require.NoError(t, cb.Execute(ok))
	}
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", testConfig())

	for i := 0; i < 3; i++ {
		err := cb.Execute(fail)
		assert.ErrorIs(t, err, errUpstream)
	}
	assert.Equal(t, CircuitOpen, cb.State())

	err := cb.Execute(ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", testConfig())

	cb.Execute(fail)
	cb.Execute(fail)
	require.NoError(t, cb.Execute(ok))
	cb.Execute(fail)
	cb.Execute(fail)

	// Failures never reached the threshold consecutively.
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker("test", testConfig())

	for i := 0; i < 3; i++ {
		cb.Execute(fail)
	}
	require.Equal(t, CircuitOpen, cb.State())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, CircuitHalfOpen, cb.State())
}

func TestCircuitBreaker_ClosesAfterSuccessesInHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", testConfig())

	for i := 0; i < 3; i++ {
		cb.Execute(fail)
	}
	time.Sleep(60 * time.Millisecond)

	require.NoError(t, cb.Execute(ok))
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_ReopensOnFailureInHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", testConfig())

	for i := 0; i < 3; i++ {
		cb.Execute(fail)
	}
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, CircuitHalfOpen, cb.State())

	cb.Execute(fail)
	assert.Equal(t, CircuitOpen, cb.State())
}
