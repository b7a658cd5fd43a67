package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSMTPDown = errors.New("smtp: connection refused")

func testCB() *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      50 * time.Millisecond,
	})
}

func TestCircuitBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	cb := testCB()

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return errSMTPDown })
		require.ErrorIs(t, err, errSMTPDown)
	}
	assert.Equal(t, CBOpen, cb.State())

	// Fast-fail without invoking fn
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := testCB()

	_ = cb.Execute(func() error { return errSMTPDown })
	_ = cb.Execute(func() error { return errSMTPDown })
	require.NoError(t, cb.Execute(func() error { return nil }))

	// Two more failures are below the threshold again
	_ = cb.Execute(func() error { return errSMTPDown })
	_ = cb.Execute(func() error { return errSMTPDown })
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreakerHalfOpenProbeClosesAfterSuccesses(t *testing.T) {
	cb := testCB()
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errSMTPDown })
	}
	require.Equal(t, CBOpen, cb.State())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, CBHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	cb := testCB()
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errSMTPDown })
	}
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, CBHalfOpen, cb.State())

	_ = cb.Execute(func() error { return errSMTPDown })
	assert.Equal(t, CBOpen, cb.State())
}

func TestCircuitBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", CBClosed.String())
	assert.Equal(t, "open", CBOpen.String())
	assert.Equal(t, "half-open", CBHalfOpen.String())
}
