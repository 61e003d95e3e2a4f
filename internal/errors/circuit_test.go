package errors

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestBreaker(clock *fakeClock) *CircuitBreaker {
	return NewCircuitBreaker("vector",
		WithMaxFailures(2),
		WithResetTimeout(time.Second),
		withClock(clock.Now),
	)
}

var errBoom = errors.New("boom")

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a breaker that opens after 2 failures
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := newTestBreaker(clock)

	// When: two calls fail
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}

	// Then: the breaker is open and rejects without calling
	assert.Equal(t, StateOpen, cb.State())
	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := newTestBreaker(clock)

	_ = cb.Execute(func() error { return errBoom })
	require.Equal(t, 1, cb.Failures())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, 0, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	// Given: an open breaker whose reset timeout has elapsed
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := newTestBreaker(clock)
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
	clock.Advance(time.Second)
	require.Equal(t, StateHalfOpen, cb.State())

	// When: one caller takes the probe slot
	require.True(t, cb.Allow())

	// Then: concurrent callers are still rejected
	assert.False(t, cb.Allow())

	// And: a successful probe closes the breaker
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := newTestBreaker(clock)
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
	clock.Advance(time.Second)

	err := cb.Execute(func() error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateOpen, cb.State())

	// reset timeout restarts from the failed probe
	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_ReleaseFreesProbe(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := newTestBreaker(clock)
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
	clock.Advance(time.Second)

	require.True(t, cb.Allow())
	assert.False(t, cb.Allow(), "probe slot already taken")

	cb.Release()
	assert.True(t, cb.Allow(), "released probe can be retaken")
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestCall_ReturnsResult(t *testing.T) {
	cb := NewCircuitBreaker("lexical")

	got, err := Call(cb, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
