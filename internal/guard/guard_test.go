package guard

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/repograph/repograph-go/internal/errors"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker("test", 3, 100*time.Millisecond)

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		err := b.Call(func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, StateOpen, b.State())

	err := b.Call(func() error { return nil })
	require.Error(t, err)
	assert.Equal(t, apperrors.KindCircuitOpen, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "find_dependencies")
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := NewBreaker("test", 3, 100*time.Millisecond)
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	require.Equal(t, StateOpen, b.State())

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker("test", 1, time.Minute)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	now = now.Add(time.Minute)
	require.NoError(t, b.Allow(), "probe is admitted in half-open")
	assert.Error(t, b.Allow(), "only one probe at a time")

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b := NewBreaker("test", 1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// An abandoned request fails, but the breaker stays closed.
	err := b.CallContext(ctx, func() error { return ctx.Err() })
	require.Error(t, err)
	assert.Equal(t, StateClosed, b.State())

	// A genuine downstream failure still opens it.
	err = b.CallContext(context.Background(), func() error { return errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerCancelledProbeFreesTheSlot(t *testing.T) {
	now := time.Now()
	b := NewBreaker("test", 1, time.Minute)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
	now = now.Add(time.Minute)
	require.Equal(t, StateHalfOpen, b.State())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, b.CallContext(ctx, func() error { return ctx.Err() }))

	// The cancelled probe resolved nothing; the next caller gets to probe
	// and a success closes the breaker.
	require.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.CallContext(context.Background(), func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
}

func TestRateLimiterBurstThenRefusal(t *testing.T) {
	rl := NewRateLimiter(10, 5)

	for i := 0; i < 5; i++ {
		d := rl.Check("client-a")
		assert.True(t, d.Allowed, "request %d within burst", i+1)
	}

	d := rl.Check("client-a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))

	// Other clients keep their own bucket.
	assert.True(t, rl.Check("client-b").Allowed)
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(600, 5)
	for i := 0; i < 5; i++ {
		require.True(t, rl.Check("c").Allowed)
	}
	require.False(t, rl.Check("c").Allowed)

	// 600 rpm = 10 tokens/s, so 0.2s buys at least one more admit.
	time.Sleep(200 * time.Millisecond)
	assert.True(t, rl.Check("c").Allowed)
}

func TestClientIDPriority(t *testing.T) {
	r := httptest.NewRequest("GET", "/sse", nil)
	r.RemoteAddr = "192.0.2.10:54321"
	assert.Equal(t, "ip:192.0.2.10", ClientID(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "ip:203.0.113.7", ClientID(r))

	r.Header.Set("X-API-Key", "abcdef1234567890")
	assert.Equal(t, "key:abcdef12", ClientID(r))
}

func TestSanitizePath(t *testing.T) {
	_, err := SanitizePath("../../etc/passwd", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Path traversal detected: '..' not allowed")
	assert.Equal(t, apperrors.KindUserInput, apperrors.KindOf(err))

	_, err = SanitizePath("file\x00.yml", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Null byte in path")

	_, err = SanitizePath("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Empty path provided")

	got, err := SanitizePath("roles/common/tasks/main.yml", "/srv/a")
	require.NoError(t, err)
	assert.Equal(t, "/srv/a/roles/common/tasks/main.yml", got)

	got, err = SanitizePath("/srv/a/site.yml", "/srv/a")
	require.NoError(t, err)
	assert.Equal(t, "/srv/a/site.yml", got)

	_, err = SanitizePath("/etc/passwd", "/srv/a")
	assert.Error(t, err)
}

func TestEnforceRowCap(t *testing.T) {
	assert.Equal(t,
		"MATCH (n:Task) RETURN n LIMIT 100",
		EnforceRowCap("MATCH (n:Task) RETURN n"))

	assert.Equal(t,
		"MATCH (n:Task) RETURN n LIMIT 1000",
		EnforceRowCap("MATCH (n:Task) RETURN n LIMIT 5000"))

	assert.Equal(t,
		"MATCH (n:Task) RETURN n LIMIT 100",
		EnforceRowCap("MATCH (n:Task) RETURN n;"))

	assert.Equal(t,
		"MATCH (n:Task) RETURN n LIMIT 10",
		EnforceRowCap("MATCH (n:Task) RETURN n LIMIT 10"))

	assert.Equal(t,
		fmt.Sprintf("MATCH (n) RETURN n.name LIMIT %d", DefaultRowCap),
		EnforceRowCap("  MATCH (n) RETURN n.name  "))
}
