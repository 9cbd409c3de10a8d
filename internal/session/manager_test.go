package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *fixedClock) {
	t.Helper()
	clk := &fixedClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	return NewManager(cfg, clk, zap.NewNop()), clk
}

func TestCreateAndCheck(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, Config{Timeout: time.Hour, Warning: 5 * time.Minute})
	sess := m.Create("chen_wei")
	require.Equal(t, "chen_wei", sess.Username)
	require.Equal(t, sess.LoginTime.Add(time.Hour), sess.ExpireTime)

	status := m.Check("chen_wei", false)
	require.True(t, status.Valid)
	require.False(t, status.Expired)
	require.False(t, status.Warning)
	require.Equal(t, 60, status.RemainingMinutes)
}

func TestCheckUnknownUser(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, Config{})
	status := m.Check("nobody", false)
	require.False(t, status.Valid)
	require.True(t, status.Expired)
}

func TestExpiryRemovesSession(t *testing.T) {
	t.Parallel()

	m, clk := newTestManager(t, Config{Timeout: time.Hour})
	m.Create("chen_wei")

	clk.advance(time.Hour)
	status := m.Check("chen_wei", false)
	require.False(t, status.Valid)
	require.True(t, status.Expired)
	require.Equal(t, 0, m.Count(), "expired session is removed on check")
}

func TestRefreshExtendsExpiry(t *testing.T) {
	t.Parallel()

	m, clk := newTestManager(t, Config{Timeout: time.Hour})
	m.Create("chen_wei")

	clk.advance(50 * time.Minute)
	status := m.Check("chen_wei", true)
	require.True(t, status.Valid)

	// Without the refresh this would have expired.
	clk.advance(30 * time.Minute)
	require.True(t, m.Check("chen_wei", false).Valid)
}

func TestCheckWithoutRefreshDoesNotExtend(t *testing.T) {
	t.Parallel()

	m, clk := newTestManager(t, Config{Timeout: time.Hour})
	m.Create("chen_wei")

	clk.advance(50 * time.Minute)
	require.True(t, m.Check("chen_wei", false).Valid)

	clk.advance(10 * time.Minute)
	require.True(t, m.Check("chen_wei", false).Expired)
}

func TestWarningWindow(t *testing.T) {
	t.Parallel()

	m, clk := newTestManager(t, Config{Timeout: time.Hour, Warning: 10 * time.Minute})
	m.Create("chen_wei")

	clk.advance(45 * time.Minute)
	require.False(t, m.Check("chen_wei", false).Warning)

	clk.advance(10 * time.Minute)
	status := m.Check("chen_wei", false)
	require.True(t, status.Valid)
	require.True(t, status.Warning)
	require.Equal(t, 5, status.RemainingMinutes)
}

func TestCreateReplacesSession(t *testing.T) {
	t.Parallel()

	m, clk := newTestManager(t, Config{Timeout: time.Hour})
	m.Create("chen_wei")
	clk.advance(30 * time.Minute)
	m.Create("chen_wei")

	require.Equal(t, 1, m.Count())
	clk.advance(45 * time.Minute)
	require.True(t, m.Check("chen_wei", false).Valid, "second login reset the clock")
}

func TestRemove(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, Config{})
	m.Create("chen_wei")
	require.True(t, m.Remove("chen_wei"))
	require.False(t, m.Remove("chen_wei"))
	require.Equal(t, 0, m.Count())
}

func TestCleanupExpired(t *testing.T) {
	t.Parallel()

	m, clk := newTestManager(t, Config{Timeout: time.Hour})
	m.Create("early")
	clk.advance(40 * time.Minute)
	m.Create("late")
	clk.advance(30 * time.Minute)

	expired := m.CleanupExpired()
	require.Equal(t, []string{"early"}, expired)
	require.Equal(t, 1, m.Count())
}

func TestSweepStopsOnCancel(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Sweep(ctx, time.Millisecond)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop")
	}
}
