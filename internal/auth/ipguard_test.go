package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFailedLoginsBlockAfterThreshold(t *testing.T) {
	rdb, _ := newRedisTest(t)
	guard := &IPGuard{Redis: rdb}
	ctx := context.Background()
	ip := "203.0.113.7"

	for i := 0; i < maxFailedLogins-1; i++ {
		guard.RegisterFailedLogin(ctx, ip)
		require.False(t, guard.IsBlocked(ctx, ip))
	}

	guard.RegisterFailedLogin(ctx, ip)
	require.True(t, guard.IsBlocked(ctx, ip))
}

func TestResetFailedLoginsClearsCounter(t *testing.T) {
	rdb, _ := newRedisTest(t)
	guard := &IPGuard{Redis: rdb}
	ctx := context.Background()
	ip := "203.0.113.7"

	for i := 0; i < maxFailedLogins-1; i++ {
		guard.RegisterFailedLogin(ctx, ip)
	}
	guard.ResetFailedLogins(ctx, ip)

	// The counter starts over, so the next failure is attempt one again.
	guard.RegisterFailedLogin(ctx, ip)
	require.False(t, guard.IsBlocked(ctx, ip))
}

func TestBlockExpiresAfterCooldown(t *testing.T) {
	rdb, mr := newRedisTest(t)
	guard := &IPGuard{Redis: rdb}
	ctx := context.Background()
	ip := "203.0.113.7"

	for i := 0; i < maxFailedLogins; i++ {
		guard.RegisterFailedLogin(ctx, ip)
	}
	require.True(t, guard.IsBlocked(ctx, ip))

	mr.FastForward(blockDuration + time.Minute)
	require.False(t, guard.IsBlocked(ctx, ip))
}

func TestSuspiciousActivityBlocksBursts(t *testing.T) {
	rdb, _ := newRedisTest(t)
	guard := &IPGuard{Redis: rdb}
	ctx := context.Background()
	ip := "198.51.100.23"

	for i := 0; i < suspiciousThreshold; i++ {
		require.False(t, guard.RegisterActivity(ctx, ip))
	}

	require.True(t, guard.RegisterActivity(ctx, ip))
	require.True(t, guard.IsBlocked(ctx, ip))
}

func TestSuspiciousCounterResetsAfterWindow(t *testing.T) {
	rdb, mr := newRedisTest(t)
	guard := &IPGuard{Redis: rdb}
	ctx := context.Background()
	ip := "198.51.100.23"

	for i := 0; i < suspiciousThreshold; i++ {
		require.False(t, guard.RegisterActivity(ctx, ip))
	}

	mr.FastForward(suspiciousWindow + time.Second)
	require.False(t, guard.RegisterActivity(ctx, ip))
	require.False(t, guard.IsBlocked(ctx, ip))
}

func TestGuardFailsOpenWhenRedisIsDown(t *testing.T) {
	rdb, mr := newRedisTest(t)
	guard := &IPGuard{Redis: rdb}
	ctx := context.Background()
	mr.Close()

	require.False(t, guard.IsBlocked(ctx, "203.0.113.7"))
	require.False(t, guard.RegisterActivity(ctx, "203.0.113.7"))
	guard.RegisterFailedLogin(ctx, "203.0.113.7")
	guard.ResetFailedLogins(ctx, "203.0.113.7")
}
