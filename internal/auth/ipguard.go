package auth

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxFailedLogins     = 5
	failedLoginTTL      = 24 * time.Hour
	suspiciousThreshold = 10
	suspiciousWindow    = 60 * time.Second
	blockDuration       = 1 * time.Hour
)

// IPGuard tracks failed logins and request bursts per client IP and blocks
// offenders for a cooldown. Every store operation fails open: an unreachable
// counter store logs the error and lets the request through instead of
// rejecting legitimate traffic.
type IPGuard struct {
	Redis *redis.Client
}

func failedLoginKey(ip string) string { return "failed_login:" + ip }
func suspiciousKey(ip string) string  { return "suspicious:" + ip }
func blockedKey(ip string) string     { return "blocked:" + ip }

// IsBlocked reports whether the IP is under an active block.
func (g *IPGuard) IsBlocked(ctx context.Context, ip string) bool {
	exists, err := g.Redis.Exists(ctx, blockedKey(ip)).Result()
	if err != nil {
		log.Printf("ipguard: block check failed for %s: %v", ip, err)
		return false
	}
	return exists == 1
}

// RegisterFailedLogin increments the 24h failure counter and blocks the IP
// once it reaches the threshold.
func (g *IPGuard) RegisterFailedLogin(ctx context.Context, ip string) {
	key := failedLoginKey(ip)
	attempts, err := g.Redis.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("ipguard: failed-login increment failed for %s: %v", ip, err)
		return
	}
	if attempts == 1 {
		g.Redis.Expire(ctx, key, failedLoginTTL)
	}
	if attempts >= maxFailedLogins {
		if err := g.Redis.Set(ctx, blockedKey(ip), "1", blockDuration).Err(); err != nil {
			log.Printf("ipguard: block set failed for %s: %v", ip, err)
			return
		}
		log.Printf("ipguard: IP %s blocked after %d failed login attempts", ip, attempts)
	}
}

// ResetFailedLogins clears the failure counter after a successful login.
func (g *IPGuard) ResetFailedLogins(ctx context.Context, ip string) {
	if err := g.Redis.Del(ctx, failedLoginKey(ip)).Err(); err != nil {
		log.Printf("ipguard: failed-login reset failed for %s: %v", ip, err)
	}
}

// RegisterActivity counts a request in the sliding one-minute window and
// returns true when the IP crossed the threshold and is now blocked.
func (g *IPGuard) RegisterActivity(ctx context.Context, ip string) bool {
	key := suspiciousKey(ip)
	count, err := g.Redis.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("ipguard: activity increment failed for %s: %v", ip, err)
		return false
	}
	if count == 1 {
		g.Redis.Expire(ctx, key, suspiciousWindow)
	}
	if count > suspiciousThreshold {
		if err := g.Redis.Set(ctx, blockedKey(ip), "1", blockDuration).Err(); err != nil {
			log.Printf("ipguard: block set failed for %s: %v", ip, err)
			return false
		}
		log.Printf("ipguard: IP %s blocked for suspicious activity (count=%d)", ip, count)
		return true
	}
	return false
}
