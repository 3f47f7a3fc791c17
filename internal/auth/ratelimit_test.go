package auth

import (
	"testing"
	"time"
)

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	if !rl.Allow("tok") {
		t.Error("Allow() = false on first request")
	}
	if !rl.Allow("tok") {
		t.Error("Allow() = false within burst")
	}
	if rl.Allow("tok") {
		t.Error("Allow() = true past burst")
	}
	if !rl.Allow("other") {
		t.Error("Allow() = false for an independent key")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(10, 20)
	rl.Allow("stale")
	rl.Allow("fresh")

	rl.mu.Lock()
	rl.limiters["stale"].lastSeen = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.Cleanup(30 * time.Minute)

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if _, ok := rl.limiters["stale"]; ok {
		t.Error("stale limiter survived Cleanup")
	}
	if _, ok := rl.limiters["fresh"]; !ok {
		t.Error("recently used limiter evicted by Cleanup")
	}
}
