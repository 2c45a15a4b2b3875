package auth

import (
	"testing"
	"time"
)

func newTestLimiter() *RateLimiter {
	return NewRateLimiter(RateLimitConfig{
		MaxAttempts:     3,
		WindowDuration:  time.Minute,
		LockoutDuration: time.Minute,
		CleanupInterval: time.Hour,
	})
}

func TestRateLimiter_AllowsUntilThreshold(t *testing.T) {
	rl := newTestLimiter()
	defer rl.Stop()

	for i := 0; i < 2; i++ {
		if locked, _ := rl.RecordFailure("1.2.3.4", "asha"); locked {
			t.Fatalf("locked after %d failures, want lockout at 3", i+1)
		}
		if allowed, _ := rl.Allow("1.2.3.4", "asha"); !allowed {
			t.Fatalf("Allow() = false after %d failures", i+1)
		}
	}

	locked, retryAfter := rl.RecordFailure("1.2.3.4", "asha")
	if !locked {
		t.Error("expected lockout on third failure")
	}
	if retryAfter <= 0 {
		t.Errorf("retryAfter = %v, want positive", retryAfter)
	}

	if allowed, _ := rl.Allow("1.2.3.4", "asha"); allowed {
		t.Error("Allow() = true while locked out")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := newTestLimiter()
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		rl.RecordFailure("1.2.3.4", "asha")
	}

	// Same user from a different IP stays allowed, as does a different user
	if allowed, _ := rl.Allow("5.6.7.8", "asha"); !allowed {
		t.Error("different IP should not share the lockout")
	}
	if allowed, _ := rl.Allow("1.2.3.4", "bram"); !allowed {
		t.Error("different user should not share the lockout")
	}
}

func TestRateLimiter_SuccessClearsRecord(t *testing.T) {
	rl := newTestLimiter()
	defer rl.Stop()

	rl.RecordFailure("1.2.3.4", "asha")
	rl.RecordFailure("1.2.3.4", "asha")
	rl.RecordSuccess("1.2.3.4", "asha")

	// Counter starts over
	if locked, _ := rl.RecordFailure("1.2.3.4", "asha"); locked {
		t.Error("lockout after success should require a fresh run of failures")
	}
	if allowed, _ := rl.Allow("1.2.3.4", "asha"); !allowed {
		t.Error("Allow() = false after success cleared the record")
	}
}
