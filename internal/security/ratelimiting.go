package security

import (
	"sync"
	"time"
)

// RateLimiter implements a per-identifier token bucket. Thread-safe.
type RateLimiter struct {
	buckets map[string]*bucketState
	mu      sync.Mutex

	maxTokens  int           // bucket capacity
	refillRate time.Duration // time per replenished token

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
}

type bucketState struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter allowing maxTokens requests with one
// token replenished every refillRate.
//
// Example:
//
//	// 5 requests per minute
//	limiter := NewRateLimiter(5, 12*time.Second)
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets:     make(map[string]*bucketState),
		maxTokens:   maxTokens,
		refillRate:  refillRate,
		stopCleanup: make(chan struct{}),
	}

	rl.cleanupTicker = time.NewTicker(10 * time.Minute)
	go rl.cleanup()

	return rl
}

// Allow reports whether a request from the identifier (employee id or IP)
// may proceed, consuming a token when it does.
func (rl *RateLimiter) Allow(identifier string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, exists := rl.buckets[identifier]
	if !exists {
		rl.buckets[identifier] = &bucketState{
			tokens:     rl.maxTokens - 1,
			lastRefill: time.Now(),
		}
		return true
	}

	if add := int(time.Since(bucket.lastRefill) / rl.refillRate); add > 0 {
		bucket.tokens += add
		if bucket.tokens > rl.maxTokens {
			bucket.tokens = rl.maxTokens
		}
		bucket.lastRefill = time.Now()
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}
	return false
}

// Reset clears the state for an identifier.
func (rl *RateLimiter) Reset(identifier string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, identifier)
}

// cleanup drops buckets inactive for over an hour.
func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.mu.Lock()
			now := time.Now()
			for id, bucket := range rl.buckets {
				if now.Sub(bucket.lastRefill) > time.Hour {
					delete(rl.buckets, id)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

// Stop terminates the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
	close(rl.stopCleanup)
}

// AccountLockout tracks failed login attempts and locks accounts that exceed
// the threshold.
type AccountLockout struct {
	lockouts map[string]*lockoutState
	mu       sync.Mutex

	threshold int
	duration  time.Duration
}

type lockoutState struct {
	failedAttempts int
	lockedUntil    time.Time
	lastAttempt    time.Time
}

// NewAccountLockout creates a lockout tracker.
func NewAccountLockout(threshold int, duration time.Duration) *AccountLockout {
	return &AccountLockout{
		lockouts:  make(map[string]*lockoutState),
		threshold: threshold,
		duration:  duration,
	}
}

// RecordFailedAttempt registers a failure and reports whether the account
// just crossed into lockout. Counters reset after 30 minutes of quiet.
func (al *AccountLockout) RecordFailedAttempt(identifier string) bool {
	al.mu.Lock()
	defer al.mu.Unlock()

	state, exists := al.lockouts[identifier]
	if !exists || time.Since(state.lastAttempt) > 30*time.Minute {
		al.lockouts[identifier] = &lockoutState{failedAttempts: 1, lastAttempt: time.Now()}
		return false
	}

	state.failedAttempts++
	state.lastAttempt = time.Now()

	if state.failedAttempts >= al.threshold {
		state.lockedUntil = time.Now().Add(al.duration)
		return true
	}
	return false
}

// IsLocked reports whether the account is currently locked.
func (al *AccountLockout) IsLocked(identifier string) bool {
	al.mu.Lock()
	defer al.mu.Unlock()

	state, exists := al.lockouts[identifier]
	if !exists {
		return false
	}

	if time.Now().After(state.lockedUntil) {
		state.failedAttempts = 0
		state.lockedUntil = time.Time{}
		return false
	}
	return !state.lockedUntil.IsZero()
}

// ResetAttempts clears failures for an identifier; call on successful login.
func (al *AccountLockout) ResetAttempts(identifier string) {
	al.mu.Lock()
	defer al.mu.Unlock()
	delete(al.lockouts, identifier)
}
