package webhooks

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// bucketTTL is how long an idle endpoint's bucket survives before its state
// is evicted and the endpoint starts fresh.
const bucketTTL = 30 * time.Minute

// maxTrackedEndpoints bounds rate limiter memory across all guilds
const maxTrackedEndpoints = 16384

// RateLimiter implements token bucket rate limiting per endpoint. Bucket
// state lives in an expiring LRU so abandoned endpoints do not accumulate.
type RateLimiter struct {
	buckets      *expirable.LRU[string, *TokenBucket]
	mutex        sync.Mutex
	maxTokens    int
	refillPeriod time.Duration
}

// TokenBucket represents a token bucket for rate limiting
type TokenBucket struct {
	tokens       int
	maxTokens    int
	refillPeriod time.Duration
	lastRefill   time.Time
	mutex        sync.Mutex
}

// NewRateLimiter creates a rate limiter allowing maxRequests tokens, refilled
// one token per period/maxRequests.
func NewRateLimiter(maxRequests int, period time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 100
	}
	if period <= 0 {
		period = time.Minute
	}
	return &RateLimiter{
		buckets:      expirable.NewLRU[string, *TokenBucket](maxTrackedEndpoints, nil, bucketTTL),
		maxTokens:    maxRequests,
		refillPeriod: period / time.Duration(maxRequests),
	}
}

// Allow checks if a delivery attempt is allowed for the given endpoint
func (rl *RateLimiter) Allow(endpointID string) bool {
	rl.mutex.Lock()
	bucket, exists := rl.buckets.Get(endpointID)
	if !exists {
		bucket = &TokenBucket{
			tokens:       rl.maxTokens,
			maxTokens:    rl.maxTokens,
			refillPeriod: rl.refillPeriod,
			lastRefill:   time.Now(),
		}
		rl.buckets.Add(endpointID, bucket)
	}
	rl.mutex.Unlock()

	return bucket.Take()
}

// Take attempts to take a token from the bucket
func (tb *TokenBucket) Take() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// refill credits tokens for elapsed time. Caller holds tb.mutex.
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	if elapsed >= tb.refillPeriod {
		periods := int(elapsed / tb.refillPeriod)
		tb.tokens = minInt(tb.tokens+periods, tb.maxTokens)
		tb.lastRefill = tb.lastRefill.Add(time.Duration(periods) * tb.refillPeriod)
	}
}

// Reset clears the rate limiter state for an endpoint
func (rl *RateLimiter) Reset(endpointID string) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	rl.buckets.Remove(endpointID)
}

// Remaining returns the number of remaining tokens for an endpoint
func (rl *RateLimiter) Remaining(endpointID string) int {
	rl.mutex.Lock()
	bucket, exists := rl.buckets.Get(endpointID)
	rl.mutex.Unlock()

	if !exists {
		return rl.maxTokens
	}

	bucket.mutex.Lock()
	defer bucket.mutex.Unlock()
	bucket.refill()
	return bucket.tokens
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
