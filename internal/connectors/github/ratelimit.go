package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// AuthenticatedQuota is the hourly request quota with a token.
	AuthenticatedQuota = 5000

	// ProactiveRate is the client-side throttle (~1.2 req/sec = 4320/hr).
	ProactiveRate = 1.2

	// MinBuffer is the remaining-request floor below which the limiter
	// waits for the quota reset instead of spending the reserve.
	MinBuffer = 100

	// HeaderRateLimit is the quota size header.
	HeaderRateLimit = "X-RateLimit-Limit"

	// HeaderRateRemaining is the remaining requests header.
	HeaderRateRemaining = "X-RateLimit-Remaining"

	// HeaderRateReset is the quota reset header (Unix seconds).
	HeaderRateReset = "X-RateLimit-Reset"
)

// RateLimiter combines proactive and reactive rate limiting for the
// GitHub API. A token bucket spaces requests out ahead of time, and the
// X-RateLimit response headers keep a live view of the server-side
// budget so Wait can hold back when the quota runs low.
type RateLimiter struct {
	mu        sync.Mutex
	remaining int       // from the API headers
	limit     int       // from the API headers
	resetTime time.Time // from the API headers
	bucket    *rate.Limiter
	minBuffer int
}

// NewRateLimiter creates a rate limiter with proactive throttling.
// The remaining budget starts at the authenticated quota and corrects
// itself from the headers of the first response, so unauthenticated
// clients converge on their smaller quota after one request.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		remaining: AuthenticatedQuota,
		limit:     AuthenticatedQuota,
		bucket:    rate.NewLimiter(rate.Limit(ProactiveRate), 1),
		minBuffer: MinBuffer,
	}
}

// Wait blocks until it is safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	// 1. Token bucket (proactive throttling).
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	// 2. Server-side budget (reactive).
	r.mu.Lock()
	remaining := r.remaining
	resetTime := r.resetTime
	r.mu.Unlock()

	if remaining < r.minBuffer && time.Now().Before(resetTime) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(resetTime)):
		}
	}

	return nil
}

// UpdateFromResponse refreshes the budget from response headers.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if remaining := resp.Header.Get(HeaderRateRemaining); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			r.remaining = val
		}
	}
	if limit := resp.Header.Get(HeaderRateLimit); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			r.limit = val
		}
	}
	if reset := resp.Header.Get(HeaderRateReset); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			r.resetTime = time.Unix(val, 0)
		}
	}
}

// Remaining returns the remaining requests in the current window.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// Limit returns the quota size.
func (r *RateLimiter) Limit() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limit
}

// ResetTime returns when the quota window resets.
func (r *RateLimiter) ResetTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetTime
}
