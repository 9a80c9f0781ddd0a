package providers

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a per-minute token bucket shared by all calls through one
// client. A 429 with Retry-After empties the bucket and pauses callers until
// the provider's deadline passes.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	window            time.Duration

	tokens       float64
	lastUpdate   time.Time
	blockedUntil time.Time

	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit"`
	Utilization     float64       `json:"utilization"`
	TimeUntilToken  time.Duration `json:"time_until_token"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter creates a limiter allowing requestsPerMinute calls per
// minute, starting with a full bucket.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 150
	}
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		window:            time.Minute,
		tokens:            float64(requestsPerMinute),
		lastUpdate:        time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()

		now := time.Now()
		if now.Before(r.blockedUntil) {
			wait := r.blockedUntil.Sub(now)
			r.mu.Unlock()
			if err := r.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		if r.tokens >= 1.0 {
			r.tokens--
			r.totalConsumed++
			r.mu.Unlock()
			return nil
		}

		wait := r.untilNextToken()
		r.mu.Unlock()

		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (r *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		r.mu.Lock()
		r.totalWaited += d
		r.mu.Unlock()
		return nil
	}
}

// TryConsume takes a token without blocking and reports whether it got one.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	if time.Now().Before(r.blockedUntil) || r.tokens < 1.0 {
		return false
	}
	r.tokens--
	r.totalConsumed++
	return true
}

// Record429 notes a rate-limit response from the provider.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last429Time = time.Now()
	if retryAfter > 0 {
		r.tokens = 0
		r.blockedUntil = r.last429Time.Add(retryAfter)
	}
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	utilization := 1.0 - (r.tokens / float64(r.requestsPerMinute))
	if utilization < 0 {
		utilization = 0
	}

	var timeUntilToken time.Duration
	if r.tokens < 1.0 {
		timeUntilToken = r.untilNextToken()
	}
	if blocked := time.Until(r.blockedUntil); blocked > timeUntilToken {
		timeUntilToken = blocked
	}

	return RateLimiterStatus{
		TokensAvailable: int(r.tokens),
		TokensLimit:     r.requestsPerMinute,
		Utilization:     utilization,
		TimeUntilToken:  timeUntilToken,
		TotalConsumed:   r.totalConsumed,
		TotalWaited:     r.totalWaited,
		Last429Time:     r.last429Time,
	}
}

// untilNextToken must be called with the lock held.
func (r *RateLimiter) untilNextToken() time.Duration {
	perToken := r.window / time.Duration(r.requestsPerMinute)
	return time.Duration((1.0 - r.tokens) * float64(perToken))
}

// refill must be called with the lock held.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate)
	r.lastUpdate = now

	r.tokens += float64(r.requestsPerMinute) * elapsed.Seconds() / r.window.Seconds()
	if r.tokens > float64(r.requestsPerMinute) {
		r.tokens = float64(r.requestsPerMinute)
	}
}
