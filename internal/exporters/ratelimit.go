package exporters

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/capshare/internal/logger"
)

// DefaultBackoff is used when a 429 response carries no Retry-After.
const DefaultBackoff = 30 * time.Second

// maxRateLimitRetries bounds how often one request is replayed after 429.
const maxRateLimitRetries = 2

// RateLimiter spaces provider requests with a token bucket and backs off
// after 429 responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with a burst
// of twice that. Zero or less means unlimited.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = max(1, int(2*requestsPerSecond))
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by RecordRateLimitError.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := retryAt.Sub(r.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError sets a backoff period and returns the one applied.
// A negative duration means the provider gave none and DefaultBackoff
// applies.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if retryAfter < 0 {
		retryAfter = DefaultBackoff
	}
	r.retryAt = r.now().Add(retryAfter)
	return retryAfter
}

// Transport is an http.RoundTripper that waits on a RateLimiter before
// every request and replays replayable requests after a 429.
type Transport struct {
	Base    http.RoundTripper
	Limiter *RateLimiter
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	for attempt := 0; ; attempt++ {
		if err := t.Limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
		resp, err := base.RoundTrip(req)
		if err != nil || resp.StatusCode != http.StatusTooManyRequests {
			return resp, err
		}

		backoff := t.Limiter.RecordRateLimitError(parseRetryAfter(resp.Header.Get("Retry-After")))
		logger.Warn("rate limited by %s, backing off %s", req.URL.Host, backoff)

		if attempt >= maxRateLimitRetries || (req.Body != nil && req.GetBody == nil) {
			return resp, nil
		}
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return resp, nil //nolint:nilerr // hand the 429 to the caller
			}
			req = req.Clone(req.Context())
			req.Body = body
		}
		resp.Body.Close()
	}
}

// parseRetryAfter reads a Retry-After header in seconds. Dates are not
// used by the providers here; they and absent headers yield -1.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return -1
	}
	return time.Duration(secs) * time.Second
}

// NewHTTPClient returns a rate-limited client. A zero timeout means none,
// which upload clients rely on for large chunks.
func NewHTTPClient(limiter *RateLimiter, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &Transport{Limiter: limiter},
		Timeout:   timeout,
	}
}
