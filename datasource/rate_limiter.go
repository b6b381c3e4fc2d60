package datasource

import (
	"context"
	"fmt"

	"worldclock/models"

	"golang.org/x/time/rate"
)

// RateLimitedSource wraps a TimezoneSource with a token bucket limiter
type RateLimitedSource struct {
	source  TimezoneSource
	limiter *rate.Limiter
	name    string
}

// NewRateLimitedSource creates a new rate limited timezone source
// rps is the maximum requests per second allowed (can be fractional for less than 1 request per second)
// burst is the maximum burst size allowed
func NewRateLimitedSource(source TimezoneSource, rps float64, burst int) *RateLimitedSource {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedSource{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    fmt.Sprintf("%s [Rate Limited]", source.Name()),
	}
}

// FetchTimezone waits for the limiter, then forwards to the underlying source
func (r *RateLimitedSource) FetchTimezone(ctx context.Context, zone string) (models.TimezoneRecord, error) {
	// Wait for rate limiter permission or context cancellation
	if err := r.limiter.Wait(ctx); err != nil {
		return models.TimezoneRecord{}, &TransportError{Zone: zone, Err: fmt.Errorf("rate limit wait canceled: %w", err)}
	}

	return r.source.FetchTimezone(ctx, zone)
}

// Name returns the source name
func (r *RateLimitedSource) Name() string {
	return r.name
}

// Verify that the rate limited source implements the interface
var _ TimezoneSource = (*RateLimitedSource)(nil)
