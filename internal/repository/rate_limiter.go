package repository

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/fakhrymubarak/skyglow-weather/internal/model"
)

// RateLimitedGeocoder wraps a GeocodingRepository so bursts of keystrokes cannot
// exceed the provider's quota. It waits for a token; it never retries.
type RateLimitedGeocoder struct {
	inner   GeocodingRepository
	limiter *rate.Limiter
}

// NewRateLimitedGeocoder allows rps lookups per second with the given burst.
func NewRateLimitedGeocoder(inner GeocodingRepository, rps float64, burst int) *RateLimitedGeocoder {
	return &RateLimitedGeocoder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// FetchSuggestions waits for the limiter, then forwards to the wrapped client.
func (g *RateLimitedGeocoder) FetchSuggestions(ctx context.Context, query string, limit int) ([]model.CitySuggestion, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return g.inner.FetchSuggestions(ctx, query, limit)
}

var _ GeocodingRepository = (*RateLimitedGeocoder)(nil)
