// Package limiter paces virtual-user iterations.
package limiter

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// Limiter blocks until the next iteration may start.
type Limiter interface {
	// Wait blocks until allowed or ctx is done.
	Wait(ctx context.Context) error
}

// Rate is a token-bucket limiter backed by x/time/rate.
type Rate struct {
	l *rate.Limiter
}

// NewRate returns a limiter allowing perSecond events with the given burst.
// perSecond <= 0 means unlimited; burst < 1 is raised to 1.
func NewRate(perSecond float64, burst int) *Rate {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 || math.IsInf(perSecond, 1) {
		limit = rate.Inf
	}
	return &Rate{l: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is available.
func (r *Rate) Wait(ctx context.Context) error {
	return r.l.Wait(ctx)
}

type unlimited struct{}

func (unlimited) Wait(ctx context.Context) error { return ctx.Err() }

// Unlimited never blocks but still honours cancellation.
var Unlimited Limiter = unlimited{}
