// Package ratelimit throttles how fast a Listener accepts new
// connections, using either a token-bucket or leaky-bucket algorithm.
package ratelimit

import (
	"context"
	"sync/atomic"

	"go.uber.org/ratelimit"
	"golang.org/x/time/rate"
)

// AcceptLimiter gates how quickly a Listener's accept loop is allowed
// to hand out newly accepted connections.
type AcceptLimiter interface {
	// Take blocks until the next accept is permitted.
	Take(ctx context.Context) error
	// Reload updates the limiter's configuration at runtime.
	Reload(limit int, burst int)
}

// TokenAcceptLimiter is a token-bucket AcceptLimiter: up to burst
// connections may be accepted in a sudden spike, refilling at limit
// per second thereafter.
type TokenAcceptLimiter struct {
	limiter atomic.Pointer[rate.Limiter]
}

// NewTokenAcceptLimiter creates a token-bucket limiter accepting up to
// limit connections per second, with bursts up to burst.
func NewTokenAcceptLimiter(limit int, burst int) *TokenAcceptLimiter {
	l := &TokenAcceptLimiter{}
	l.limiter.Store(rate.NewLimiter(rate.Limit(limit), burst))
	return l
}

// Take blocks until a token is available or ctx is done.
func (l *TokenAcceptLimiter) Take(ctx context.Context) error {
	return l.limiter.Load().Wait(ctx)
}

// Reload swaps in a new limit/burst configuration.
func (l *TokenAcceptLimiter) Reload(limit int, burst int) {
	l.limiter.Store(rate.NewLimiter(rate.Limit(limit), burst))
}

// FunnelAcceptLimiter is a leaky-bucket AcceptLimiter: accepts are
// paced to a strict, even rate with no bursting.
type FunnelAcceptLimiter struct {
	limiter atomic.Pointer[ratelimit.Limiter]
}

// NewFunnelAcceptLimiter creates a leaky-bucket limiter accepting at
// most limit connections per second, evenly paced.
func NewFunnelAcceptLimiter(limit int) *FunnelAcceptLimiter {
	l := &FunnelAcceptLimiter{}
	rl := ratelimit.New(limit)
	l.limiter.Store(&rl)
	return l
}

// Take blocks until the leaky bucket admits the next accept. ctx
// cancellation is not honored by go.uber.org/ratelimit; callers that
// need cancellable pacing should use TokenAcceptLimiter instead.
func (l *FunnelAcceptLimiter) Take(ctx context.Context) error {
	(*l.limiter.Load()).Take()
	return ctx.Err()
}

// Reload swaps in a new pacing rate.
func (l *FunnelAcceptLimiter) Reload(limit int, _ int) {
	rl := ratelimit.New(limit)
	l.limiter.Store(&rl)
}
