package fetch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a requests-per-minute token bucket in front of the backend.
// Burst equals the per-minute limit so a cold dashboard can load at once.
type Limiter struct {
	limiter *rate.Limiter
	rpm     int
	mu      sync.RWMutex
}

// NewLimiter creates a limiter. rpm <= 0 means unlimited.
func NewLimiter(rpm int) *Limiter {
	l := &Limiter{}
	l.SetRPM(rpm)
	return l
}

// SetRPM replaces the limit. Used when the config is hot-reloaded.
func (l *Limiter) SetRPM(rpm int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rpm <= 0 {
		l.limiter = rate.NewLimiter(rate.Inf, 0)
		l.rpm = 0
		return
	}
	l.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
	l.rpm = rpm
}

// RPM returns the current limit, 0 when unlimited.
func (l *Limiter) RPM() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rpm
}

// Wait blocks until a request is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	limiter := l.limiter
	l.mu.RUnlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return nil
}

// Allow reports whether a request may proceed right now without waiting.
func (l *Limiter) Allow() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter.Allow()
}
