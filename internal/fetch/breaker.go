package fetch

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"

	"github.com/omarluq/dashcache/internal/config"
)

// State represents the circuit breaker state.
type State = gobreaker.State

// Circuit breaker state constants.
const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

// Breaker guards the backend with a gobreaker TwoStepCircuitBreaker.
type Breaker struct {
	cb *gobreaker.TwoStepCircuitBreaker[struct{}]
}

// NewBreaker creates a breaker named after the backend it protects.
func NewBreaker(name string, cfg config.BreakerConfig) *Breaker {
	threshold := uint32(cfg.GetFailureThreshold()) //nolint:gosec // accessor never returns <= 0
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(cfg.GetHalfOpenProbes()), //nolint:gosec // accessor never returns <= 0
		Timeout:     cfg.GetOpenDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log := logger()
			event := log.Info()
			if to == gobreaker.StateOpen {
				event = log.Warn()
			}
			event.
				Str("backend", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &Breaker{cb: gobreaker.NewTwoStepCircuitBreaker[struct{}](settings)}
}

// Allow checks if a request may go to the backend.
// The returned done must be called with the outcome.
func (b *Breaker) Allow() (done func(err error), err error) {
	d, err := b.cb.Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return d, nil
}

// State returns the current circuit breaker state.
func (b *Breaker) State() State {
	return b.cb.State()
}

// ShouldCountAsFailure reports whether an outcome should count against the backend.
// Client errors other than 429 mean the backend is answering.
func ShouldCountAsFailure(statusCode int, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	return statusCode >= 500 || statusCode == 429
}
