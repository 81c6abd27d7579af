// Package breaker protects cache fetch functions with a circuit
// breaker. When an origin keeps failing, the breaker rejects further
// fetches immediately instead of letting every cache miss wait out a
// doomed call. A rejected fetch reports an error like any other, so the
// cache's stale fallback applies unchanged.
//
//	b := breaker.New(breaker.DefaultConfig("billing-api"), logger)
//	fetch := breaker.Protect(b, fetchInvoice)
//	inv, err := c.GetOrFetch(ctx, key, fetch, time.Minute)
package breaker

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dmitrymomot/larder"
)

// Breaker rejection errors, re-exported so callers can match them
// without importing gobreaker.
var (
	ErrOpen            = gobreaker.ErrOpenState
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

// Config tunes when the breaker trips and how it probes for recovery.
type Config struct {
	// Name identifies the breaker in logs.
	Name string
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval between closed-state counter resets.
	Interval time.Duration
	// Timeout before an open breaker probes the origin again.
	Timeout time.Duration
	// FailureThreshold is the failure ratio that trips the breaker.
	FailureThreshold float64
	// MinRequests before the ratio is evaluated at all.
	MinRequests uint32
}

// DefaultConfig returns conservative defaults for a cache origin.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "larder"
	}
	def := DefaultConfig(c.Name)
	if c.MaxRequests == 0 {
		c.MaxRequests = def.MaxRequests
	}
	if c.Interval == 0 {
		c.Interval = def.Interval
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.MinRequests == 0 {
		c.MinRequests = def.MinRequests
	}
}

// Breaker wraps one origin. A single breaker can protect any number of
// fetch functions that hit the same backend.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New creates a breaker. A nil log discards state-change output.
func New(cfg Config, log *slog.Logger) *Breaker {
	cfg.applyDefaults()
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				log.Warn("circuit breaker opened",
					slog.String("breaker", name),
					slog.String("from", from.String()),
				)
				return
			}
			log.Info("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &Breaker{cb: cb}
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

type fetchResult[V any] struct {
	val V
}

// Protect wraps a fetch function with the breaker. While the breaker is
// open the returned function fails with [ErrOpen] without calling fetch.
func Protect[V any](b *Breaker, fetch larder.FetchFunc[V]) larder.FetchFunc[V] {
	return func(ctx context.Context) (V, error) {
		out, err := b.cb.Execute(func() (any, error) {
			v, err := fetch(ctx)
			if err != nil {
				return nil, err
			}
			return fetchResult[V]{val: v}, nil
		})
		if err != nil {
			var zero V
			return zero, err
		}
		return out.(fetchResult[V]).val, nil
	}
}
