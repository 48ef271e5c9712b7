// Package ratelimit throttles outbound requests to the history provider.
// A single Limiter is shared by every page fetch issued through one upstream client,
// so concurrent prediction requests cannot flood the provider.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	upstreamThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wingo_upstream_throttled_total",
		Help: "Total outbound requests that had to wait for the rate limiter",
	})

	upstreamThrottleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wingo_upstream_throttle_wait_seconds",
		Help:    "Time spent waiting for the outbound rate limiter",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})
)

// Config holds limiter configuration.
type Config struct {
	// RequestsPerSecond is the sustained outbound rate. Zero or less disables limiting.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once. It should be at least the
	// page count so one aggregation can put all pages in flight together.
	Burst int
}

// Limiter gates outbound requests.
type Limiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New creates a limiter. A disabled config yields a limiter that never waits.
func New(cfg Config, logger zerolog.Logger) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return &Limiter{logger: logger}
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		logger:  logger,
	}
}

// Enabled reports whether requests are actually throttled.
func (l *Limiter) Enabled() bool {
	return l != nil && l.limiter != nil
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}

	if l.limiter.Allow() {
		return nil
	}

	start := time.Now()
	upstreamThrottledTotal.Inc()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	waited := time.Since(start)
	upstreamThrottleWaitSeconds.Observe(waited.Seconds())

	l.logger.Debug().
		Dur("waited", waited).
		Msg("Outbound request throttled")

	return nil
}
