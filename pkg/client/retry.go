package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/Sternrassler/vpp-client/pkg/vpp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for caller-side retries.
var (
	vppRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpp_retries_total",
		Help: "Total number of retry attempts by error kind",
	}, []string{"kind"})

	vppRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vpp_retry_backoff_seconds",
		Help:    "Backoff duration before a retry",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	vppRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpp_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error kind",
	}, []string{"kind"})
)

// RetryConfig holds the configuration for Retry.
//
// The client never retries on its own: a failed batched fetch is reported
// to the caller, who may wrap the whole fetch in Retry.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ShouldRetry reports whether err is worth another attempt: transport
// failures and API errors caused by a 5xx HTTP status. Business errors and
// protocol violations will fail the same way again.
func ShouldRetry(err error) bool {
	switch vpp.KindOf(err) {
	case vpp.KindTransport:
		return !errors.Is(err, context.Canceled)
	case vpp.KindAPI:
		var apiErr *vpp.APIError
		return errors.As(err, &apiErr) && apiErr.HTTPStatus >= http.StatusInternalServerError
	default:
		return false
	}
}

// Retry runs fn until it succeeds, returns a non-retriable error, or
// MaxAttempts is reached. It waits with exponential backoff and ±20% jitter
// between attempts and stops when ctx is done.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = 1
	}

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		kind := string(vpp.KindOf(err))

		if !ShouldRetry(err) {
			return err
		}

		if attempt >= cfg.MaxAttempts {
			break
		}

		vppRetriesTotal.WithLabelValues(kind).Inc()

		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		vppRetryBackoffSeconds.Observe(jitter.Seconds())

		log.Warn().
			Err(err).
			Str("error_kind", kind).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying after backoff")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	vppRetryExhaustedTotal.WithLabelValues(string(vpp.KindOf(lastErr))).Inc()
	log.Warn().
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, cfg.MaxAttempts, lastErr)
}
