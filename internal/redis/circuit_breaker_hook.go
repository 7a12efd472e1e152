package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/pagepulse/pagepulse/internal/metrics"
)

// CircuitBreakerHook implements redis.Hook to add circuit breaker protection
// to all Redis operations. This prevents cascading failures when Redis
// becomes unavailable or slow. The hooks pattern gives automatic coverage of
// every command without wrapping the client.
type CircuitBreakerHook struct {
	cb *gobreaker.TwoStepCircuitBreaker
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

// ErrBreakerOpen is returned when the circuit is open and the command was not
// attempted.
var ErrBreakerOpen = errors.New("redis circuit breaker open")

func NewCircuitBreakerHook() *CircuitBreakerHook {
	cb := gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:    "redis",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRate >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"component", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.CircuitBreakerStateChanges.WithLabelValues(name, to.String()).Inc()
		},
	})

	return &CircuitBreakerHook{cb: cb}
}

// DialHook wraps connection establishment with the circuit breaker
func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		done, err := h.cb.Allow()
		if err != nil {
			return nil, fmt.Errorf("circuit breaker dial failed: %w", ErrBreakerOpen)
		}

		conn, err := next(ctx, network, addr)
		done(err == nil)
		if err != nil {
			return nil, fmt.Errorf("circuit breaker dial failed: %w", err)
		}
		return conn, nil
	}
}

// ProcessHook wraps command execution with the circuit breaker
func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		done, acquireErr := h.cb.Allow()
		if acquireErr != nil {
			return ErrBreakerOpen
		}

		err := next(ctx, cmd)
		// redis.Nil is a valid "key missing" result, not a failure
		done(err == nil || errors.Is(err, goredis.Nil))
		return err
	}
}

// ProcessPipelineHook wraps pipeline execution with the circuit breaker
func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		done, acquireErr := h.cb.Allow()
		if acquireErr != nil {
			return ErrBreakerOpen
		}

		err := next(ctx, cmds)
		done(err == nil)
		return err
	}
}

// State returns the current breaker state (for testing/monitoring).
func (h *CircuitBreakerHook) State() gobreaker.State {
	return h.cb.State()
}
