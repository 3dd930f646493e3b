// internal/platform/resilience/retryable_collector.go
package resilience

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
	"argus/internal/platform/logx"
)

// errSoftFailure marca una salida sin records y con errores: se trata como
// fallo transitorio para decidir si reintentar.
var errSoftFailure = errors.New("collector returned only errors")

// RetryableCollector envuelve un Collector con retry, circuit breaker y
// rate limiting. El executor nunca reintenta; esta capa es la única que lo hace.
type RetryableCollector struct {
	collector ports.Collector
	policy    RetryPolicy
	breaker   *CircuitBreaker
	limiter   *rate.Limiter
	sleep     sleepFunc
	logger    logx.Logger
}

// RetryableOption configura un RetryableCollector.
type RetryableOption func(*RetryableCollector)

// WithBreaker asocia un circuit breaker (puede compartirse entre tareas).
func WithBreaker(cb *CircuitBreaker) RetryableOption {
	return func(r *RetryableCollector) { r.breaker = cb }
}

// WithRateLimit limita las ejecuciones a rps por segundo (0 = sin límite).
func WithRateLimit(rps int) RetryableOption {
	return func(r *RetryableCollector) {
		if rps > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

// WithLimiter asocia un limiter existente (compartido entre tareas).
func WithLimiter(l *rate.Limiter) RetryableOption {
	return func(r *RetryableCollector) { r.limiter = l }
}

// NewRetryableCollector crea el decorador.
func NewRetryableCollector(c ports.Collector, policy RetryPolicy, logger logx.Logger, opts ...RetryableOption) *RetryableCollector {
	r := &RetryableCollector{
		collector: c,
		policy:    policy.Normalize(),
		sleep:     sleepCtx,
		logger:    logger.With("component", "retryable-collector", "collector", c.Name()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name retorna el nombre del collector subyacente.
func (r *RetryableCollector) Name() string {
	return r.collector.Name()
}

// Unwrap retorna el collector subyacente.
func (r *RetryableCollector) Unwrap() ports.Collector {
	return r.collector
}

// Execute ejecuta el collector con retry. Una salida sin records y con
// errores se reintenta como fallo transitorio; si se agotan los intentos se
// retorna esa última salida sin error duro.
func (r *RetryableCollector) Execute(ctx context.Context, target domain.Target) (*domain.CollectorOutput, error) {
	if r.breaker != nil && !r.breaker.Allow() {
		r.logger.Warn("circuit breaker open, skipping collector")
		return nil, fmt.Errorf("collector %s: %w", r.collector.Name(), ErrCircuitOpen)
	}

	var out *domain.CollectorOutput
	err := doWithSleep(ctx, r.policy, r.sleep, func(ctx context.Context, attempt int) error {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if attempt > 0 {
			r.logger.Info("retrying collector", "attempt", attempt+1, "max_attempts", r.policy.MaxAttempts)
		}

		res, err := r.collector.Execute(ctx, target)
		if err != nil {
			r.logger.Warn("collector attempt failed", "attempt", attempt+1, "error", err.Error())
			return err
		}
		out = res
		if res != nil && len(res.Records) == 0 && len(res.Errors) > 0 {
			return fmt.Errorf("%w: %s", errSoftFailure, strings.Join(res.Errors, "; "))
		}
		return nil
	})

	switch {
	case err == nil:
		r.record(true)
		return out, nil
	case errors.Is(err, errSoftFailure) && out != nil:
		r.record(false)
		return out, nil
	default:
		r.record(false)
		return nil, err
	}
}

// Close cierra el collector subyacente.
func (r *RetryableCollector) Close() error {
	return r.collector.Close()
}

func (r *RetryableCollector) record(ok bool) {
	if r.breaker == nil {
		return
	}
	if ok {
		r.breaker.RecordSuccess()
	} else {
		r.breaker.RecordFailure()
	}
}
