// internal/platform/resilience/retry_policy.go
package resilience

import (
	"context"
	"math"
	"time"

	"argus/internal/platform/errors"
)

// RetryPolicy describe cuántas veces y con qué espera se reintenta una
// operación. Es un valor inmutable; el mismo policy puede compartirse.
type RetryPolicy struct {
	// MaxAttempts número total de intentos (incluye el primero)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	// Base espera antes del segundo intento
	Base time.Duration `yaml:"base" json:"base"`

	// Multiplier factor exponencial entre intentos
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`

	// Max tope de espera entre intentos
	Max time.Duration `yaml:"max" json:"max"`

	// Retryable decide si un error merece otro intento.
	// Por defecto: errors.IsRetryable
	Retryable func(error) bool `yaml:"-" json:"-"`
}

// DefaultRetryPolicy retorna el policy por defecto: 3 intentos, base 1s,
// multiplicador 2, tope 60s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Base:        time.Second,
		Multiplier:  2.0,
		Max:         60 * time.Second,
	}
}

// Normalize corrige valores fuera de rango.
func (p RetryPolicy) Normalize() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Base <= 0 {
		p.Base = time.Second
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 2.0
	}
	if p.Max <= 0 {
		p.Max = 60 * time.Second
	}
	if p.Max < p.Base {
		p.Max = p.Base
	}
	return p
}

// Backoff calcula la espera tras el intento attempt (0-based):
// Base * Multiplier^attempt, acotado por Max.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	p = p.Normalize()
	if attempt < 0 {
		attempt = 0
	}
	d := float64(p.Base) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.Max) || math.IsInf(d, 0) {
		return p.Max
	}
	return time.Duration(d)
}

// ShouldRetry indica si err en el intento attempt (0-based) admite otro intento.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt+1 >= p.Normalize().MaxAttempts {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return errors.IsRetryable(err)
}

// sleepFunc espera d o hasta que ctx termine.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do ejecuta fn hasta que tenga éxito, el error no sea reintentable, se
// agoten los intentos o ctx termine. Retorna el último error.
func Do(ctx context.Context, p RetryPolicy, fn func(ctx context.Context, attempt int) error) error {
	return doWithSleep(ctx, p, sleepCtx, fn)
}

func doWithSleep(ctx context.Context, p RetryPolicy, sleep sleepFunc, fn func(ctx context.Context, attempt int) error) error {
	p = p.Normalize()
	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err = fn(ctx, attempt); err == nil {
			return nil
		}
		if ctx.Err() != nil || !p.ShouldRetry(err, attempt) {
			return err
		}
		if serr := sleep(ctx, p.Backoff(attempt)); serr != nil {
			return errors.Join(err, serr)
		}
	}
	return err
}
