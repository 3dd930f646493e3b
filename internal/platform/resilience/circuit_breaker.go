// internal/platform/resilience/circuit_breaker.go
package resilience

import (
	"sync"
	"time"

	"argus/internal/platform/errors"
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// State representa el estado del circuit breaker.
type State int

const (
	StateClosed   State = iota // operación normal
	StateOpen                  // rechazando peticiones
	StateHalfOpen              // probando si el servicio se recuperó
)

// String retorna una representación legible del estado.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configura un CircuitBreaker.
type BreakerConfig struct {
	// FailureThreshold fallos consecutivos para abrir el circuito
	FailureThreshold int `yaml:"failure_threshold" json:"failure_threshold"`

	// OpenTimeout tiempo que el circuito permanece abierto
	OpenTimeout time.Duration `yaml:"open_timeout" json:"open_timeout"`

	// HalfOpenMax peticiones de prueba en half-open
	HalfOpenMax int `yaml:"half_open_max" json:"half_open_max"`
}

// DefaultBreakerConfig retorna la configuración por defecto.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, OpenTimeout: 60 * time.Second, HalfOpenMax: 3}
}

// CircuitBreaker evita martillear un collector cuyo backend está caído.
// Se comparte entre tareas: un collector roto en una tarea ahorra
// intentos a las siguientes.
type CircuitBreaker struct {
	mu           sync.Mutex
	cfg          BreakerConfig
	state        State
	failures     int
	halfOpenUsed int
	halfOpenOK   int
	openedAt     time.Time
	now          func() time.Time
	onChange     func(from, to State)
}

// NewCircuitBreaker crea un circuit breaker cerrado.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = def.HalfOpenMax
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
	return cb
}

// OnStateChange registra un callback invocado en cada transición.
// Se llama con el lock tomado; no debe volver a entrar al breaker.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onChange = fn
}

// Allow verifica si una petición puede pasar. En half-open reserva uno de
// los cupos de prueba.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.OpenTimeout {
			return false
		}
		cb.transition(StateHalfOpen)
		cb.halfOpenUsed = 1
		return true
	case StateHalfOpen:
		if cb.halfOpenUsed < cb.cfg.HalfOpenMax {
			cb.halfOpenUsed++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess registra una operación exitosa.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.halfOpenOK++
		if cb.halfOpenOK >= cb.cfg.HalfOpenMax {
			cb.transition(StateClosed)
		}
	}
}

// RecordFailure registra una operación fallida.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		cb.transition(StateOpen)
	}
}

// State retorna el estado actual.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset vuelve al estado cerrado.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
}

// transition cambia de estado y resetea contadores. Requiere cb.mu.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.halfOpenUsed = 0
	cb.halfOpenOK = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	if from != to && cb.onChange != nil {
		cb.onChange(from, to)
	}
}
