// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errores de dominio comunes. Cada tipo estructurado de abajo se
// desenvuelve a su sentinel, así errors.Is y errors.As funcionan ambos.
var (
	ErrEmptyTarget          = errors.New("target cannot be empty")
	ErrNoCollectorFound     = errors.New("no collector found")
	ErrEthicsViolation      = errors.New("ethics violation")
	ErrCollector            = errors.New("collector failed")
	ErrTimeout              = errors.New("timeout exceeded")
	ErrValidation           = errors.New("validation failed")
	ErrAggregation          = errors.New("aggregation failed")
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskNotComplete      = errors.New("task not complete")
	ErrInvalidTransition    = errors.New("invalid task state transition")
	ErrCollectorNotFound    = errors.New("collector not registered")
	ErrCollectorUnavailable = errors.New("collector unavailable")
)

// NoCollectorFoundError se retorna cuando el routing no produce collectors
// ejecutables para un target.
type NoCollectorFoundError struct {
	Target     string
	TargetType TargetType
	Requested  []string
}

func (e *NoCollectorFoundError) Error() string {
	if len(e.Requested) > 0 {
		return fmt.Sprintf("no collector found for target %q (%s): requested %s",
			e.Target, e.TargetType, strings.Join(e.Requested, ","))
	}
	return fmt.Sprintf("no collector found for target %q (%s)", e.Target, e.TargetType)
}

func (e *NoCollectorFoundError) Unwrap() error { return ErrNoCollectorFound }

// EthicsViolationError se retorna cuando el chequeo de compliance rechaza
// un target. TaskID identifica la tarea registrada como FAILED.
type EthicsViolationError struct {
	Target string
	Reason string
	TaskID string
}

func (e *EthicsViolationError) Error() string {
	return fmt.Sprintf("ethics violation for target %q: %s", e.Target, e.Reason)
}

func (e *EthicsViolationError) Unwrap() error { return ErrEthicsViolation }

// CollectorError describe el fallo de un collector individual.
type CollectorError struct {
	Collector string
	Err       error
}

func (e *CollectorError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("collector %s failed", e.Collector)
	}
	return fmt.Sprintf("collector %s failed: %v", e.Collector, e.Err)
}

func (e *CollectorError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCollector}
	}
	return []error{ErrCollector, e.Err}
}

// TimeoutScope indica qué nivel excedió su tiempo.
type TimeoutScope string

const (
	TimeoutScopeCollector TimeoutScope = "collector"
	TimeoutScopeTask      TimeoutScope = "task"
)

// TimeoutError se produce cuando un collector o una tarea exceden su tiempo.
type TimeoutError struct {
	Scope TimeoutScope
	Name  string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s timed out after %s", e.Scope, e.Name, e.After)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// ValidationError describe los errores duros de un record.
type ValidationError struct {
	Value   string
	Type    EntityType
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s record %q: %s", e.Type, e.Value, strings.Join(e.Reasons, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AggregationError se produce cuando falla la fase de resolución. El motor
// degrada a pass-through en lugar de propagarlo.
type AggregationError struct {
	Stage string
	Err   error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed at %s: %v", e.Stage, e.Err)
}

func (e *AggregationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAggregation}
	}
	return []error{ErrAggregation, e.Err}
}

// TaskNotFoundError se retorna para IDs desconocidos o expirados.
type TaskNotFoundError struct {
	TaskID string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.TaskID)
}

func (e *TaskNotFoundError) Unwrap() error { return ErrTaskNotFound }

// TaskNotCompleteError se retorna al pedir resultados de una tarea activa.
type TaskNotCompleteError struct {
	TaskID string
	Status TaskStatus
}

func (e *TaskNotCompleteError) Error() string {
	return fmt.Sprintf("task %s is not complete (status: %s)", e.TaskID, e.Status)
}

func (e *TaskNotCompleteError) Unwrap() error { return ErrTaskNotComplete }
