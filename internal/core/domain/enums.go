// internal/core/domain/enums.go
package domain

import "strings"

// TaskStatus define el estado de una tarea de recolección.
type TaskStatus string

const (
	// TaskPending la tarea fue creada pero ningún collector arrancó
	TaskPending TaskStatus = "pending"

	// TaskRunning los collectors están en ejecución o se está normalizando
	TaskRunning TaskStatus = "running"

	// TaskCompleted la tarea terminó y los resultados están disponibles
	TaskCompleted TaskStatus = "completed"

	// TaskFailed la tarea terminó sin resultados utilizables
	TaskFailed TaskStatus = "failed"

	// TaskCancelled la tarea fue cancelada por el usuario
	TaskCancelled TaskStatus = "cancelled"
)

// IsValid verifica si el estado es conocido.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskPending, TaskRunning, TaskCompleted, TaskFailed, TaskCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal indica si el estado es absorbente.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// CanTransitionTo verifica si la transición s -> next está permitida.
//
//	PENDING -> RUNNING | FAILED | CANCELLED
//	RUNNING -> COMPLETED | FAILED | CANCELLED
//
// Los estados terminales no admiten transiciones.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskPending:
		return next == TaskRunning || next == TaskFailed || next == TaskCancelled
	case TaskRunning:
		return next == TaskCompleted || next == TaskFailed || next == TaskCancelled
	default:
		return false
	}
}

// String retorna la representación string del estado.
func (s TaskStatus) String() string {
	return string(s)
}

// Priority define la prioridad de una tarea de recolección.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority convierte un string a Priority. Valores vacíos o
// desconocidos se tratan como medium.
func ParsePriority(s string) Priority {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p
	default:
		return PriorityMedium
	}
}

// IsValid verifica si la prioridad es válida.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Weight retorna el peso numérico (mayor = más prioritario).
func (p Priority) Weight() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	default:
		return 2
	}
}

// String retorna la representación string de la prioridad.
func (p Priority) String() string {
	return string(p)
}

// TargetType clasifica el objetivo de una recolección.
type TargetType string

const (
	TargetUnknown     TargetType = ""
	TargetCoordinates TargetType = "coordinates"
	TargetEmail       TargetType = "email"
	TargetIP          TargetType = "ip"
	TargetURL         TargetType = "url"
	TargetDomain      TargetType = "domain"
	TargetUsername    TargetType = "username"
)

// String retorna la representación string del tipo.
func (t TargetType) String() string {
	if t == TargetUnknown {
		return "unknown"
	}
	return string(t)
}
