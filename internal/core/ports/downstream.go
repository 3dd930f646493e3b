// internal/core/ports/downstream.go
package ports

import (
	"context"
	"time"

	"argus/internal/core/domain"
)

// EntityStore es el port para persistencia relacional de entidades y
// relaciones resueltas. Los IDs retornados son opacos para el núcleo.
type EntityStore interface {
	// CreateEntity persiste una entidad y retorna su ID
	CreateEntity(ctx context.Context, entity domain.NormalizedEntity) (string, error)

	// CreateRelationship persiste una relación entre dos entidades ya creadas
	CreateRelationship(ctx context.Context, rel domain.NormalizedRelationship, sourceID, targetID string) (string, error)
}

// GraphSync es el port para sincronizar el grafo de entidades.
type GraphSync interface {
	// SyncNode crea o actualiza un nodo
	SyncNode(ctx context.Context, id string, entity domain.NormalizedEntity) error

	// SyncEdge crea o actualiza una arista entre dos nodos
	SyncEdge(ctx context.Context, sourceID, targetID string, rel domain.NormalizedRelationship) error
}

// RiskAssessor evalúa el riesgo de un conjunto de entidades.
type RiskAssessor interface {
	AssessRisk(ctx context.Context, taskID string, entities []domain.NormalizedEntity) (RiskReport, error)
}

// RiskReport es el resultado de una evaluación de riesgo.
type RiskReport struct {
	TaskID      string        `json:"task_id"`
	Score       float64       `json:"score"` // 0-100
	Level       string        `json:"level"` // low, medium, high, critical
	Findings    []RiskFinding `json:"findings,omitempty"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}

// RiskFinding es una señal individual que contribuye al score.
type RiskFinding struct {
	Rule        string  `json:"rule"`
	Entity      string  `json:"entity,omitempty"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// ProgressBroadcaster publica el estado de las tareas a observadores.
type ProgressBroadcaster interface {
	BroadcastProgress(ctx context.Context, taskID string, task domain.CollectionTask) error
}

// ComplianceChecker decide si un target puede recolectarse. Un error no
// nil contiene el motivo del rechazo.
type ComplianceChecker interface {
	Check(ctx context.Context, target domain.Target) error
}

// EventType define los tipos de eventos del ciclo de vida de una tarea.
type EventType string

const (
	EventTaskStarted        EventType = "task.started"
	EventTaskProgress       EventType = "task.progress"
	EventTaskCompleted      EventType = "task.completed"
	EventTaskFailed         EventType = "task.failed"
	EventTaskCancelled      EventType = "task.cancelled"
	EventCollectorCompleted EventType = "collector.completed"
	EventCollectorFailed    EventType = "collector.failed"
)

// Event es el mensaje publicado por los broadcasters.
type Event struct {
	Type      EventType             `json:"type"`
	TaskID    string                `json:"task_id"`
	Timestamp time.Time             `json:"timestamp"`
	Task      domain.CollectionTask `json:"task"`
}

// NewEvent crea un evento derivando el tipo del estado de la tarea.
func NewEvent(task domain.CollectionTask, now time.Time) Event {
	t := EventTaskProgress
	switch task.Status {
	case domain.TaskPending:
		t = EventTaskStarted
	case domain.TaskCompleted:
		t = EventTaskCompleted
	case domain.TaskFailed:
		t = EventTaskFailed
	case domain.TaskCancelled:
		t = EventTaskCancelled
	}
	return Event{Type: t, TaskID: task.TaskID, Timestamp: now, Task: task}
}
