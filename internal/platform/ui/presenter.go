// internal/platform/ui/presenter.go
package ui

import (
	"sort"
	"time"

	"argus/internal/core/domain"
)

// Presenter define la interfaz para presentar el progreso de una
// recolección de manera visual.
type Presenter interface {
	// Start inicia la presentación con información de la tarea
	Start(info CollectionInfo)

	// Update recibe un snapshot de la tarea cada vez que cambia
	Update(task domain.CollectionTask)

	// Info muestra un mensaje informativo
	Info(msg string)

	// Warning muestra una advertencia
	Warning(msg string)

	// Error muestra un error
	Error(msg string)

	// Finish finaliza la presentación con estadísticas finales
	Finish(stats CollectionStats)

	// Close limpia recursos del presenter
	Close() error
}

// CollectionInfo contiene información inicial de la tarea
type CollectionInfo struct {
	TaskID      string
	Target      string
	TargetType  domain.TargetType
	Collectors  []string
	MaxParallel int
	Timeout     time.Duration
	Fuzzy       bool
}

// CollectionStats contiene estadísticas finales
type CollectionStats struct {
	Status              domain.TaskStatus
	TotalDuration       time.Duration
	Entities            int
	Relationships       int
	Invalid             int
	CollectorsSucceeded int
	CollectorsFailed    int
	EntitiesByType      map[string]int
	Errors              []string
}

// NewCollectionStats arma las estadísticas a partir de la tarea y sus resultados.
func NewCollectionStats(task domain.CollectionTask, results domain.CollectionResults) CollectionStats {
	byType := make(map[string]int)
	for t, n := range results.EntitiesByType() {
		byType[string(t)] = n
	}

	return CollectionStats{
		Status:              task.Status,
		TotalDuration:       task.Duration(),
		Entities:            len(results.Entities),
		Relationships:       len(results.Relationships),
		Invalid:             len(results.Invalid),
		CollectorsSucceeded: len(task.CollectorsCompleted),
		CollectorsFailed:    len(task.CollectorsFailed),
		EntitiesByType:      byType,
		Errors:              task.Errors,
	}
}

// CollectorEvent cambio de estado de un collector entre dos snapshots.
type CollectorEvent struct {
	Name   string
	Status Status
}

// Tracker detecta qué collectors terminaron entre snapshots sucesivos.
// No es thread-safe; el presenter lo protege con su propio mutex.
type Tracker struct {
	seen     map[string]bool
	progress float64
}

// NewTracker crea un tracker vacío.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]bool)}
}

// Observe retorna los collectors terminados desde el último snapshot,
// ordenados por nombre, y el progreso actual.
func (t *Tracker) Observe(task domain.CollectionTask) ([]CollectorEvent, float64) {
	var events []CollectorEvent

	for _, name := range task.CollectorsCompleted {
		if !t.seen[name] {
			t.seen[name] = true
			events = append(events, CollectorEvent{Name: name, Status: StatusSuccess})
		}
	}
	for _, name := range task.CollectorsFailed {
		if !t.seen[name] {
			t.seen[name] = true
			events = append(events, CollectorEvent{Name: name, Status: StatusError})
		}
	}
	for _, name := range task.Discarded {
		if !t.seen[name] {
			t.seen[name] = true
			events = append(events, CollectorEvent{Name: name, Status: StatusSkipped})
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Name < events[j].Name })

	if task.ProgressPercent > t.progress {
		t.progress = task.ProgressPercent
	}
	return events, t.progress
}

// StatusFor mapea el estado terminal de la tarea a un Status visual.
func StatusFor(s domain.TaskStatus) Status {
	switch s {
	case domain.TaskCompleted:
		return StatusSuccess
	case domain.TaskFailed:
		return StatusError
	case domain.TaskCancelled:
		return StatusSkipped
	case domain.TaskRunning:
		return StatusRunning
	default:
		return StatusPending
	}
}
