// internal/platform/workerpool/schedulers.go
package workerpool

import (
	"sort"
)

// PriorityScheduler ordena tareas por prioridad (mayor primero).
type PriorityScheduler struct{}

// NewPriorityScheduler crea un scheduler basado en prioridad.
func NewPriorityScheduler() *PriorityScheduler {
	return &PriorityScheduler{}
}

// Schedule ordena por prioridad descendente; a igual prioridad, menor peso
// primero y luego por nombre para que el orden sea determinista.
func (s *PriorityScheduler) Schedule(tasks []Task) []Task {
	scheduled := make([]Task, len(tasks))
	copy(scheduled, tasks)

	sort.SliceStable(scheduled, func(i, j int) bool {
		a, b := scheduled[i], scheduled[j]
		if a.Priority() != b.Priority() {
			return a.Priority() > b.Priority()
		}
		if a.Weight() != b.Weight() {
			return a.Weight() < b.Weight()
		}
		return a.Name() < b.Name()
	})

	return scheduled
}

// Name retorna el nombre del scheduler.
func (s *PriorityScheduler) Name() string {
	return "priority"
}

// FIFOScheduler no reordena (First In First Out).
type FIFOScheduler struct{}

// NewFIFOScheduler crea un scheduler FIFO.
func NewFIFOScheduler() *FIFOScheduler {
	return &FIFOScheduler{}
}

// Schedule retorna tasks en el orden original.
func (s *FIFOScheduler) Schedule(tasks []Task) []Task {
	scheduled := make([]Task, len(tasks))
	copy(scheduled, tasks)
	return scheduled
}

// Name retorna el nombre del scheduler.
func (s *FIFOScheduler) Name() string {
	return "fifo"
}
