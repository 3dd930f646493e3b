// internal/core/usecases/tracked_task.go
package usecases

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"argus/internal/core/domain"
)

// Hitos de progreso fuera de la fase de recolección.
const (
	progressCollection    = 80.0
	progressNormalization = 90.0
	progressDone          = 100.0
)

// TrackedTask es el handle mutable de una tarea. Solo el executor y el
// orchestrator lo modifican; el resto lee snapshots.
type TrackedTask struct {
	mu      sync.RWMutex
	task    domain.CollectionTask
	results *domain.CollectionResults
	cancel  context.CancelFunc
	done    chan struct{}
	now     func() time.Time
}

func newTrackedTask(task domain.CollectionTask, now func() time.Time) *TrackedTask {
	if now == nil {
		now = time.Now
	}
	if task.Status == "" {
		task.Status = domain.TaskPending
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now().UTC()
	}
	return &TrackedTask{
		task: task,
		done: make(chan struct{}),
		now:  now,
	}
}

// ID retorna el identificador de la tarea.
func (t *TrackedTask) ID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.task.TaskID
}

// Snapshot retorna una copia del estado actual.
func (t *TrackedTask) Snapshot() domain.CollectionTask {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.task.Clone()
}

// Status retorna el estado actual.
func (t *TrackedTask) Status() domain.TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.task.Status
}

// Done se cierra cuando la tarea alcanza un estado terminal.
func (t *TrackedTask) Done() <-chan struct{} {
	return t.done
}

// Results retorna los resultados si la tarea terminó.
func (t *TrackedTask) Results() (domain.CollectionResults, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.results == nil {
		return domain.CollectionResults{}, false
	}
	return *t.results, true
}

func (t *TrackedTask) setCancel(cancel context.CancelFunc) {
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
}

// start mueve PENDING -> RUNNING.
func (t *TrackedTask) start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.transitionLocked(domain.TaskRunning); err != nil {
		return err
	}
	t.task.StartedAt = t.now().UTC()
	return nil
}

// finish mueve la tarea a un estado terminal con sus resultados. Retorna
// false si ya era terminal (los estados terminales absorben).
func (t *TrackedTask) finish(status domain.TaskStatus, results domain.CollectionResults, reason string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.transitionLocked(status); err != nil {
		return false
	}
	if reason != "" {
		t.task.Errors = append(t.task.Errors, reason)
	}
	if status == domain.TaskCompleted {
		t.task.ProgressPercent = progressDone
		// conteos post-deduplicación
		t.task.EntitiesCollected = len(results.Entities)
		t.task.RelationshipsCollected = len(results.Relationships)
	}
	t.task.EndedAt = t.now().UTC()
	if t.task.StartedAt.IsZero() {
		t.task.StartedAt = t.task.EndedAt
	}

	if status != domain.TaskCompleted {
		results.Entities = nil
		results.Relationships = nil
	}
	results.TaskID = t.task.TaskID
	results.Target = t.task.Target
	results.Status = status
	results.Errors = append(append([]string(nil), t.task.Errors...), results.Errors...)
	results.Errors = dedupeOrdered(results.Errors)
	t.results = &results

	if t.cancel != nil {
		t.cancel()
	}
	close(t.done)
	return true
}

// requestCancel cancela una tarea no terminal.
func (t *TrackedTask) requestCancel() bool {
	return t.finish(domain.TaskCancelled, domain.CollectionResults{}, "cancelled by request")
}

func (t *TrackedTask) transitionLocked(to domain.TaskStatus) error {
	from := t.task.Status
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	t.task.Status = to
	return nil
}

// setProgress nunca hace retroceder el progreso.
func (t *TrackedTask) setProgress(p float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p > progressDone {
		p = progressDone
	}
	if p > t.task.ProgressPercent {
		t.task.ProgressPercent = p
	}
}

// recordCollector registra el resultado de un collector y actualiza el
// progreso de la fase de recolección. Ignora resultados tardíos de tareas
// terminales: van a Discarded.
func (t *TrackedTask) recordCollector(name string, ok bool, errs []string, records, rels int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.task.Status.IsTerminal() {
		t.task.Discarded = insertSorted(t.task.Discarded, name)
		return false
	}

	if ok {
		t.task.CollectorsCompleted = insertSorted(t.task.CollectorsCompleted, name)
		t.task.EntitiesCollected += records
		t.task.RelationshipsCollected += rels
	} else {
		t.task.CollectorsFailed = insertSorted(t.task.CollectorsFailed, name)
	}
	for _, e := range errs {
		t.task.Errors = append(t.task.Errors, name+": "+e)
	}

	if total := len(t.task.Collectors); total > 0 {
		p := float64(t.task.Finished()) / float64(total) * progressCollection
		if p > t.task.ProgressPercent {
			t.task.ProgressPercent = p
		}
	}
	return true
}

// addErrors agrega errores a nivel tarea.
func (t *TrackedTask) addErrors(errs ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.task.Errors = append(t.task.Errors, errs...)
}

func insertSorted(list []string, v string) []string {
	i := sort.SearchStrings(list, v)
	if i < len(list) && list[i] == v {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}

func dedupeOrdered(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
