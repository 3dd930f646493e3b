// internal/core/domain/task.go
package domain

import (
	"time"
)

// CollectionRequest es la petición de entrada para una recolección.
type CollectionRequest struct {
	Target         string   `json:"target" yaml:"target"`
	CollectorTypes []string `json:"collector_types,omitempty" yaml:"collector_types"`
	IncludeDarkWeb bool     `json:"include_darkweb,omitempty" yaml:"include_darkweb"`
	IncludeMedia   bool     `json:"include_media,omitempty" yaml:"include_media"`
	Priority       Priority `json:"priority,omitempty" yaml:"priority"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty" yaml:"timeout_seconds"`
}

// Timeout retorna el timeout de la tarea o def si no se especificó.
func (r CollectionRequest) Timeout(def time.Duration) time.Duration {
	if r.TimeoutSeconds <= 0 {
		return def
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// CollectionTask es el estado observable de una tarea de recolección.
// Solo el executor la muta; el resto del sistema trabaja con copias.
type CollectionTask struct {
	TaskID                  string     `json:"task_id"`
	Target                  string     `json:"target"`
	TargetType              TargetType `json:"target_type"`
	RequestedCollectorTypes []string   `json:"requested_collector_types"`
	Collectors              []string   `json:"collectors"`
	Priority                Priority   `json:"priority"`
	Status                  TaskStatus `json:"status"`
	ProgressPercent         float64    `json:"progress_percent"`
	CollectorsCompleted     []string   `json:"collectors_completed"`
	CollectorsFailed        []string   `json:"collectors_failed"`
	Discarded               []string   `json:"discarded,omitempty"`
	EntitiesCollected       int        `json:"entities_collected"`
	RelationshipsCollected  int        `json:"relationships_collected"`
	Errors                  []string   `json:"errors,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	StartedAt               time.Time  `json:"started_at,omitzero"`
	EndedAt                 time.Time  `json:"ended_at,omitzero"`
}

// Clone retorna una copia profunda (snapshot).
func (t CollectionTask) Clone() CollectionTask {
	c := t
	c.RequestedCollectorTypes = cloneStrings(t.RequestedCollectorTypes)
	c.Collectors = cloneStrings(t.Collectors)
	c.CollectorsCompleted = cloneStrings(t.CollectorsCompleted)
	c.CollectorsFailed = cloneStrings(t.CollectorsFailed)
	c.Discarded = cloneStrings(t.Discarded)
	c.Errors = cloneStrings(t.Errors)
	return c
}

// Duration retorna el tiempo de ejecución (hasta ahora si sigue activa).
func (t CollectionTask) Duration() time.Duration {
	if t.StartedAt.IsZero() {
		return 0
	}
	if t.EndedAt.IsZero() {
		return time.Since(t.StartedAt)
	}
	return t.EndedAt.Sub(t.StartedAt)
}

// Finished retorna cuántos collectors terminaron (éxito o fallo).
func (t CollectionTask) Finished() int {
	return len(t.CollectorsCompleted) + len(t.CollectorsFailed)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
