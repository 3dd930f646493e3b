// internal/core/usecases/task_registry.go
package usecases

import (
	"sort"
	"time"

	"argus/internal/core/domain"
	"argus/internal/platform/cache"
	"argus/internal/platform/logx"
)

// RegistryConfig configura el registro de tareas.
type RegistryConfig struct {
	// TTL tiempo que una tarea terminal sigue consultable. Default: 1h
	TTL time.Duration

	// Shards particiones del store. Default: 16
	Shards int

	// Clock reemplaza time.Now en tests
	Clock func() time.Time
}

// TaskRegistry guarda las tareas activas y terminadas. Las tareas activas
// nunca expiran; al terminar reciben el TTL y el sweep las elimina.
type TaskRegistry struct {
	store  *cache.Cache[*TrackedTask]
	ttl    time.Duration
	clock  func() time.Time
	logger logx.Logger
}

// NewTaskRegistry crea un registro sobre un cache sharded.
func NewTaskRegistry(cfg RegistryConfig, logger logx.Logger) *TaskRegistry {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if logger == nil {
		logger = logx.NewSilent()
	}
	logger = logger.With("component", "task-registry")

	return &TaskRegistry{
		store: cache.New[*TrackedTask](cache.Options{
			Shards: cfg.Shards,
			Clock:  cfg.Clock,
			OnEvict: func(key string, reason cache.EvictReason) {
				logger.Debug("task evicted", "task_id", key, "reason", string(reason))
			},
		}),
		ttl:    cfg.TTL,
		clock:  cfg.Clock,
		logger: logger,
	}
}

// Put registra una tarea sin expiración.
func (r *TaskRegistry) Put(t *TrackedTask) {
	r.store.Set(t.ID(), t, 0)
}

// Get retorna la tarea o *domain.TaskNotFoundError si no existe o expiró.
func (r *TaskRegistry) Get(id string) (*TrackedTask, error) {
	t, ok := r.store.Get(id)
	if !ok {
		return nil, &domain.TaskNotFoundError{TaskID: id}
	}
	return t, nil
}

// Finish inicia el TTL de una tarea terminal.
func (r *TaskRegistry) Finish(id string) {
	if !r.store.Expire(id, r.ttl) {
		r.logger.Debug("finish on unknown task", "task_id", id)
	}
}

// List retorna snapshots de todas las tareas vivas, más recientes primero.
func (r *TaskRegistry) List() []domain.CollectionTask {
	var out []domain.CollectionTask
	r.store.Range(func(_ string, t *TrackedTask) bool {
		out = append(out, t.Snapshot())
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

// Len retorna la cantidad de tareas almacenadas.
func (r *TaskRegistry) Len() int {
	return r.store.Len()
}

// Sweep elimina las tareas cuyo TTL venció.
func (r *TaskRegistry) Sweep() int {
	n := r.store.CleanExpired()
	if n > 0 {
		r.logger.Info("expired tasks swept", "count", n)
	}
	return n
}
