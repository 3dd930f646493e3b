// internal/platform/workerpool/worker_pool.go
package workerpool

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"argus/internal/platform/logx"
)

// Task representa una tarea a ejecutar en el pool.
type Task interface {
	// Execute ejecuta la tarea
	Execute(ctx context.Context) error

	// Priority retorna la prioridad de la tarea (mayor = más prioritario)
	Priority() int

	// Weight retorna el peso/costo estimado de la tarea (0-100)
	Weight() int

	// Name retorna el nombre de la tarea
	Name() string
}

// Scheduler define el orden en que las tareas entran al pool.
type Scheduler interface {
	// Schedule ordena las tareas según la estrategia
	Schedule(tasks []Task) []Task

	// Name retorna el nombre del scheduler
	Name() string
}

// TaskResult representa el resultado de una tarea.
type TaskResult struct {
	Task     Task
	Error    error
	Duration time.Duration

	// Skipped indica que la tarea nunca arrancó porque ctx ya había terminado
	Skipped bool
}

// Config configura el pool.
type Config struct {
	// MaxParallel tareas simultáneas. Default: 8
	MaxParallel int
	Scheduler   Scheduler
	Logger      logx.Logger
}

// Pool ejecuta tareas con paralelismo acotado. Las tareas arrancan en el
// orden del scheduler; las que exceden el límite esperan su turno.
type Pool struct {
	limit     int
	scheduler Scheduler
	logger    logx.Logger
}

// New crea un pool.
func New(cfg Config) *Pool {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 8
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewPriorityScheduler()
	}
	if cfg.Logger == nil {
		cfg.Logger = logx.NewSilent()
	}

	return &Pool{
		limit:     cfg.MaxParallel,
		scheduler: cfg.Scheduler,
		logger:    cfg.Logger.With("component", "worker-pool"),
	}
}

// MaxParallel retorna el límite de concurrencia.
func (p *Pool) MaxParallel() int {
	return p.limit
}

// Stream ejecuta las tareas en background y emite un resultado por tarea.
// El canal se cierra cuando todas terminaron. Un error de tarea no cancela
// a las demás; la cancelación llega solo por ctx.
func (p *Pool) Stream(ctx context.Context, tasks []Task) <-chan TaskResult {
	results := make(chan TaskResult, len(tasks))
	ordered := p.scheduler.Schedule(tasks)

	p.logger.Debug("dispatching tasks", "count", len(ordered), "max_parallel", p.limit, "scheduler", p.scheduler.Name())

	go func() {
		defer close(results)

		var g errgroup.Group
		g.SetLimit(p.limit)

		for _, task := range ordered {
			if err := ctx.Err(); err != nil {
				results <- TaskResult{Task: task, Error: err, Skipped: true}
				continue
			}

			g.Go(func() error {
				start := time.Now()
				p.logger.Debug("executing task", "task", task.Name(), "priority", task.Priority(), "weight", task.Weight())

				err := task.Execute(ctx)
				duration := time.Since(start)

				p.logger.Debug("task completed", "task", task.Name(), "duration_ms", duration.Milliseconds(), "error", err != nil)
				results <- TaskResult{Task: task, Error: err, Duration: duration}
				return nil
			})
		}

		_ = g.Wait()
	}()

	return results
}

// Run ejecuta las tareas y espera a que terminen todas.
func (p *Pool) Run(ctx context.Context, tasks []Task) []TaskResult {
	out := make([]TaskResult, 0, len(tasks))
	for r := range p.Stream(ctx, tasks) {
		out = append(out, r)
	}
	return out
}
