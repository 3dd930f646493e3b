// internal/core/usecases/executor.go
package usecases

import (
	"context"
	"errors"
	"time"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/logx"
	"argus/internal/platform/workerpool"
)

// Dispatch es un collector listo para ejecutarse dentro de una tarea.
type Dispatch struct {
	Collector ports.Collector
	Priority  int
	Weight    int
	Timeout   time.Duration
}

// ExecutorConfig configura el executor.
type ExecutorConfig struct {
	// MaxParallel collectors simultáneos por tarea. Default: 8
	MaxParallel int

	// CollectorTimeout timeout por collector si el Dispatch no define uno
	CollectorTimeout time.Duration

	Normalizer *NormalizationEngine
	Handoff    *Handoff
	Logger     logx.Logger

	// OnUpdate recibe un snapshot tras cada cambio observable
	OnUpdate func(domain.CollectionTask)
}

// Executor ejecuta los collectors de una tarea en paralelo acotado, junta
// sus salidas en un único acumulador y normaliza el resultado. Nunca
// reintenta: eso lo hace el decorador de cada collector.
type Executor struct {
	pool             *workerpool.Pool
	collectorTimeout time.Duration
	normalizer       *NormalizationEngine
	handoff          *Handoff
	logger           logx.Logger
	onUpdate         func(domain.CollectionTask)
}

// NewExecutor crea un executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = logx.NewSilent()
	}
	if cfg.CollectorTimeout <= 0 {
		cfg.CollectorTimeout = 30 * time.Second
	}
	if cfg.OnUpdate == nil {
		cfg.OnUpdate = func(domain.CollectionTask) {}
	}

	return &Executor{
		pool: workerpool.New(workerpool.Config{
			MaxParallel: cfg.MaxParallel,
			Scheduler:   workerpool.NewPriorityScheduler(),
			Logger:      cfg.Logger,
		}),
		collectorTimeout: cfg.CollectorTimeout,
		normalizer:       cfg.Normalizer,
		handoff:          cfg.Handoff,
		logger:           cfg.Logger.With("component", "executor"),
		onUpdate:         cfg.OnUpdate,
	}
}

// accumulator junta records y relaciones de los collectors aceptados.
type accumulator struct {
	records []domain.RawRecord
	rels    []domain.RawRelationship
}

// Run ejecuta la tarea hasta un estado terminal. taskTimeout acota la tarea
// completa; al vencer la tarea pasa a FAILED sin importar sus collectors.
func (e *Executor) Run(ctx context.Context, tt *TrackedTask, dispatches []Dispatch, taskTimeout time.Duration) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	tt.setCancel(cancel)

	if err := tt.start(); err != nil {
		// cancelada antes de arrancar
		e.logger.Debug("task not started", "task_id", tt.ID(), "status", string(tt.Status()))
		return
	}
	snapshot := tt.Snapshot()
	e.onUpdate(snapshot)

	logger := e.logger.With("task_id", snapshot.TaskID, "target", snapshot.Target)
	logger.Info("collection started", "collectors", len(dispatches), "max_parallel", e.pool.MaxParallel())

	// el plazo sigue armado durante la normalización
	var deadline <-chan time.Time
	completeCtx := runCtx
	if taskTimeout > 0 {
		timer := time.NewTimer(taskTimeout)
		defer timer.Stop()
		deadline = timer.C

		var stop context.CancelFunc
		completeCtx, stop = context.WithTimeout(runCtx, taskTimeout)
		defer stop()
	}

	target := domain.NewTarget(snapshot.Target)
	tasks := make([]workerpool.Task, 0, len(dispatches))
	for _, d := range dispatches {
		timeout := d.Timeout
		if timeout <= 0 {
			timeout = e.collectorTimeout
		}
		tasks = append(tasks, NewCollectorTask(d.Collector, target, d.Priority, d.Weight, timeout))
	}

	results := e.pool.Stream(runCtx, tasks)
	acc := &accumulator{}

collect:
	for {
		select {
		case r, ok := <-results:
			if !ok {
				break collect
			}
			e.accept(logger, tt, r, acc)

		case <-tt.Done():
			logger.Info("collection cancelled", "discarding_pending", true)
			go e.drain(tt, results)
			e.onUpdate(tt.Snapshot())
			return

		case <-deadline:
			e.timedOut(logger, tt, taskTimeout)
			go e.drain(tt, results)
			return

		case <-ctx.Done():
			tt.finish(domain.TaskCancelled, domain.CollectionResults{}, "context cancelled: "+ctx.Err().Error())
			go e.drain(tt, results)
			e.onUpdate(tt.Snapshot())
			return
		}
	}

	e.complete(ctx, completeCtx, logger, tt, acc, taskTimeout)
}

func (e *Executor) timedOut(logger logx.Logger, tt *TrackedTask, after time.Duration) {
	te := &domain.TimeoutError{Scope: domain.TimeoutScopeTask, Name: tt.ID(), After: after}
	logger.Warn("task timed out", "after", after.String())
	tt.finish(domain.TaskFailed, domain.CollectionResults{}, te.Error())
	e.onUpdate(tt.Snapshot())
}

// accept registra el resultado de un collector; los resultados que llegan
// con la tarea ya terminal quedan en Discarded y no se fusionan.
func (e *Executor) accept(logger logx.Logger, tt *TrackedTask, r workerpool.TaskResult, acc *accumulator) {
	ct, ok := r.Task.(*CollectorTask)
	if !ok {
		return
	}

	if r.Skipped {
		tt.recordCollector(ct.Name(), false, []string{"not started: " + r.Error.Error()}, 0, 0)
		e.onUpdate(tt.Snapshot())
		return
	}

	succeeded, errs := ct.Outcome()
	out, _ := ct.Result()

	nrec, nrel := 0, 0
	if out != nil {
		nrec, nrel = len(out.Records), len(out.Relationships)
	}

	if !tt.recordCollector(ct.Name(), succeeded, errs, nrec, nrel) {
		logger.Debug("late collector output discarded", "collector", ct.Name())
		return
	}

	if succeeded && out != nil {
		acc.records = append(acc.records, out.Records...)
		acc.rels = append(acc.rels, out.Relationships...)
	}

	if succeeded {
		logger.Info("collector completed", "collector", ct.Name(), "records", nrec, "duration_ms", r.Duration.Milliseconds())
	} else {
		logger.Warn("collector failed", "collector", ct.Name(), "errors", len(errs))
	}
	e.onUpdate(tt.Snapshot())
}

// drain consume las salidas pendientes tras cancelar o vencer la tarea.
func (e *Executor) drain(tt *TrackedTask, results <-chan workerpool.TaskResult) {
	for r := range results {
		if ct, ok := r.Task.(*CollectorTask); ok {
			tt.recordCollector(ct.Name(), false, nil, 0, 0)
		}
	}
}

// complete normaliza y cierra la tarea. La entrega downstream ocurre solo
// si la transición a COMPLETED gana: una tarea cancelada o vencida no deja
// datos persistidos.
func (e *Executor) complete(parent, ctx context.Context, logger logx.Logger, tt *TrackedTask, acc *accumulator, taskTimeout time.Duration) {
	snap := tt.Snapshot()
	if snap.Status.IsTerminal() {
		return
	}

	if len(snap.CollectorsCompleted) == 0 && len(acc.records) == 0 {
		logger.Warn("all collectors failed", "failed", len(snap.CollectorsFailed))
		tt.finish(domain.TaskFailed, domain.CollectionResults{}, "all collectors failed")
		e.onUpdate(tt.Snapshot())
		return
	}

	norm, err := e.normalizer.Normalize(ctx, acc.records, acc.rels)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		switch {
		case tt.Status().IsTerminal():
		case errors.Is(err, context.DeadlineExceeded):
			e.timedOut(logger, tt, taskTimeout)
		case errors.Is(err, context.Canceled):
			tt.finish(domain.TaskCancelled, domain.CollectionResults{}, "context cancelled: "+err.Error())
			e.onUpdate(tt.Snapshot())
		default:
			agg := &domain.AggregationError{Stage: "normalize", Err: err}
			logger.Err(agg)
			tt.finish(domain.TaskFailed, domain.CollectionResults{}, agg.Error())
			e.onUpdate(tt.Snapshot())
		}
		return
	}
	tt.setProgress(progressNormalization)
	e.onUpdate(tt.Snapshot())

	results := domain.CollectionResults{
		Entities:      norm.Entities,
		Relationships: norm.Relationships,
		Sources:       collectSources(acc.records, snap.CollectorsCompleted),
		Invalid:       norm.Invalid,
		Warnings:      norm.Warnings,
	}
	results.TaskID = snap.TaskID
	results.Target = snap.Target

	if !tt.finish(domain.TaskCompleted, results, "") {
		logger.Debug("task ended during normalization", "status", string(tt.Status()))
		e.onUpdate(tt.Snapshot())
		return
	}
	logger.Info("collection completed",
		"entities", len(norm.Entities),
		"relationships", len(norm.Relationships),
		"invalid", len(norm.Invalid),
		"failed_collectors", len(snap.CollectorsFailed),
	)
	e.onUpdate(tt.Snapshot())

	if e.handoff != nil {
		e.handoff.Deliver(context.WithoutCancel(parent), snap.TaskID, results)
	}
}

// collectSources une las fuentes de los records con los collectors exitosos.
func collectSources(records []domain.RawRecord, completed []string) []string {
	sources := append([]string(nil), completed...)
	for _, r := range records {
		sources = append(sources, r.Source)
	}
	return domain.SortedSet(sources)
}
