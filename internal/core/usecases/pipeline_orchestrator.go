// internal/core/usecases/pipeline_orchestrator.go
package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
	"argus/internal/platform/logx"
	"argus/internal/platform/registry"
	"argus/internal/platform/resilience"
)

// CollectorRegistry es el subconjunto del registry que usa el orchestrator.
type CollectorRegistry interface {
	Build(name string, cfg ports.CollectorConfig, logger logx.Logger) (ports.Collector, error)
	IsRegistered(name string) bool
	GetMetadata(name string) (ports.CollectorMetadata, bool)
}

var _ CollectorRegistry = (*registry.CollectorRegistry)(nil)

// PipelineOrchestratorOptions configura el orchestrator.
type PipelineOrchestratorOptions struct {
	Registry CollectorRegistry
	Router   *CollectorRouter

	// Collectors configuración por nombre; los ausentes usan DefaultCollectorConfig
	Collectors map[string]ports.CollectorConfig

	Compliance  ports.ComplianceChecker
	Broadcaster ports.ProgressBroadcaster
	Handoff     *Handoff

	Normalization NormalizationConfig
	Retry         resilience.RetryPolicy

	// Breaker nil desactiva el circuit breaker
	Breaker *resilience.BreakerConfig

	MaxParallel      int
	CollectorTimeout time.Duration
	TaskTimeout      time.Duration
	ResultTTL        time.Duration
	Shards           int

	// Observer recibe cada snapshot publicado (presenter de la CLI)
	Observer func(domain.CollectionTask)

	Logger logx.Logger
	Clock  func() time.Time
	NewID  func() string
}

// PipelineOrchestrator es la fachada del motor: acepta peticiones, crea
// tareas, las ejecuta en background y expone su estado y resultados.
type PipelineOrchestrator struct {
	registry    CollectorRegistry
	router      *CollectorRouter
	collectors  map[string]ports.CollectorConfig
	compliance  ports.ComplianceChecker
	broadcaster ports.ProgressBroadcaster
	handoff     *Handoff

	tasks    *TaskRegistry
	executor *Executor
	retry    resilience.RetryPolicy
	breaker  *resilience.BreakerConfig

	taskTimeout time.Duration
	observer    func(domain.CollectionTask)
	logger      logx.Logger
	clock       func() time.Time
	newID       func() string

	// breakers y limiters se comparten entre tareas por collector
	guardMu  sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
	limiters map[string]*rate.Limiter

	baseCtx  context.Context
	shutdown context.CancelFunc
	running  sync.WaitGroup
}

// NewPipelineOrchestrator crea el orchestrator.
func NewPipelineOrchestrator(opts PipelineOrchestratorOptions) (*PipelineOrchestrator, error) {
	if opts.Registry == nil {
		opts.Registry = registry.Global()
	}
	if opts.Router == nil {
		opts.Router = NewCollectorRouter()
	}
	if opts.Logger == nil {
		opts.Logger = logx.New()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 5 * time.Minute
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryPolicy()
	}
	if opts.Normalization.Now == nil {
		opts.Normalization.Now = opts.Clock
	}

	normalizer, err := NewNormalizationEngine(opts.Normalization, opts.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "create normalization engine")
	}

	o := &PipelineOrchestrator{
		registry:    opts.Registry,
		router:      opts.Router,
		collectors:  opts.Collectors,
		compliance:  opts.Compliance,
		broadcaster: opts.Broadcaster,
		handoff:     opts.Handoff,
		tasks: NewTaskRegistry(RegistryConfig{
			TTL:    opts.ResultTTL,
			Shards: opts.Shards,
			Clock:  opts.Clock,
		}, opts.Logger),
		retry:       opts.Retry,
		breaker:     opts.Breaker,
		taskTimeout: opts.TaskTimeout,
		observer:    opts.Observer,
		logger:      opts.Logger.With("component", "pipeline_orchestrator"),
		clock:       opts.Clock,
		newID:       opts.NewID,
		breakers:    make(map[string]*resilience.CircuitBreaker),
		limiters:    make(map[string]*rate.Limiter),
	}
	o.baseCtx, o.shutdown = context.WithCancel(context.Background())

	o.executor = NewExecutor(ExecutorConfig{
		MaxParallel:      opts.MaxParallel,
		CollectorTimeout: opts.CollectorTimeout,
		Normalizer:       normalizer,
		Handoff:          opts.Handoff,
		Logger:           opts.Logger,
		OnUpdate:         o.publish,
	})

	return o, nil
}

// StartCollection valida y encola una recolección. Retorna el ID de la
// tarea de inmediato; la ejecución continúa en background.
func (o *PipelineOrchestrator) StartCollection(ctx context.Context, req domain.CollectionRequest) (string, error) {
	route, err := o.router.Route(req.Target, req.CollectorTypes, req.IncludeDarkWeb, req.IncludeMedia)
	if err != nil {
		return "", err
	}
	target := route.Target

	available, unavailable := o.partition(route.Collectors)
	if len(available) == 0 {
		return "", &domain.NoCollectorFoundError{
			Target:     target.Value,
			TargetType: target.Type,
			Requested:  route.Collectors,
		}
	}

	priority := req.Priority
	if !priority.IsValid() {
		priority = domain.PriorityMedium
	}

	tt := newTrackedTask(domain.CollectionTask{
		TaskID:                  o.newID(),
		Target:                  target.Value,
		TargetType:              target.Type,
		RequestedCollectorTypes: append([]string(nil), req.CollectorTypes...),
		Collectors:              route.Collectors,
		Priority:                priority,
	}, o.clock)
	logger := o.logger.With("task_id", tt.ID(), "target", target.Value)

	if o.compliance != nil {
		if err := o.compliance.Check(ctx, target); err != nil {
			reason := err.Error()
			tt.finish(domain.TaskFailed, domain.CollectionResults{}, "ethics violation: "+reason)
			o.tasks.Put(tt)
			o.tasks.Finish(tt.ID())
			o.publish(tt.Snapshot())
			logger.Warn("target rejected by compliance", "reason", reason)
			return "", &domain.EthicsViolationError{Target: target.Value, Reason: reason, TaskID: tt.ID()}
		}
	}

	for name, reason := range unavailable {
		tt.recordCollector(name, false, []string{reason}, 0, 0)
	}

	dispatches, built := o.build(logger, tt, available, priority)

	o.tasks.Put(tt)
	o.publish(tt.Snapshot())
	logger.Info("collection queued", "collectors", route.Collectors, "available", len(dispatches), "priority", string(priority))

	o.running.Add(1)
	go func() {
		defer o.running.Done()
		defer closeAll(logger, built)

		runCtx := context.WithoutCancel(ctx)
		runCtx, stop := context.WithCancel(runCtx)
		defer stop()
		go func() {
			select {
			case <-o.baseCtx.Done():
				stop()
			case <-runCtx.Done():
			}
		}()

		o.executor.Run(runCtx, tt, dispatches, req.Timeout(o.taskTimeout))
		o.tasks.Finish(tt.ID())

		if o.handoff != nil {
			res, _ := tt.Results()
			o.handoff.Export(context.WithoutCancel(ctx), tt.Snapshot(), res)
		}
	}()

	return tt.ID(), nil
}

// partition separa los collectors registrados y habilitados del resto.
// Los no disponibles se registran como fallidos con su motivo.
func (o *PipelineOrchestrator) partition(names []string) ([]string, map[string]string) {
	var available []string
	unavailable := make(map[string]string)
	for _, name := range names {
		switch {
		case !o.registry.IsRegistered(name):
			unavailable[name] = domain.ErrCollectorUnavailable.Error()
		case !o.collectorConfig(name).Enabled:
			unavailable[name] = domain.ErrCollectorUnavailable.Error() + ": disabled"
		default:
			available = append(available, name)
		}
	}
	return available, unavailable
}

// build construye cada collector envuelto en su capa de resiliencia.
func (o *PipelineOrchestrator) build(logger logx.Logger, tt *TrackedTask, names []string, priority domain.Priority) ([]Dispatch, []ports.Collector) {
	dispatches := make([]Dispatch, 0, len(names))
	built := make([]ports.Collector, 0, len(names))

	for _, name := range names {
		cfg := o.collectorConfig(name)
		c, err := o.registry.Build(name, cfg, logger)
		if err != nil {
			logger.Warn("collector build failed", "collector", name, "error", err.Error())
			tt.recordCollector(name, false, []string{domain.ErrCollectorUnavailable.Error() + ": " + err.Error()}, 0, 0)
			continue
		}
		built = append(built, c)

		meta, _ := o.registry.GetMetadata(name)
		prio := cfg.Priority
		if prio == 0 {
			prio = meta.Priority
		}

		dispatches = append(dispatches, Dispatch{
			Collector: o.guard(name, c, cfg, logger),
			Priority:  prio*10 + priority.Weight(),
			Weight:    EstimateCollectorWeight(meta),
			Timeout:   cfg.Timeout,
		})
	}
	return dispatches, built
}

// guard aplica retry, breaker y rate limit. Breaker y limiter viven en el
// orchestrator para que su estado sobreviva a la tarea.
func (o *PipelineOrchestrator) guard(name string, c ports.Collector, cfg ports.CollectorConfig, logger logx.Logger) ports.Collector {
	policy := o.retry
	if cfg.Retries > 0 {
		policy.MaxAttempts = cfg.Retries + 1
	}

	var opts []resilience.RetryableOption

	o.guardMu.Lock()
	if o.breaker != nil {
		cb, ok := o.breakers[name]
		if !ok {
			cb = resilience.NewCircuitBreaker(*o.breaker)
			cb.OnStateChange(func(from, to resilience.State) {
				o.logger.Warn("circuit breaker state changed", "collector", name, "from", from.String(), "to", to.String())
			})
			o.breakers[name] = cb
		}
		opts = append(opts, resilience.WithBreaker(cb))
	}
	if cfg.RateLimit > 0 {
		l, ok := o.limiters[name]
		if !ok {
			l = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)
			o.limiters[name] = l
		}
		opts = append(opts, resilience.WithLimiter(l))
	}
	o.guardMu.Unlock()

	return resilience.NewRetryableCollector(c, policy, logger, opts...)
}

func (o *PipelineOrchestrator) collectorConfig(name string) ports.CollectorConfig {
	if cfg, ok := o.collectors[name]; ok {
		return cfg
	}
	return ports.DefaultCollectorConfig()
}

// publish notifica un snapshot al observer y al broadcaster.
func (o *PipelineOrchestrator) publish(task domain.CollectionTask) {
	if o.observer != nil {
		o.observer(task)
	}
	if o.broadcaster == nil {
		return
	}
	ctx, cancel := context.WithTimeout(o.baseCtx, 5*time.Second)
	defer cancel()
	if err := o.broadcaster.BroadcastProgress(ctx, task.TaskID, task); err != nil {
		o.logger.Debug("broadcast failed", "task_id", task.TaskID, "error", err.Error())
	}
}

// GetTaskStatus retorna un snapshot de la tarea.
func (o *PipelineOrchestrator) GetTaskStatus(taskID string) (domain.CollectionTask, error) {
	tt, err := o.tasks.Get(taskID)
	if err != nil {
		return domain.CollectionTask{}, err
	}
	return tt.Snapshot(), nil
}

// CancelTask cancela una tarea no terminal. Retorna false si ya terminó.
func (o *PipelineOrchestrator) CancelTask(taskID string) (bool, error) {
	tt, err := o.tasks.Get(taskID)
	if err != nil {
		return false, err
	}
	if !tt.requestCancel() {
		return false, nil
	}
	o.tasks.Finish(taskID)
	o.logger.Info("collection cancelled", "task_id", taskID)
	o.publish(tt.Snapshot())
	return true, nil
}

// GetResults retorna los resultados de una tarea terminal.
func (o *PipelineOrchestrator) GetResults(taskID string) (domain.CollectionResults, error) {
	tt, err := o.tasks.Get(taskID)
	if err != nil {
		return domain.CollectionResults{}, err
	}
	res, ok := tt.Results()
	if !ok {
		return domain.CollectionResults{}, &domain.TaskNotCompleteError{TaskID: taskID, Status: tt.Status()}
	}
	return res, nil
}

// Wait bloquea hasta que la tarea termine o ctx se cancele.
func (o *PipelineOrchestrator) Wait(ctx context.Context, taskID string) (domain.CollectionTask, error) {
	tt, err := o.tasks.Get(taskID)
	if err != nil {
		return domain.CollectionTask{}, err
	}
	select {
	case <-tt.Done():
		return tt.Snapshot(), nil
	case <-ctx.Done():
		return tt.Snapshot(), ctx.Err()
	}
}

// ListTasks retorna todas las tareas retenidas, más recientes primero.
func (o *PipelineOrchestrator) ListTasks() []domain.CollectionTask {
	return o.tasks.List()
}

// Sweep elimina tareas terminales vencidas.
func (o *PipelineOrchestrator) Sweep() int {
	return o.tasks.Sweep()
}

// Shutdown cancela las tareas en curso y espera a que terminen.
func (o *PipelineOrchestrator) Shutdown(ctx context.Context) error {
	o.shutdown()

	done := make(chan struct{})
	go func() {
		o.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func closeAll(logger logx.Logger, collectors []ports.Collector) {
	for _, c := range collectors {
		if err := c.Close(); err != nil {
			logger.Debug("collector close failed", "collector", c.Name(), "error", err.Error())
		}
	}
}
