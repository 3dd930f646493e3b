// internal/adapters/scheduler/scheduler.go
package scheduler

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"argus/internal/core/domain"
	"argus/internal/platform/errors"
	"argus/internal/platform/logx"
)

// Starter inicia recolecciones.
type Starter interface {
	StartCollection(ctx context.Context, req domain.CollectionRequest) (string, error)
}

// Sweeper purga tareas expiradas y retorna cuántas eliminó.
type Sweeper interface {
	Sweep() int
}

// Job es una recolección recurrente.
type Job struct {
	Name    string                   `json:"name"`
	Spec    string                   `json:"spec"`
	Request domain.CollectionRequest `json:"request"`
}

// Status es el estado visible de un job programado.
type Status struct {
	Job
	Next       time.Time `json:"next,omitzero"`
	LastRun    time.Time `json:"last_run,omitzero"`
	LastTaskID string    `json:"last_task_id,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	Runs       int       `json:"runs"`
}

type entry struct {
	id     cron.EntryID
	status Status
}

// Options configura el scheduler.
type Options struct {
	Starter Starter
	// Sweeper y SweepEvery activan la limpieza periódica del registry
	Sweeper    Sweeper
	SweepEvery time.Duration
	Logger     logx.Logger
}

// Service programa recolecciones con expresiones cron estándar
// (incluye descriptores como @every 1h o @daily).
type Service struct {
	mu      sync.Mutex
	cron    *cron.Cron
	starter Starter
	sweeper Sweeper
	every   time.Duration
	jobs    map[string]*entry
	logger  logx.Logger
}

// New crea el servicio. Los jobs se agregan con Add.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logx.NewSilent()
	}
	return &Service{
		cron:    cron.New(),
		starter: opts.Starter,
		sweeper: opts.Sweeper,
		every:   opts.SweepEvery,
		jobs:    make(map[string]*entry),
		logger:  opts.Logger.With("component", "scheduler"),
	}
}

// Add valida y programa un job. Los nombres son únicos.
func (s *Service) Add(job Job) error {
	job.Name = strings.TrimSpace(job.Name)
	if job.Name == "" {
		return errors.Wrap(errors.ErrInvalidInput, "schedule name is empty")
	}
	if strings.TrimSpace(job.Request.Target) == "" {
		return errors.Wrapf(errors.ErrInvalidInput, "schedule %s has no target", job.Name)
	}
	schedule, err := cron.ParseStandard(job.Spec)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "schedule %s: invalid cron expression %q: %v", job.Name, job.Spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return errors.Wrapf(errors.ErrInvalidInput, "schedule %s already exists", job.Name)
	}

	e := &entry{status: Status{Job: job}}
	e.id = s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(job.Name) }))
	s.jobs[job.Name] = e

	s.logger.Info("collection scheduled", "name", job.Name, "spec", job.Spec, "target", job.Request.Target)
	return nil
}

// Remove desprograma un job.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[name]
	if !ok {
		return false
	}
	s.cron.Remove(e.id)
	delete(s.jobs, name)
	return true
}

// RunNow ejecuta un job fuera de su calendario.
func (s *Service) RunNow(name string) error {
	s.mu.Lock()
	_, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "schedule %s", name)
	}
	s.run(name)
	return nil
}

func (s *Service) run(name string) {
	s.mu.Lock()
	e, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return
	}
	req := e.status.Request
	s.mu.Unlock()

	taskID, err := s.starter.StartCollection(context.Background(), req)

	s.mu.Lock()
	defer s.mu.Unlock()
	e.status.LastRun = time.Now()
	e.status.Runs++
	e.status.LastTaskID = taskID
	e.status.LastError = ""
	if err != nil {
		e.status.LastError = err.Error()
		s.logger.Warn("scheduled collection failed to start", "name", name, "error", err.Error())
		return
	}
	s.logger.Info("scheduled collection started", "name", name, "task_id", taskID)
}

// Start arranca el cron. Con Sweeper configurado agrega el job
// "@every <SweepEvery>" de limpieza.
func (s *Service) Start() error {
	if s.sweeper != nil && s.every > 0 {
		_, err := s.cron.AddFunc("@every "+s.every.String(), func() {
			if n := s.sweeper.Sweep(); n > 0 {
				s.logger.Debug("expired tasks swept", "count", n)
			}
		})
		if err != nil {
			return errors.Wrap(err, "schedule registry sweep")
		}
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.List()))
	return nil
}

// Stop detiene el cron y retorna un context que termina cuando los jobs
// en curso finalizan.
func (s *Service) Stop() context.Context {
	return s.cron.Stop()
}

// List retorna el estado de los jobs ordenados por nombre.
func (s *Service) List() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.jobs))
	for _, e := range s.jobs {
		st := e.status
		st.Next = s.cron.Entry(e.id).Next
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
