// internal/core/usecases/collector_task.go
package usecases

import (
	"context"
	"errors"
	"time"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
)

// CollectorTask adapta un ports.Collector a workerpool.Task con su propio
// timeout. El resultado queda guardado para el executor.
type CollectorTask struct {
	collector ports.Collector
	target    domain.Target
	priority  int
	weight    int
	timeout   time.Duration

	// Result storage
	output *domain.CollectorOutput
	err    error
}

// NewCollectorTask crea una CollectorTask.
func NewCollectorTask(c ports.Collector, target domain.Target, priority, weight int, timeout time.Duration) *CollectorTask {
	return &CollectorTask{
		collector: c,
		target:    target,
		priority:  priority,
		weight:    weight,
		timeout:   timeout,
	}
}

type collectorReply struct {
	out *domain.CollectorOutput
	err error
}

// Execute ejecuta el collector bajo context.WithTimeout. Un collector que no
// respeta el contexto se abandona al vencer el plazo.
func (ct *CollectorTask) Execute(ctx context.Context) error {
	cctx := ctx
	cancel := context.CancelFunc(func() {})
	if ct.timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, ct.timeout)
	}
	defer cancel()

	reply := make(chan collectorReply, 1)
	go func() {
		out, err := ct.collector.Execute(cctx, ct.target)
		reply <- collectorReply{out: out, err: err}
	}()

	select {
	case r := <-reply:
		ct.output, ct.err = r.out, r.err
	case <-cctx.Done():
		ct.err = cctx.Err()
	}

	if ct.err != nil && ctx.Err() == nil && errors.Is(ct.err, context.DeadlineExceeded) {
		ct.err = &domain.TimeoutError{Scope: domain.TimeoutScopeCollector, Name: ct.Name(), After: ct.timeout}
	}
	if ct.err != nil {
		ct.err = &domain.CollectorError{Collector: ct.Name(), Err: ct.err}
	}
	return ct.err
}

// Priority retorna la prioridad de la tarea.
func (ct *CollectorTask) Priority() int {
	return ct.priority
}

// Weight retorna el peso/costo estimado de la tarea.
func (ct *CollectorTask) Weight() int {
	return ct.weight
}

// Name retorna el nombre de la tarea (nombre del collector).
func (ct *CollectorTask) Name() string {
	return ct.collector.Name()
}

// Result retorna la salida de la ejecución.
func (ct *CollectorTask) Result() (*domain.CollectorOutput, error) {
	return ct.output, ct.err
}

// Outcome clasifica la ejecución: falla con error duro, timeout, o errores
// sin records. Los errores blandos de un collector exitoso se reportan igual.
func (ct *CollectorTask) Outcome() (ok bool, errs []string) {
	if ct.output != nil {
		errs = append(errs, ct.output.Errors...)
	}
	if ct.err != nil {
		return false, append([]string{ct.err.Error()}, errs...)
	}
	if ct.output == nil {
		return true, nil
	}
	if len(ct.output.Records) == 0 && len(ct.output.Errors) > 0 {
		return false, errs
	}
	return true, errs
}

// EstimateCollectorWeight estima el costo de un collector a partir de su
// metadata: los de red pesan más y un rate limit los vuelve más lentos.
func EstimateCollectorWeight(meta ports.CollectorMetadata) int {
	weight := 20
	if meta.Network {
		weight = 50
	}
	if meta.RateLimit > 0 {
		weight += 20
	}
	if weight > 100 {
		weight = 100
	}
	return weight
}
