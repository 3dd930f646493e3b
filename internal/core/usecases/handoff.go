// internal/core/usecases/handoff.go
package usecases

import (
	"context"
	"time"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/logx"
)

// HandoffConfig agrupa los puertos downstream. Todos son opcionales.
type HandoffConfig struct {
	Store     ports.EntityStore
	Graph     ports.GraphSync
	Risk      ports.RiskAssessor
	Exporters []ports.Exporter
	Logger    logx.Logger

	// CallTimeout acota cada llamada downstream. Default: 30s
	CallTimeout time.Duration
}

// HandoffReport resume una entrega.
type HandoffReport struct {
	EntityIDs     map[string]string // fingerprint key -> id
	Relationships int
	Skipped       int
	Risk          *ports.RiskReport
	Failures      int
}

// Handoff entrega los resultados a storage, grafo y evaluación de riesgo.
// Es fire-and-forget: los fallos se loguean y nunca revierten la tarea.
type Handoff struct {
	store     ports.EntityStore
	graph     ports.GraphSync
	risk      ports.RiskAssessor
	exporters []ports.Exporter
	timeout   time.Duration
	logger    logx.Logger
}

// NewHandoff crea el handoff.
func NewHandoff(cfg HandoffConfig) *Handoff {
	if cfg.Logger == nil {
		cfg.Logger = logx.NewSilent()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Handoff{
		store:     cfg.Store,
		graph:     cfg.Graph,
		risk:      cfg.Risk,
		exporters: cfg.Exporters,
		timeout:   cfg.CallTimeout,
		logger:    cfg.Logger.With("component", "handoff"),
	}
}

// Deliver crea entidades primero y luego relaciones resueltas por
// (type, value) contra los IDs devueltos. Extremos sin ID se saltan.
func (h *Handoff) Deliver(ctx context.Context, taskID string, results domain.CollectionResults) HandoffReport {
	report := HandoffReport{EntityIDs: make(map[string]string, len(results.Entities))}
	logger := h.logger.With("task_id", taskID)

	if h.store != nil {
		for _, ent := range results.Entities {
			key := ent.Fingerprint().Key()

			cctx, cancel := context.WithTimeout(ctx, h.timeout)
			id, err := h.store.CreateEntity(cctx, ent)
			cancel()
			if err != nil {
				report.Failures++
				logger.Warn("entity store failed", "entity", key, "error", err.Error())
				continue
			}
			report.EntityIDs[key] = id

			if h.graph != nil {
				cctx, cancel := context.WithTimeout(ctx, h.timeout)
				if err := h.graph.SyncNode(cctx, id, ent); err != nil {
					report.Failures++
					logger.Warn("graph node sync failed", "entity", key, "error", err.Error())
				}
				cancel()
			}
		}

		for _, rel := range results.Relationships {
			srcID, okSrc := report.EntityIDs[rel.SourceFingerprint().Key()]
			tgtID, okTgt := report.EntityIDs[rel.TargetFingerprint().Key()]
			if !okSrc || !okTgt {
				report.Skipped++
				logger.Debug("relationship endpoint unresolved", "relationship", rel.Key())
				continue
			}

			cctx, cancel := context.WithTimeout(ctx, h.timeout)
			_, err := h.store.CreateRelationship(cctx, rel, srcID, tgtID)
			cancel()
			if err != nil {
				report.Failures++
				logger.Warn("relationship store failed", "relationship", rel.Key(), "error", err.Error())
				continue
			}
			report.Relationships++

			if h.graph != nil {
				cctx, cancel := context.WithTimeout(ctx, h.timeout)
				if err := h.graph.SyncEdge(cctx, srcID, tgtID, rel); err != nil {
					report.Failures++
					logger.Warn("graph edge sync failed", "relationship", rel.Key(), "error", err.Error())
				}
				cancel()
			}
		}
	}

	if h.risk != nil {
		cctx, cancel := context.WithTimeout(ctx, h.timeout)
		rr, err := h.risk.AssessRisk(cctx, taskID, results.Entities)
		cancel()
		if err != nil {
			report.Failures++
			logger.Warn("risk assessment failed", "error", err.Error())
		} else {
			report.Risk = &rr
			logger.Info("risk assessed", "score", rr.Score, "level", rr.Level, "findings", len(rr.Findings))
		}
	}

	logger.Debug("handoff done",
		"entities", len(report.EntityIDs),
		"relationships", report.Relationships,
		"skipped", report.Skipped,
		"failures", report.Failures,
	)
	return report
}

// Export entrega una tarea terminal a los exporters configurados.
func (h *Handoff) Export(ctx context.Context, task domain.CollectionTask, results domain.CollectionResults) {
	for _, exp := range h.exporters {
		cctx, cancel := context.WithTimeout(ctx, h.timeout)
		if err := exp.Export(cctx, task, results); err != nil {
			h.logger.Warn("export failed", "exporter", exp.Name(), "task_id", task.TaskID, "error", err.Error())
		}
		cancel()
	}
}
