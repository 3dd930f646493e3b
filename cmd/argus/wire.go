// cmd/argus/wire.go
package main

import (
	"context"
	"fmt"

	"argus/internal/adapters/compliance"
	"argus/internal/adapters/graph"
	"argus/internal/adapters/notify"
	"argus/internal/adapters/output"
	"argus/internal/adapters/risk"
	"argus/internal/adapters/storage/postgres"
	"argus/internal/adapters/storage/sqlite"
	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/core/usecases"
	"argus/internal/platform/config"
	"argus/internal/platform/logx"
	"argus/internal/platform/resilience"
)

// stack agrupa los adapters downstream construidos desde la config.
type stack struct {
	store        ports.EntityStore
	graph        *graph.Graph
	broadcasters notify.MultiBroadcaster
	json         *output.JSONExporter
	exporters    []ports.Exporter
	closers      []func() error
}

type stackOptions struct {
	// stream agrega el writer NDJSON de eventos en el directorio de salida
	stream bool
}

func buildStack(ctx context.Context, cfg config.Config, logger logx.Logger, opts stackOptions) (*stack, error) {
	st := &stack{graph: graph.New(logger)}

	switch cfg.Storage.Driver {
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.Storage.DSN, logger)
		if err != nil {
			return nil, err
		}
		st.store = s
		st.closers = append(st.closers, s.Close)
	case "postgres":
		s, err := postgres.Open(ctx, cfg.Storage.DSN, logger)
		if err != nil {
			return nil, err
		}
		st.store = s
		st.closers = append(st.closers, s.Close)
	case "none", "":
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	switch cfg.Broadcast.Driver {
	case "log":
		st.broadcasters = append(st.broadcasters, notify.NewLogBroadcaster(logger))
	case "amqp":
		b, err := notify.DialAMQP(cfg.Broadcast.URL, cfg.Broadcast.Exchange, logger)
		if err != nil {
			st.Close(logger)
			return nil, err
		}
		st.broadcasters = append(st.broadcasters, b)
		st.closers = append(st.closers, b.Close)
	case "none", "":
	default:
		st.Close(logger)
		return nil, fmt.Errorf("unknown broadcast driver %q", cfg.Broadcast.Driver)
	}
	if opts.stream {
		w := output.NewStreamingWriter(cfg.Output.Dir, logger)
		st.broadcasters = append(st.broadcasters, w)
		st.closers = append(st.closers, w.Close)
	}

	st.json = output.NewJSONExporter(cfg.Output.Dir)
	st.exporters = append(st.exporters, st.json)

	if cfg.Archive.Enabled {
		client, err := output.NewS3Client(ctx, output.S3Options{
			Bucket:    cfg.Archive.Bucket,
			Prefix:    cfg.Archive.Prefix,
			Region:    cfg.Archive.Region,
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
		})
		if err != nil {
			st.Close(logger)
			return nil, err
		}
		archiver, err := output.NewS3Archiver(client, cfg.Archive.Bucket, cfg.Archive.Prefix, logger)
		if err != nil {
			st.Close(logger)
			return nil, err
		}
		st.exporters = append(st.exporters, archiver)
	}

	return st, nil
}

// Close libera conexiones y archivos abiertos.
func (st *stack) Close(logger logx.Logger) {
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](); err != nil {
			logger.Warn("failed to close resource", "error", err.Error())
		}
	}
	st.closers = nil
}

func (st *stack) broadcaster() ports.ProgressBroadcaster {
	switch len(st.broadcasters) {
	case 0:
		return nil
	case 1:
		return st.broadcasters[0]
	default:
		return st.broadcasters
	}
}

func newOrchestrator(cfg config.Config, logger logx.Logger, st *stack, observer func(domain.CollectionTask)) (*usecases.PipelineOrchestrator, error) {
	handoff := usecases.NewHandoff(usecases.HandoffConfig{
		Store:     st.store,
		Graph:     st.graph,
		Risk:      risk.New(risk.Thresholds{}, logger),
		Exporters: st.exporters,
		Logger:    logger,
	})

	var checker ports.ComplianceChecker
	if cfg.Compliance.Enabled {
		checker = compliance.New(compliance.Options{
			BlockedTargets:  cfg.Compliance.BlockedTargets,
			BlockedSuffixes: cfg.Compliance.BlockedSuffixes,
			AllowPrivate:    cfg.Compliance.AllowPrivate,
			MaxTargetLength: cfg.Compliance.MaxTargetLength,
		})
	}

	var breaker *resilience.BreakerConfig
	if cfg.Resilience.CircuitBreakerEnabled {
		breaker = &resilience.BreakerConfig{
			FailureThreshold: cfg.Resilience.CircuitBreakerThreshold,
			OpenTimeout:      cfg.Resilience.CircuitBreakerTimeout,
			HalfOpenMax:      cfg.Resilience.CircuitBreakerHalfOpenMax,
		}
	}

	return usecases.NewPipelineOrchestrator(usecases.PipelineOrchestratorOptions{
		Collectors:  cfg.Collectors,
		Compliance:  checker,
		Broadcaster: st.broadcaster(),
		Handoff:     handoff,
		Normalization: usecases.NormalizationConfig{
			Fuzzy:        cfg.Normalization.Fuzzy,
			Threshold:    cfg.Normalization.Threshold,
			Permutations: cfg.Normalization.Permutations,
			Seed:         cfg.Normalization.Seed,
		},
		Retry: resilience.RetryPolicy{
			MaxAttempts: cfg.Resilience.MaxRetries,
			Base:        cfg.Resilience.BackoffBase,
			Multiplier:  cfg.Resilience.BackoffMultiplier,
			Max:         cfg.Resilience.BackoffMax,
		},
		Breaker:          breaker,
		MaxParallel:      cfg.Collection.MaxParallel,
		CollectorTimeout: cfg.Collection.CollectorTimeout,
		TaskTimeout:      cfg.Collection.TaskTimeout,
		ResultTTL:        cfg.Collection.ResultTTL,
		Shards:           cfg.Collection.Shards,
		Observer:         observer,
		Logger:           logger,
	})
}
