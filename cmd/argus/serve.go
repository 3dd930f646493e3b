// cmd/argus/serve.go
package main

import (
	"context"

	"github.com/spf13/cobra"

	"argus/internal/adapters/api"
	"argus/internal/adapters/scheduler"
	"argus/internal/platform/registry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run scheduled collections",
	Long: `Start the HTTP API (/api/v1) backed by the configured entity store,
progress broadcaster and archive. Schedules from the config file are
registered with cron and finished tasks are swept after result_ttl.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	logger.Info("Argus starting", "version", version, "commit", commit, "date", date, "addr", cfg.Server.Addr)

	ctx, cancel := signalContext()
	defer cancel()

	st, err := buildStack(ctx, cfg, logger, stackOptions{})
	if err != nil {
		return err
	}
	defer st.Close(logger)

	orch, err := newOrchestrator(cfg, logger, st, nil)
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Starter:    orch,
		Sweeper:    orch,
		SweepEvery: cfg.Collection.Sweep,
		Logger:     logger,
	})
	for _, s := range cfg.Schedules {
		if err := sched.Add(scheduler.Job{Name: s.Name, Spec: s.Spec, Request: s.Request}); err != nil {
			return err
		}
	}
	if err := sched.Start(); err != nil {
		return err
	}

	srv := api.New(api.Options{
		Orchestrator: orch,
		Catalog:      registry.Global(),
		Graph:        st.graph,
		Logger:       logger,
		Version:      version,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.Server.Addr) }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err = <-errCh:
		if err != nil {
			logger.Err(err, "phase", "listen")
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()

	<-sched.Stop().Done()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("api shutdown", "error", serr.Error())
	}
	if oerr := orch.Shutdown(shutdownCtx); oerr != nil {
		logger.Warn("orchestrator shutdown", "error", oerr.Error())
	}
	logger.Info("Argus stopped")
	return err
}
