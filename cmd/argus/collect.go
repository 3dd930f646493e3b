// cmd/argus/collect.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"argus/internal/adapters/output"
	"argus/internal/core/domain"
	"argus/internal/platform/errors"
	"argus/internal/platform/ui"
)

var collectCmd = &cobra.Command{
	Use:   "collect <target>",
	Short: "Run a single collection and write the report",
	Long: `Run one collection task in the foreground. Progress is shown in the
terminal; the consolidated JSON report is always written to the output
directory and a summary table is printed unless --quiet is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().StringSlice("collectors", nil, "Collectors to run (default: inferred from the target type)")
	collectCmd.Flags().Bool("darkweb", false, "Include dark web collectors")
	collectCmd.Flags().Bool("media", false, "Include media collectors")
	collectCmd.Flags().StringP("priority", "p", "medium", "Task priority (low, medium, high, critical)")
	collectCmd.Flags().Bool("stream", false, "Write progress events as NDJSON next to the report")
	collectCmd.Flags().Bool("plain", false, "Disable the progress UI")

	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	collectors, _ := cmd.Flags().GetStringSlice("collectors")
	darkweb, _ := cmd.Flags().GetBool("darkweb")
	media, _ := cmd.Flags().GetBool("media")
	priority, _ := cmd.Flags().GetString("priority")
	stream, _ := cmd.Flags().GetBool("stream")
	plain, _ := cmd.Flags().GetBool("plain")

	ctx, cancel := signalContext()
	defer cancel()

	st, err := buildStack(ctx, cfg, logger, stackOptions{stream: stream})
	if err != nil {
		return err
	}
	defer st.Close(logger)

	var presenter ui.Presenter = ui.NewPTermPresenter()
	if plain {
		presenter = ui.NewNoopPresenter()
	}
	defer presenter.Close()

	orch, err := newOrchestrator(cfg, logger, st, presenter.Update)
	if err != nil {
		return err
	}

	req := domain.CollectionRequest{
		Target:         args[0],
		CollectorTypes: collectors,
		IncludeDarkWeb: darkweb,
		IncludeMedia:   media,
		Priority:       domain.ParsePriority(priority),
	}

	taskID, err := orch.StartCollection(ctx, req)
	if err != nil {
		var ethics *domain.EthicsViolationError
		if errors.As(err, &ethics) {
			presenter.Error(fmt.Sprintf("target rejected (task %s): %s", ethics.TaskID, ethics.Reason))
		}
		return err
	}

	task, err := orch.GetTaskStatus(taskID)
	if err != nil {
		return err
	}
	presenter.Start(ui.CollectionInfo{
		TaskID:      taskID,
		Target:      task.Target,
		TargetType:  task.TargetType,
		Collectors:  task.Collectors,
		MaxParallel: cfg.Collection.MaxParallel,
		Timeout:     cfg.Collection.TaskTimeout,
		Fuzzy:       cfg.Normalization.Fuzzy,
	})

	task, err = orch.Wait(ctx, taskID)
	if err != nil {
		presenter.Warning("interrupted, cancelling collection")
		if _, cerr := orch.CancelTask(taskID); cerr != nil {
			logger.Warn("cancel failed", "task_id", taskID, "error", cerr.Error())
		}
		task, _ = orch.Wait(context.Background(), taskID)
	}

	// Shutdown espera a que los exporters terminen
	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logger.Warn("exporters did not finish in time", "error", err.Error())
	}

	results, err := orch.GetResults(taskID)
	if err != nil {
		return err
	}
	presenter.Finish(ui.NewCollectionStats(task, results))

	if !cfg.Output.TableDisabled {
		if err := output.NewTableExporter(os.Stdout).Export(ctx, task, results); err != nil {
			logger.Err(err, "phase", "table")
		}
	}
	if path := st.json.LastPath(); path != "" {
		presenter.Info("report written to " + path)
	}

	switch task.Status {
	case domain.TaskFailed:
		return fmt.Errorf("collection %s failed", taskID)
	case domain.TaskCancelled:
		return fmt.Errorf("collection %s cancelled", taskID)
	}
	return nil
}
