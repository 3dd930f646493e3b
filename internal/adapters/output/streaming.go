// internal/adapters/output/streaming.go
package output

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
	"argus/internal/platform/logx"
)

// StreamingWriter escribe cada cambio de estado de una tarea como una
// línea JSON (NDJSON) apenas ocurre, para seguir tareas largas con tail -f.
// Un archivo por tarea: argus_<task>.events.ndjson.
type StreamingWriter struct {
	mu      sync.Mutex
	baseDir string
	files   map[string]*os.File
	now     func() time.Time
	logger  logx.Logger
}

var _ ports.ProgressBroadcaster = (*StreamingWriter)(nil)

// NewStreamingWriter crea un writer de streaming en baseDir.
func NewStreamingWriter(baseDir string, logger logx.Logger) *StreamingWriter {
	if baseDir == "" {
		baseDir = "."
	}
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &StreamingWriter{
		baseDir: baseDir,
		files:   make(map[string]*os.File),
		now:     time.Now,
		logger:  logger.With("component", "streaming-writer"),
	}
}

// Path retorna el archivo de eventos de una tarea.
func (w *StreamingWriter) Path(taskID string) string {
	return filepath.Join(w.baseDir, "argus_"+sanitizeTargetName(taskID)+".events.ndjson")
}

// BroadcastProgress implements ports.ProgressBroadcaster. El archivo se
// cierra al recibir un estado terminal.
func (w *StreamingWriter) BroadcastProgress(_ context.Context, taskID string, task domain.CollectionTask) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, ok := w.files[taskID]
	if !ok {
		if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
			return errors.Wrap(err, "create output directory")
		}
		var err error
		f, err = os.OpenFile(w.Path(taskID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrap(err, "open events file")
		}
		w.files[taskID] = f
	}

	ev := ports.NewEvent(task, w.now().UTC())
	ev.TaskID = taskID
	if err := json.NewEncoder(f).Encode(ev); err != nil {
		return errors.Wrap(err, "write event")
	}

	if task.Status.IsTerminal() {
		delete(w.files, taskID)
		w.logger.Debug("event stream closed", "task_id", taskID, "file", f.Name())
		return f.Close()
	}
	return nil
}

// Close cierra los archivos de tareas todavía abiertas.
func (w *StreamingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for id, f := range w.files {
		errs = append(errs, f.Close())
		delete(w.files, id)
	}
	return errors.Join(errs...)
}
