// internal/adapters/output/json.go
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
)

// sanitizeTargetName convierte un target en un nombre de carpeta válido.
// Ejemplo: "example.com" -> "example_com"
func sanitizeTargetName(target string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, strings.ToLower(strings.TrimSpace(target)))
	if len(sanitized) > 64 {
		sanitized = sanitized[:64]
	}
	if sanitized == "" {
		sanitized = "unknown"
	}
	return sanitized
}

// Report es el documento exportado para una tarea terminada.
type Report struct {
	Task    domain.CollectionTask    `json:"task"`
	Summary Summary                  `json:"summary"`
	Results domain.CollectionResults `json:"results"`
}

// Summary resume entidades y relaciones por tipo.
type Summary struct {
	Target              string         `json:"target"`
	Status              string         `json:"status"`
	TotalEntities       int            `json:"total_entities"`
	TotalRelationships  int            `json:"total_relationships"`
	EntitiesByType      map[string]int `json:"entities_by_type"`
	RelationshipsByType map[string]int `json:"relationships_by_type"`
	Duration            string         `json:"duration,omitempty"`
	Invalid             int            `json:"invalid"`
}

// BuildSummary construye el resumen de una tarea.
func BuildSummary(task domain.CollectionTask, results domain.CollectionResults) Summary {
	s := Summary{
		Target:              task.Target,
		Status:              string(task.Status),
		TotalEntities:       len(results.Entities),
		TotalRelationships:  len(results.Relationships),
		EntitiesByType:      make(map[string]int),
		RelationshipsByType: make(map[string]int),
		Invalid:             len(results.Invalid),
	}
	for t, n := range results.EntitiesByType() {
		s.EntitiesByType[string(t)] = n
	}
	for _, r := range results.Relationships {
		s.RelationshipsByType[r.RelationshipType]++
	}
	if !task.StartedAt.IsZero() && !task.EndedAt.IsZero() {
		s.Duration = task.EndedAt.Sub(task.StartedAt).Round(time.Millisecond).String()
	}
	return s
}

// NewReport arma el documento exportado.
func NewReport(task domain.CollectionTask, results domain.CollectionResults) Report {
	return Report{Task: task, Summary: BuildSummary(task, results), Results: results}
}

// WriteJSON codifica el reporte en w.
func WriteJSON(w io.Writer, task domain.CollectionTask, results domain.CollectionResults, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(NewReport(task, results)); err != nil {
		return errors.Wrap(err, "encode report")
	}
	return nil
}

// JSONExporter escribe un archivo JSON por tarea en
// <dir>/<target>/argus_<target>_<timestamp>_<task>.json.
type JSONExporter struct {
	dir  string
	now  func() time.Time
	last string
}

var _ ports.Exporter = (*JSONExporter)(nil)

// NewJSONExporter crea el exporter. Un dir vacío usa el directorio actual.
func NewJSONExporter(dir string) *JSONExporter {
	if dir == "" {
		dir = "."
	}
	return &JSONExporter{dir: dir, now: time.Now}
}

// Name implements ports.Exporter
func (e *JSONExporter) Name() string { return "json" }

// LastPath retorna el último archivo escrito.
func (e *JSONExporter) LastPath() string { return e.last }

// Export implements ports.Exporter
func (e *JSONExporter) Export(ctx context.Context, task domain.CollectionTask, results domain.CollectionResults) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := sanitizeTargetName(task.Target)
	fullDir := filepath.Join(e.dir, name)
	if err := os.MkdirAll(fullDir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	taskPart := task.TaskID
	if len(taskPart) > 8 {
		taskPart = taskPart[:8]
	}
	filename := fmt.Sprintf("argus_%s_%s_%s.json", name, e.now().Format("20060102_150405"), taskPart)
	path := filepath.Join(fullDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	defer f.Close()

	if err := WriteJSON(f, task, results, true); err != nil {
		return err
	}
	e.last = path
	return nil
}
