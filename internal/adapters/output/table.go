// internal/adapters/output/table.go
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
)

// TableExporter imprime una tabla legible en terminal.
type TableExporter struct {
	w io.Writer
	// MaxRows limita las filas de entidades (0 = sin límite)
	MaxRows int
}

var _ ports.Exporter = (*TableExporter)(nil)

// NewTableExporter crea el exporter. Un writer nil usa stdout.
func NewTableExporter(w io.Writer) *TableExporter {
	if w == nil {
		w = os.Stdout
	}
	return &TableExporter{w: w}
}

// Name implements ports.Exporter
func (e *TableExporter) Name() string { return "table" }

// Export implements ports.Exporter
func (e *TableExporter) Export(_ context.Context, task domain.CollectionTask, results domain.CollectionResults) error {
	s := BuildSummary(task, results)

	var b strings.Builder
	fmt.Fprintf(&b, "\n=== Argus Collection Results ===\n")
	fmt.Fprintf(&b, "Target:    %s (%s)\n", task.Target, task.TargetType)
	fmt.Fprintf(&b, "Task:      %s\n", task.TaskID)
	fmt.Fprintf(&b, "Status:    %s\n", task.Status)
	if s.Duration != "" {
		fmt.Fprintf(&b, "Duration:  %s\n", s.Duration)
	}
	fmt.Fprintf(&b, "Entities:  %d\n", s.TotalEntities)
	fmt.Fprintf(&b, "Sources:   %s\n\n", strings.Join(results.Sources, ", "))

	if len(results.Entities) > 0 {
		data := pterm.TableData{{"TYPE", "VALUE", "SOURCES", "CONFIDENCE", "QUALITY"}}
		for i, ent := range results.Entities {
			if e.MaxRows > 0 && i >= e.MaxRows {
				data = append(data, []string{"...", fmt.Sprintf("%d more", len(results.Entities)-i), "", "", ""})
				break
			}
			data = append(data, []string{
				string(ent.Type),
				ent.Value,
				strings.Join(ent.Sources(), ","),
				fmt.Sprintf("%.2f", ent.Confidence),
				fmt.Sprintf("%d", ent.QualityScore),
			})
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return errors.Wrap(err, "render entity table")
		}
		b.WriteString(table)
		b.WriteString("\n")
	} else {
		b.WriteString("No entities collected.\n")
	}

	if len(results.Relationships) > 0 {
		fmt.Fprintf(&b, "\nRelationships (%d):\n", len(results.Relationships))
		for _, k := range sortedKeys(s.RelationshipsByType) {
			fmt.Fprintf(&b, "  - %s: %d\n", k, s.RelationshipsByType[k])
		}
	}

	if len(results.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings (%d):\n", len(results.Warnings))
		for i, w := range results.Warnings {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, w)
		}
	}

	if len(results.Errors) > 0 {
		fmt.Fprintf(&b, "\nErrors (%d):\n", len(results.Errors))
		for i, err := range results.Errors {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, err)
		}
	}

	if len(results.Entities) > 0 {
		b.WriteString("\nStatistics by Type:\n")
		for _, k := range sortedKeys(s.EntitiesByType) {
			fmt.Fprintf(&b, "  - %s: %d\n", k, s.EntitiesByType[k])
		}
	}
	b.WriteString("\n")

	_, err := io.WriteString(e.w, b.String())
	return err
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
