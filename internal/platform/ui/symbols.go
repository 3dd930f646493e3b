// internal/platform/ui/symbols.go
package ui

import "github.com/pterm/pterm"

// Status es el estado visual de un collector o de la tarea.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSuccess
	StatusError
	// StatusSkipped collector descartado o tarea cancelada
	StatusSkipped
)

var statusGlyphs = map[Status]struct {
	symbol string
	color  pterm.Color
}{
	StatusPending: {"⏸", pterm.FgGray},
	StatusRunning: {"⣾", pterm.FgCyan},
	StatusSuccess: {"✓", pterm.FgGreen},
	StatusError:   {"✗", pterm.FgRed},
	StatusSkipped: {"⊘", pterm.FgGray},
}

// Symbol retorna el glifo del estado.
func (s Status) Symbol() string {
	if g, ok := statusGlyphs[s]; ok {
		return g.symbol
	}
	return "?"
}

// Style retorna el estilo pterm del estado.
func (s Status) Style() *pterm.Style {
	if g, ok := statusGlyphs[s]; ok {
		return pterm.NewStyle(g.color)
	}
	return pterm.NewStyle(pterm.FgDefault)
}

// Iconos de los paneles de inicio y resumen.
const (
	IconTarget    = "🎯"
	IconSources   = "🔌"
	IconWorkers   = "⚙️"
	IconTime      = "⏱"
	IconArtifacts = "📦"
	IconSuccess   = "✓"
	IconError     = "✗"
	IconWarning   = "⚠"
)

// SeparatorHeavy cierra el bloque de collectors.
const SeparatorHeavy = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
