// internal/platform/ui/pterm_presenter.go
package ui

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pterm/pterm"

	"argus/internal/core/domain"
)

// PTermPresenter implementa Presenter usando la biblioteca pterm
// para renderizar la barra de progreso, colores y símbolos en la terminal.
type PTermPresenter struct {
	mu sync.Mutex

	info    CollectionInfo
	tracker *Tracker
	bar     *pterm.ProgressbarPrinter
	shown   int
}

// NewPTermPresenter crea una nueva instancia del presenter con pterm
func NewPTermPresenter() *PTermPresenter {
	return &PTermPresenter{tracker: NewTracker()}
}

// Start muestra el header y arranca la barra de progreso
func (p *PTermPresenter) Start(info CollectionInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.info = info

	pterm.DefaultHeader.
		WithBackgroundStyle(pterm.NewStyle(pterm.BgCyan)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println("Argus - OSINT Collection")

	pterm.Println()

	infoPanel := pterm.DefaultBox.
		WithTitle("Collection").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(pterm.FgCyan))

	content := fmt.Sprintf("%s Target: %s (%s)\n", IconTarget, pterm.Cyan(info.Target), info.TargetType)
	content += fmt.Sprintf("   Task: %s\n", info.TaskID)
	content += fmt.Sprintf("%s Collectors: %s\n", IconSources, strings.Join(info.Collectors, ", "))
	content += fmt.Sprintf("%s Max parallel: %d\n", IconWorkers, info.MaxParallel)
	content += fmt.Sprintf("%s Timeout: %s\n", IconTime, formatDuration(info.Timeout))
	content += fmt.Sprintf("   Fuzzy merge: %s", boolToString(info.Fuzzy))

	infoPanel.Println(content)
	pterm.Println()

	bar, err := pterm.DefaultProgressbar.
		WithTotal(100).
		WithTitle("Collecting").
		WithRemoveWhenDone(true).
		Start()
	if err == nil {
		p.bar = bar
	}
}

// Update pinta los collectors que terminaron y avanza la barra
func (p *PTermPresenter) Update(task domain.CollectionTask) {
	p.mu.Lock()
	defer p.mu.Unlock()

	events, progress := p.tracker.Observe(task)
	for _, ev := range events {
		p.renderCollectorLine(ev)
	}

	if p.bar != nil {
		target := int(progress)
		if target > 100 {
			target = 100
		}
		if delta := target - p.shown; delta > 0 {
			p.bar.Add(delta)
			p.shown = target
		}
	}
}

// Info muestra un mensaje informativo
func (p *PTermPresenter) Info(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.Info.Println(msg)
}

// Warning muestra una advertencia
func (p *PTermPresenter) Warning(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.Warning.Println(msg)
}

// Error muestra un error
func (p *PTermPresenter) Error(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.Error.Println(msg)
}

// Finish finaliza la presentación con estadísticas finales
func (p *PTermPresenter) Finish(stats CollectionStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopBar()

	pterm.Println()
	pterm.Println(pterm.LightBlue(SeparatorHeavy))
	pterm.Println()

	status := StatusFor(stats.Status)
	bg := pterm.BgGreen
	if status == StatusError {
		bg = pterm.BgRed
	} else if status == StatusSkipped {
		bg = pterm.BgYellow
	}

	pterm.DefaultHeader.
		WithBackgroundStyle(pterm.NewStyle(bg)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println("Collection " + string(stats.Status))

	pterm.Println()

	statsPanel := pterm.DefaultBox.
		WithTitle("Statistics").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(status.Style())

	content := fmt.Sprintf("%s Duration: %s\n", IconTime, pterm.Green(formatDuration(stats.TotalDuration)))
	content += fmt.Sprintf("%s Entities: %s\n", IconArtifacts, pterm.Cyan(fmt.Sprintf("%d", stats.Entities)))
	content += fmt.Sprintf("   Relationships: %s\n", pterm.Magenta(fmt.Sprintf("%d", stats.Relationships)))
	content += fmt.Sprintf("%s Collectors succeeded: %s", IconSuccess, pterm.Green(fmt.Sprintf("%d", stats.CollectorsSucceeded)))

	if stats.CollectorsFailed > 0 {
		content += fmt.Sprintf("\n%s Collectors failed: %s", IconError, pterm.Red(fmt.Sprintf("%d", stats.CollectorsFailed)))
	}
	if stats.Invalid > 0 {
		content += fmt.Sprintf("\n%s Invalid records: %s", IconWarning, pterm.Yellow(fmt.Sprintf("%d", stats.Invalid)))
	}

	statsPanel.Println(content)

	if len(stats.EntitiesByType) > 0 {
		pterm.Println()
		pterm.DefaultSection.WithLevel(2).Println("Entities by Type")

		types := make([]string, 0, len(stats.EntitiesByType))
		for t := range stats.EntitiesByType {
			types = append(types, t)
		}
		sort.Strings(types)

		tableData := pterm.TableData{{"Type", "Count"}}
		for _, t := range types {
			tableData = append(tableData, []string{t, fmt.Sprintf("%d", stats.EntitiesByType[t])})
		}

		_ = pterm.DefaultTable.
			WithHasHeader().
			WithBoxed().
			WithData(tableData).
			Render()
	}

	if len(stats.Errors) > 0 {
		pterm.Println()
		pterm.DefaultSection.WithLevel(2).Println("Errors")
		for _, e := range stats.Errors {
			pterm.Warning.Println(e)
		}
	}

	pterm.Println()
}

// Close limpia recursos del presenter
func (p *PTermPresenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopBar()
	return nil
}

func (p *PTermPresenter) stopBar() {
	if p.bar != nil {
		_, _ = p.bar.Stop()
		p.bar = nil
	}
}

// renderCollectorLine renderiza una línea con el estado final de un collector
func (p *PTermPresenter) renderCollectorLine(ev CollectorEvent) {
	line := fmt.Sprintf("  %s %s", ev.Status.Symbol(), ev.Name)
	switch ev.Status {
	case StatusSkipped:
		line += " (discarded)"
	case StatusError:
		line += " (failed)"
	}
	ev.Status.Style().Println(line)
}
