// internal/platform/ui/colors.go
package ui

import "github.com/pterm/pterm"

// Paleta de colores
var (
	// SignalCyan - acentos, operaciones exitosas
	SignalCyan = pterm.NewRGB(0, 206, 209)

	// AmberWarn - advertencias, registros inválidos
	AmberWarn = pterm.NewRGB(255, 182, 39)

	// AlertRed - errores, collectors fallidos
	AlertRed = pterm.NewRGB(215, 38, 56)

	// SlateGray - texto secundario, elementos pendientes
	SlateGray = pterm.NewRGB(97, 97, 97)
)

// Estilos preconfigurados para diferentes contextos
var (
	StyleSuccess   = SignalCyan.ToRGBStyle()
	StyleWarning   = AmberWarn.ToRGBStyle()
	StyleError     = AlertRed.ToRGBStyle()
	StyleSecondary = SlateGray.ToRGBStyle()
)
