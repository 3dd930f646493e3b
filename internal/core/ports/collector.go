// internal/core/ports/collector.go
package ports

import (
	"context"
	"time"

	"argus/internal/core/domain"
)

// Collector es el port primario para todas las fuentes de inteligencia.
// Cada collector recibe un target y devuelve records sin procesar.
type Collector interface {
	// Name retorna el nombre único del collector (ej: "domain", "web", "social")
	Name() string

	// Execute recolecta datos sobre el target. Los fallos parciales van en
	// CollectorOutput.Errors; un error retornado se reserva para fallos de
	// configuración irrecuperables y para la expiración del contexto.
	Execute(ctx context.Context, target domain.Target) (*domain.CollectorOutput, error)

	// Close libera recursos (conexiones, goroutines)
	Close() error
}

// HealthChecker es implementado por collectors que pueden verificar su
// disponibilidad antes de una recolección.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CollectorConfig contiene la configuración específica de un collector.
type CollectorConfig struct {
	// Enabled indica si el collector está habilitado
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Timeout tiempo máximo de ejecución
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Retries número de reintentos en caso de fallo transitorio
	Retries int `yaml:"retries" json:"retries"`

	// RateLimit límite de peticiones por segundo (0 = sin límite)
	RateLimit int `yaml:"rate_limit" json:"rate_limit"`

	// Priority prioridad de ejecución (mayor = más prioritario)
	Priority int `yaml:"priority" json:"priority"`

	// Custom configuración específica (endpoints, user agent, plataformas)
	Custom map[string]any `yaml:"custom" json:"custom,omitempty"`
}

// DefaultCollectorConfig retorna una configuración por defecto.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		Enabled:   true,
		Timeout:   30 * time.Second,
		Retries:   2,
		RateLimit: 0,
		Priority:  5,
		Custom:    make(map[string]any),
	}
}

// CollectorMetadata contiene metadatos sobre un collector.
type CollectorMetadata struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Version     string              `json:"version"`
	TargetTypes []domain.TargetType `json:"target_types"` // tipos de target que acepta
	EntityTypes []domain.EntityType `json:"entity_types"` // tipos de entidad que emite
	Network     bool                `json:"network"`      // realiza peticiones de red
	RateLimit   int                 `json:"rate_limit"`   // límite recomendado de requests/segundo
	Priority    int                 `json:"priority"`     // prioridad por defecto
}

// Accepts indica si el collector declara soporte para el tipo de target.
// Sin declaración, acepta cualquiera.
func (m CollectorMetadata) Accepts(t domain.TargetType) bool {
	if len(m.TargetTypes) == 0 {
		return true
	}
	for _, tt := range m.TargetTypes {
		if tt == t {
			return true
		}
	}
	return false
}
