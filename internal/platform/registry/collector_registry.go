// internal/platform/registry/collector_registry.go
package registry

import (
	"fmt"
	"sort"
	"sync"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/logx"
)

// CollectorRegistry gestiona el registro y construcción de collectors.
// Implementa el patrón Registry + Factory: cada paquete de collector se
// registra desde init() y el orquestador los construye por nombre.
type CollectorRegistry struct {
	mu        sync.RWMutex
	factories map[string]CollectorFactory
	metadata  map[string]ports.CollectorMetadata
	logger    logx.Logger
}

// CollectorFactory es una función que crea una instancia de Collector.
type CollectorFactory func(cfg ports.CollectorConfig, logger logx.Logger) (ports.Collector, error)

var (
	globalRegistry *CollectorRegistry
	once           sync.Once
)

// Global retorna la instancia global del registry.
func Global() *CollectorRegistry {
	once.Do(func() {
		globalRegistry = NewCollectorRegistry(logx.NewSilent())
	})
	return globalRegistry
}

// NewCollectorRegistry crea un registry vacío.
func NewCollectorRegistry(logger logx.Logger) *CollectorRegistry {
	return &CollectorRegistry{
		factories: make(map[string]CollectorFactory),
		metadata:  make(map[string]ports.CollectorMetadata),
		logger:    logger.With("component", "collector-registry"),
	}
}

// Register registra una factory con su metadata.
func (r *CollectorRegistry) Register(name string, factory CollectorFactory, meta ports.CollectorMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return fmt.Errorf("collector name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil for collector %s", name)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("collector %s is already registered", name)
	}

	if meta.Name == "" {
		meta.Name = name
	}
	r.factories[name] = factory
	r.metadata[name] = meta
	r.logger.Debug("collector registered", "name", name, "targets", meta.TargetTypes)

	return nil
}

// MustRegister es Register para init(): un fallo es un error de programación.
func (r *CollectorRegistry) MustRegister(name string, factory CollectorFactory, meta ports.CollectorMetadata) {
	if err := r.Register(name, factory, meta); err != nil {
		panic(err)
	}
}

// Build construye un collector por nombre. Retorna domain.ErrCollectorNotFound
// si no está registrado.
func (r *CollectorRegistry) Build(name string, cfg ports.CollectorConfig, logger logx.Logger) (ports.Collector, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectorNotFound, name)
	}
	if logger == nil {
		logger = r.logger
	}

	c, err := factory(cfg, logger.With("collector", name))
	if err != nil {
		return nil, fmt.Errorf("build collector %s: %w", name, err)
	}
	return c, nil
}

// List retorna los nombres registrados en orden alfabético.
func (r *CollectorRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetMetadata retorna el metadata de un collector.
func (r *CollectorRegistry) GetMetadata(name string) (ports.CollectorMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, exists := r.metadata[name]
	return meta, exists
}

// AllMetadata retorna el metadata de todos los collectors, ordenado por
// prioridad descendente y luego por nombre.
func (r *CollectorRegistry) AllMetadata() []ports.CollectorMetadata {
	r.mu.RLock()
	out := make([]ports.CollectorMetadata, 0, len(r.metadata))
	for _, meta := range r.metadata {
		out = append(out, meta)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// IsRegistered verifica si un collector está registrado.
func (r *CollectorRegistry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[name]
	return exists
}

// Clear elimina todos los collectors registrados (útil para testing).
func (r *CollectorRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories = make(map[string]CollectorFactory)
	r.metadata = make(map[string]ports.CollectorMetadata)
}
