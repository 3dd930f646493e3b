// internal/core/ports/exporter.go
package ports

import (
	"context"

	"argus/internal/core/domain"
)

// Exporter es el port para exportar resultados en diferentes formatos
// o destinos (archivo JSON, tabla en terminal, archivo en S3).
type Exporter interface {
	// Name retorna el nombre del exporter (ej: "json", "table", "s3")
	Name() string

	// Export exporta los resultados de una tarea terminada
	Export(ctx context.Context, task domain.CollectionTask, results domain.CollectionResults) error
}
