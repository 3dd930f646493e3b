// internal/adapters/storage/storage.go
package storage

import (
	"encoding/json"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"argus/internal/core/domain"
	"argus/internal/platform/errors"
)

// Prefijos de los IDs públicos.
const (
	EntityPrefix       = "ent_"
	RelationshipPrefix = "rel_"
)

// NewID genera un ID público con prefijo.
func NewID(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", errors.Wrap(err, "generate id")
	}
	return prefix + id, nil
}

// EntityRow es la forma plana de una entidad en las tablas.
type EntityRow struct {
	Type         string
	Value        string
	Confidence   float64
	QualityScore int
	Metadata     []byte
	Enrichment   []byte
	Warnings     []byte
}

// EncodeEntity serializa los mapas de una entidad a JSON.
func EncodeEntity(e domain.NormalizedEntity) (EntityRow, error) {
	meta, err := marshalMap(e.Metadata)
	if err != nil {
		return EntityRow{}, errors.Wrapf(err, "encode metadata of %s", e.Fingerprint().Key())
	}
	enr, err := marshalMap(e.Enrichment)
	if err != nil {
		return EntityRow{}, errors.Wrapf(err, "encode enrichment of %s", e.Fingerprint().Key())
	}
	warnings := e.ValidationWarnings
	if warnings == nil {
		warnings = []string{}
	}
	warn, err := json.Marshal(warnings)
	if err != nil {
		return EntityRow{}, errors.Wrap(err, "encode warnings")
	}
	return EntityRow{
		Type:         string(e.Type),
		Value:        e.Value,
		Confidence:   e.Confidence,
		QualityScore: e.QualityScore,
		Metadata:     meta,
		Enrichment:   enr,
		Warnings:     warn,
	}, nil
}

// DecodeEntity reconstruye una entidad desde su fila.
func DecodeEntity(row EntityRow) (domain.NormalizedEntity, error) {
	e := domain.NormalizedEntity{
		Type:         domain.EntityType(row.Type),
		Value:        row.Value,
		Confidence:   row.Confidence,
		QualityScore: row.QualityScore,
	}
	if err := unmarshalInto(row.Metadata, &e.Metadata); err != nil {
		return e, errors.Wrap(err, "decode metadata")
	}
	if err := unmarshalInto(row.Enrichment, &e.Enrichment); err != nil {
		return e, errors.Wrap(err, "decode enrichment")
	}
	if err := unmarshalInto(row.Warnings, &e.ValidationWarnings); err != nil {
		return e, errors.Wrap(err, "decode warnings")
	}
	if len(e.ValidationWarnings) == 0 {
		e.ValidationWarnings = nil
	}
	return e, nil
}

// EncodeMetadata serializa la metadata de una relación.
func EncodeMetadata(m map[string]any) ([]byte, error) {
	return marshalMap(m)
}

func marshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return json.Marshal(m)
}

func unmarshalInto(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// StoredEntity es una entidad con su ID público.
type StoredEntity struct {
	ID     string                  `json:"id"`
	Entity domain.NormalizedEntity `json:"entity"`
}
