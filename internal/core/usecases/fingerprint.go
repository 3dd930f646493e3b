// internal/core/usecases/fingerprint.go
package usecases

import (
	"sort"

	"argus/internal/core/domain"
)

// RecordGroup agrupa records canónicos con el mismo fingerprint.
type RecordGroup struct {
	Fingerprint domain.Fingerprint
	Records     []domain.RawRecord
}

// Key retorna la clave del fingerprint.
func (g *RecordGroup) Key() string {
	return g.Fingerprint.Key()
}

// Weight suma collection_count de los records (mínimo 1 cada uno). Un grupo
// de peso 1 es una observación única nunca fusionada antes.
func (g *RecordGroup) Weight() int {
	w := 0
	for _, r := range g.Records {
		if n := domain.IntValue(r.Metadata[domain.MetaCollectionCount]); n > 1 {
			w += n
		} else {
			w++
		}
	}
	return w
}

// FingerprintOf calcula la identidad exacta de un record.
func FingerprintOf(r domain.RawRecord) domain.Fingerprint {
	t := domain.ParseEntityType(string(r.Type))
	return domain.Fingerprint{Type: t, Value: Canonicalize(t, r.Value, r.Metadata)}
}

// FingerprintIndex agrupa records por fingerprint exacto. Vive una sola
// pasada de normalización.
type FingerprintIndex struct {
	groups map[string]*RecordGroup
}

// NewFingerprintIndex crea un índice vacío.
func NewFingerprintIndex() *FingerprintIndex {
	return &FingerprintIndex{groups: make(map[string]*RecordGroup)}
}

// Add agrega un record ya canónico.
func (ix *FingerprintIndex) Add(r domain.RawRecord) {
	fp := domain.Fingerprint{Type: r.Type, Value: r.Value}
	key := fp.Key()

	g, ok := ix.groups[key]
	if !ok {
		g = &RecordGroup{Fingerprint: fp}
		ix.groups[key] = g
	}
	g.Records = append(g.Records, r)
}

// Len retorna la cantidad de fingerprints distintos.
func (ix *FingerprintIndex) Len() int {
	return len(ix.groups)
}

// Groups retorna los grupos ordenados por clave de fingerprint.
func (ix *FingerprintIndex) Groups() []*RecordGroup {
	out := make([]*RecordGroup, 0, len(ix.groups))
	for _, g := range ix.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
