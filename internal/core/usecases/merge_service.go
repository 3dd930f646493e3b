// internal/core/usecases/merge_service.go
package usecases

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"

	"argus/internal/core/domain"
)

// MergeEngine consolida records equivalentes en una sola entidad. El
// resultado no depende del orden de entrada: los records se ordenan antes
// de aplicar las reglas por campo.
type MergeEngine struct{}

// NewMergeEngine crea el motor de merge.
func NewMergeEngine() *MergeEngine {
	return &MergeEngine{}
}

// SortRecords ordena por source, confianza desc, timestamp, hash de
// metadata y valor.
func SortRecords(records []domain.RawRecord) []domain.RawRecord {
	type keyed struct {
		rec  domain.RawRecord
		hash uint64
	}
	ks := make([]keyed, len(records))
	for i, r := range records {
		ks[i] = keyed{rec: r, hash: metadataHash(r.Metadata)}
	}

	sort.SliceStable(ks, func(i, j int) bool {
		a, b := ks[i].rec, ks[j].rec
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if !a.CollectedAt.Equal(b.CollectedAt) {
			return a.CollectedAt.Before(b.CollectedAt)
		}
		if ks[i].hash != ks[j].hash {
			return ks[i].hash < ks[j].hash
		}
		return a.Value < b.Value
	})

	out := make([]domain.RawRecord, len(ks))
	for i, k := range ks {
		out[i] = k.rec
	}
	return out
}

// Merge fusiona los records bajo la identidad fp.
func (m *MergeEngine) Merge(fp domain.Fingerprint, records []domain.RawRecord) domain.NormalizedEntity {
	sorted := SortRecords(records)

	ent := domain.NormalizedEntity{
		Value:    fp.Value,
		Type:     fp.Type,
		Metadata: mergeMetadata(sorted),
	}
	for _, r := range sorted {
		if r.Confidence > ent.Confidence {
			ent.Confidence = r.Confidence
		}
	}

	var sources []string
	count := 0
	var first, last time.Time
	for _, r := range sorted {
		sources = append(sources, r.Source)
		sources = append(sources, domain.StringList(r.Metadata[domain.MetaSources])...)

		if n := domain.IntValue(r.Metadata[domain.MetaCollectionCount]); n > 1 {
			count += n
		} else {
			count++
		}

		first, last = widen(first, last, r.CollectedAt)
		first, last = widen(first, last, parseStamp(r.Metadata[domain.MetaFirstCollected]))
		first, last = widen(first, last, parseStamp(r.Metadata[domain.MetaLastCollected]))
	}

	if s := domain.SortedSet(sources); len(s) > 0 {
		ent.Metadata[domain.MetaSources] = s
	}
	ent.Metadata[domain.MetaCollectionCount] = count
	if !first.IsZero() {
		ent.Metadata[domain.MetaFirstCollected] = first.UTC().Format(time.RFC3339Nano)
		ent.Metadata[domain.MetaLastCollected] = last.UTC().Format(time.RFC3339Nano)
	}

	return ent
}

type metaKind int

const (
	kindScalar metaKind = iota
	kindList
	kindMap
)

func kindOf(v any) metaKind {
	switch v.(type) {
	case []any, []string:
		return kindList
	case map[string]any:
		return kindMap
	default:
		return kindScalar
	}
}

// mergeMetadata aplica las reglas por campo sobre records ya ordenados.
// El tipo de un campo lo fija su primera aparición.
func mergeMetadata(sorted []domain.RawRecord) map[string]any {
	out := make(map[string]any)

	var keys []string
	seen := make(map[string]bool)
	for _, r := range sorted {
		for k := range r.Metadata {
			if !seen[k] && !domain.IsBookkeepingKey(k) {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		var (
			kind     metaKind
			started  bool
			bestConf = -1.0
			scalar   any
			items    []any
			merged   map[string]any
		)
		for _, r := range sorted {
			v, ok := r.Metadata[k]
			if !ok || v == nil {
				continue
			}
			if !started {
				kind = kindOf(v)
				started = true
			}
			switch kind {
			case kindList:
				items = appendItems(items, v)
			case kindMap:
				mv, ok := v.(map[string]any)
				if !ok {
					continue
				}
				if merged == nil {
					merged = make(map[string]any, len(mv))
				}
				for mk, mval := range mv {
					if _, exists := merged[mk]; !exists {
						merged[mk] = mval
					}
				}
			default:
				// gana la mayor confianza; a igualdad el primero
				if kindOf(v) == kindScalar && r.Confidence > bestConf {
					scalar, bestConf = v, r.Confidence
				}
			}
		}
		if !started {
			continue
		}
		switch kind {
		case kindList:
			out[k] = listValue(items)
		case kindMap:
			out[k] = merged
		default:
			out[k] = scalar
		}
	}

	return out
}

func appendItems(items []any, v any) []any {
	add := func(item any) {
		id := itemKey(item)
		for _, existing := range items {
			if itemKey(existing) == id {
				return
			}
		}
		items = append(items, item)
	}

	switch t := v.(type) {
	case []string:
		for _, s := range t {
			add(s)
		}
	case []any:
		for _, item := range t {
			add(item)
		}
	default:
		add(t)
	}
	return items
}

// listValue retorna []string si todos los items son strings.
func listValue(items []any) any {
	strs := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return items
		}
		strs = append(strs, s)
	}
	return strs
}

func itemKey(v any) string {
	if s, ok := v.(string); ok {
		return "s:" + s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return "j:" + string(b)
}

// metadataHash hashea la forma JSON canónica de la metadata; encoding/json
// ordena las claves de los mapas.
func metadataHash(meta map[string]any) uint64 {
	if len(meta) == 0 {
		return 0
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return xxhash.Sum64String(fmt.Sprint(meta))
	}
	return xxhash.Sum64(b)
}

func parseStamp(v any) time.Time {
	switch t := v.(type) {
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}
		}
		return ts
	case time.Time:
		return t
	default:
		return time.Time{}
	}
}

func widen(first, last, ts time.Time) (time.Time, time.Time) {
	if ts.IsZero() {
		return first, last
	}
	if first.IsZero() || ts.Before(first) {
		first = ts
	}
	if last.IsZero() || ts.After(last) {
		last = ts
	}
	return first, last
}

// MergeRelationships agrupa relaciones ya resueltas por su clave y fusiona
// confianza (max), metadata (sin sobrescribir) y fuentes (unión). La salida
// está ordenada por clave.
func (m *MergeEngine) MergeRelationships(rels []domain.RawRelationship) []domain.NormalizedRelationship {
	type group struct {
		rel     domain.NormalizedRelationship
		members []domain.RawRelationship
	}
	groups := make(map[string]*group)

	for _, r := range rels {
		nr := domain.NormalizedRelationship{
			SourceValue:      r.SourceValue,
			SourceType:       r.SourceType,
			TargetValue:      r.TargetValue,
			TargetType:       r.TargetType,
			RelationshipType: r.RelationshipType,
		}
		key := nr.Key()
		g, ok := groups[key]
		if !ok {
			g = &group{rel: nr}
			groups[key] = g
		}
		g.members = append(g.members, r)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.NormalizedRelationship, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		members := g.members
		sort.SliceStable(members, func(i, j int) bool {
			a, b := members[i], members[j]
			if a.Source != b.Source {
				return a.Source < b.Source
			}
			if a.Confidence != b.Confidence {
				return a.Confidence > b.Confidence
			}
			return metadataHash(a.Metadata) < metadataHash(b.Metadata)
		})

		rel := g.rel
		rel.Metadata = make(map[string]any)
		var sources []string
		for _, r := range members {
			if r.Confidence > rel.Confidence {
				rel.Confidence = r.Confidence
			}
			sources = append(sources, r.Source)
			sources = append(sources, domain.StringList(r.Metadata[domain.MetaSources])...)
			for mk, mv := range r.Metadata {
				if mk == domain.MetaSources {
					continue
				}
				if _, exists := rel.Metadata[mk]; !exists {
					rel.Metadata[mk] = mv
				}
			}
		}
		if s := domain.SortedSet(sources); len(s) > 0 {
			rel.Metadata[domain.MetaSources] = s
		}
		out = append(out, rel)
	}
	return out
}
