// internal/core/usecases/merge_service_test.go
package usecases

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/core/domain"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func rec(source string, conf float64, at time.Time, meta map[string]any) domain.RawRecord {
	return domain.RawRecord{
		Type:        domain.EntityDomain,
		Value:       "example.com",
		Source:      source,
		Confidence:  conf,
		CollectedAt: at,
		Metadata:    meta,
	}
}

func TestMergeEngine_FieldRules(t *testing.T) {
	m := NewMergeEngine()
	fp := domain.Fingerprint{Type: domain.EntityDomain, Value: "example.com"}

	records := []domain.RawRecord{
		rec("whois", 0.9, t0.Add(time.Hour), map[string]any{
			"registrar": "Registrar A",
			"tags":      []string{"corp", "dns"},
			"contacts":  map[string]any{"admin": "a@example.com"},
		}),
		rec("web", 0.6, t0, map[string]any{
			"registrar": "Registrar B",
			"title":     "Example",
			"tags":      []any{"dns", "web"},
			"contacts":  map[string]any{"admin": "other@example.com", "tech": "t@example.com"},
		}),
	}

	ent := m.Merge(fp, records)

	assert.Equal(t, "example.com", ent.Value)
	assert.Equal(t, 0.9, ent.Confidence)
	assert.Equal(t, "Registrar A", ent.Metadata["registrar"], "highest confidence scalar wins")
	assert.Equal(t, "Example", ent.Metadata["title"])
	// web ordena antes que whois
	assert.Equal(t, []string{"dns", "web", "corp"}, ent.Metadata["tags"])
	assert.Equal(t, map[string]any{"admin": "other@example.com", "tech": "t@example.com"}, ent.Metadata["contacts"],
		"maps only fill gaps")
	assert.Equal(t, []string{"web", "whois"}, ent.Metadata[domain.MetaSources])
	assert.Equal(t, 2, ent.Metadata[domain.MetaCollectionCount])
	assert.Equal(t, t0.Format(time.RFC3339Nano), ent.Metadata[domain.MetaFirstCollected])
	assert.Equal(t, t0.Add(time.Hour).Format(time.RFC3339Nano), ent.Metadata[domain.MetaLastCollected])
}

func TestMergeEngine_ScalarTieGoesToEarliest(t *testing.T) {
	m := NewMergeEngine()
	fp := domain.Fingerprint{Type: domain.EntityDomain, Value: "example.com"}

	ent := m.Merge(fp, []domain.RawRecord{
		rec("b", 0.5, t0, map[string]any{"k": "from-b"}),
		rec("a", 0.5, t0, map[string]any{"k": "from-a"}),
	})
	assert.Equal(t, "from-a", ent.Metadata["k"])
}

func TestMergeEngine_PriorBookkeeping(t *testing.T) {
	m := NewMergeEngine()
	fp := domain.Fingerprint{Type: domain.EntityDomain, Value: "example.com"}

	prior := rec("web", 0.7, t0.Add(2*time.Hour), map[string]any{
		domain.MetaSources:         []any{"web", "whois"},
		domain.MetaCollectionCount: 2,
		domain.MetaFirstCollected:  t0.Add(-time.Hour).Format(time.RFC3339Nano),
		domain.MetaLastCollected:   t0.Add(2 * time.Hour).Format(time.RFC3339Nano),
	})
	fresh := rec("dns", 0.8, t0, nil)

	ent := m.Merge(fp, []domain.RawRecord{prior, fresh})
	assert.Equal(t, []string{"dns", "web", "whois"}, ent.Metadata[domain.MetaSources])
	assert.Equal(t, 3, ent.Metadata[domain.MetaCollectionCount])
	assert.Equal(t, t0.Add(-time.Hour).Format(time.RFC3339Nano), ent.Metadata[domain.MetaFirstCollected])
	assert.Equal(t, t0.Add(2*time.Hour).Format(time.RFC3339Nano), ent.Metadata[domain.MetaLastCollected])
}

func TestMergeEngine_Commutative(t *testing.T) {
	m := NewMergeEngine()
	fp := domain.Fingerprint{Type: domain.EntityDomain, Value: "example.com"}

	records := []domain.RawRecord{
		rec("whois", 0.9, t0, map[string]any{"registrar": "A", "tags": []string{"x"}}),
		rec("web", 0.9, t0.Add(time.Minute), map[string]any{"registrar": "B", "tags": []string{"y"}}),
		rec("dns", 0.4, t0.Add(time.Second), map[string]any{"ns": []string{"ns1"}}),
		rec("web", 0.9, t0.Add(time.Minute), map[string]any{"registrar": "C"}),
	}
	want := m.Merge(fp, records)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]domain.RawRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, m.Merge(fp, shuffled), "merge must not depend on input order")
	}
}

func TestMergeEngine_MergeRelationships(t *testing.T) {
	m := NewMergeEngine()

	rels := []domain.RawRelationship{
		{SourceType: "domain", SourceValue: "example.com", TargetType: "ip", TargetValue: "1.1.1.1",
			RelationshipType: "resolves_to", Confidence: 0.6, Source: "dns", Metadata: map[string]any{"ttl": 300}},
		{SourceType: "domain", SourceValue: "example.com", TargetType: "ip", TargetValue: "1.1.1.1",
			RelationshipType: "resolves_to", Confidence: 0.9, Source: "web", Metadata: map[string]any{"ttl": 60, "record": "A"}},
		{SourceType: "domain", SourceValue: "example.com", TargetType: "nameserver", TargetValue: "ns1.example.com",
			RelationshipType: "has_nameserver", Confidence: 0.8, Source: "dns"},
	}

	out := m.MergeRelationships(rels)
	require.Len(t, out, 2)

	assert.Equal(t, "has_nameserver", out[0].RelationshipType, "sorted by key")
	resolves := out[1]
	assert.Equal(t, 0.9, resolves.Confidence)
	assert.Equal(t, 300, resolves.Metadata["ttl"], "dns sorts first and keeps its value")
	assert.Equal(t, "A", resolves.Metadata["record"])
	assert.Equal(t, []string{"dns", "web"}, resolves.Metadata[domain.MetaSources])
}

func TestSortRecords(t *testing.T) {
	in := []domain.RawRecord{
		rec("b", 0.5, t0, nil),
		rec("a", 0.1, t0, nil),
		rec("a", 0.9, t0.Add(time.Second), nil),
		rec("a", 0.9, t0, nil),
	}
	out := SortRecords(in)
	assert.Equal(t, "a", out[0].Source)
	assert.Equal(t, 0.9, out[0].Confidence)
	assert.True(t, out[0].CollectedAt.Equal(t0))
	assert.Equal(t, 0.9, out[1].Confidence)
	assert.Equal(t, 0.1, out[2].Confidence)
	assert.Equal(t, "b", out[3].Source)
}
