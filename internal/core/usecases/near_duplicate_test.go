package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/core/domain"
)

func groupsOf(records ...domain.RawRecord) []*RecordGroup {
	ix := NewFingerprintIndex()
	for _, r := range records {
		ix.Add(CanonicalRecord(r))
	}
	return ix.Groups()
}

func org(value string, meta map[string]any) domain.RawRecord {
	return domain.RawRecord{Type: domain.EntityOrganization, Value: value, Source: "test", Confidence: 0.8, Metadata: meta}
}

func TestShingles(t *testing.T) {
	fp := domain.Fingerprint{Type: domain.EntityOrganization, Value: "acme corp"}
	meta := map[string]any{
		"Country":                  "GB",
		"tags":                     []string{"Finance", "Banking"},
		domain.MetaSources:         []string{"web"},
		domain.MetaCollectionCount: 3,
		"address":                  map[string]any{"city": "London"},
	}

	got := Shingles(fp, meta)
	assert.Contains(t, got, "t:organization")
	assert.Contains(t, got, "v=acme corp")
	assert.Contains(t, got, "w:acme")
	assert.Contains(t, got, "m:country=gb")
	assert.Contains(t, got, "m:tags=finance")
	assert.Contains(t, got, "m:tags=banking")
	assert.Contains(t, got, "m:address.city=london")
	for _, s := range got {
		assert.NotContains(t, s, "sources", "bookkeeping keys are excluded")
		assert.NotContains(t, s, "collection_count")
	}
	assert.IsIncreasing(t, got)
}

func TestFuzzyEligible(t *testing.T) {
	assert.True(t, FuzzyEligible(domain.EntityOrganization))
	assert.True(t, FuzzyEligible(domain.EntityPerson))
	assert.True(t, FuzzyEligible("custom"))
	assert.False(t, FuzzyEligible(domain.EntityIP))
	assert.False(t, FuzzyEligible(domain.EntityDomain))
	assert.False(t, FuzzyEligible(domain.EntityEmail))
}

func TestNearDuplicateMatcher_MergesSimilarFreeText(t *testing.T) {
	m, err := NewNearDuplicateMatcher(128, 0.5, 0)
	require.NoError(t, err)

	meta := map[string]any{"country": "GB", "industry": "finance"}
	groups := groupsOf(
		org("Acme Holdings International Ltd", meta),
		org("Acme Holdings International Ltd.", meta),
		org("Globex Corporation", map[string]any{"country": "US"}),
	)
	require.Len(t, groups, 3)

	clusters, err := m.Cluster(groups)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	var merged []*RecordGroup
	for _, c := range clusters {
		if len(c) == 2 {
			merged = c
		}
	}
	require.NotNil(t, merged, "acme variants should cluster")
	assert.Equal(t, "acme holdings international ltd", merged[0].Fingerprint.Value, "root is the smallest key")
}

func TestNearDuplicateMatcher_IdentifierTypesStayExact(t *testing.T) {
	m, err := NewNearDuplicateMatcher(128, 0.5, 0)
	require.NoError(t, err)

	groups := groupsOf(
		domain.RawRecord{Type: domain.EntityIP, Value: "1.2.3.4", Source: "ip"},
		domain.RawRecord{Type: domain.EntityIP, Value: "1.2.3.5", Source: "ip"},
	)
	clusters, err := m.Cluster(groups)
	require.NoError(t, err)
	assert.Len(t, clusters, 2)
}

func TestNearDuplicateMatcher_OnlyFreshSingletonsQuery(t *testing.T) {
	m, err := NewNearDuplicateMatcher(128, 0.5, 0)
	require.NoError(t, err)

	meta := func(n int) map[string]any {
		return map[string]any{"country": "GB", "industry": "finance", domain.MetaCollectionCount: n}
	}
	// ambos grupos ya fusionados antes: ninguno consulta el índice
	groups := groupsOf(
		org("Acme Holdings International Ltd", meta(2)),
		org("Acme Holdings International Ltd.", meta(3)),
	)
	clusters, err := m.Cluster(groups)
	require.NoError(t, err)
	assert.Len(t, clusters, 2)
}

func TestNearDuplicateMatcher_DifferentTypesNeverMerge(t *testing.T) {
	m, err := NewNearDuplicateMatcher(128, 0.5, 0)
	require.NoError(t, err)

	groups := groupsOf(
		domain.RawRecord{Type: domain.EntityPerson, Value: "Jane Smith", Source: "a"},
		domain.RawRecord{Type: domain.EntityLocation, Value: "Jane Smith", Source: "a"},
	)
	clusters, err := m.Cluster(groups)
	require.NoError(t, err)
	assert.Len(t, clusters, 2)
}

func TestNewNearDuplicateMatcher_InvalidThreshold(t *testing.T) {
	_, err := NewNearDuplicateMatcher(128, 1.5, 0)
	assert.Error(t, err)
	_, err = NewNearDuplicateMatcher(128, 0, 0)
	assert.Error(t, err)
}

func TestRecordGroup_Weight(t *testing.T) {
	g := &RecordGroup{Records: []domain.RawRecord{
		{Metadata: map[string]any{domain.MetaCollectionCount: 3}},
		{Metadata: nil},
		{Metadata: map[string]any{domain.MetaCollectionCount: 0}},
	}}
	assert.Equal(t, 5, g.Weight())
}
