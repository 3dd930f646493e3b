package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/core/domain"
	"argus/internal/platform/errors"
)

// Requiere una base real: ARGUS_TEST_POSTGRES_DSN=postgres://...
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("ARGUS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ARGUS_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func uniqueHost(t *testing.T) string {
	return strings.ToLower(strings.ReplaceAll(t.Name(), "/", "-")) + "-" +
		time.Now().UTC().Format("150405.000000000") + ".example"
}

func TestOpen_InvalidDSN(t *testing.T) {
	_, err := Open(context.Background(), "postgres://%zz", nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestStore_Roundtrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	host := uniqueHost(t)

	ent := domain.NormalizedEntity{
		Type: domain.EntityDomain, Value: host, Confidence: 0.6, QualityScore: 80,
		Metadata: map[string]any{"sources": []string{"domain"}},
	}
	id, err := s.CreateEntity(ctx, ent)
	require.NoError(t, err)

	ent.Confidence = 0.9
	again, err := s.CreateEntity(ctx, ent)
	require.NoError(t, err)
	assert.Equal(t, id, again, "upsert keeps the public id")

	got, err := s.GetEntity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.Confidence)

	ip, err := s.CreateEntity(ctx, domain.NormalizedEntity{Type: domain.EntityIP, Value: "192.0.2.1", Confidence: 0.8})
	require.NoError(t, err)
	rel := domain.NormalizedRelationship{
		SourceType: domain.EntityDomain, SourceValue: host,
		TargetType: domain.EntityIP, TargetValue: "192.0.2.1",
		RelationshipType: domain.RelResolvesTo, Confidence: 0.8,
	}
	relID, err := s.CreateRelationship(ctx, rel, id, ip)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(relID, "rel_"))

	_, err = s.GetEntity(ctx, "ent_missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
