package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/core/domain"
	"argus/internal/platform/errors"
)

func rel(t string, conf float64) domain.NormalizedRelationship {
	return domain.NormalizedRelationship{RelationshipType: t, Confidence: conf}
}

// example.com -> 1.2.3.4 <- api.example.com ; admin@example.com -> example.com ; lonely
func buildGraph(t *testing.T) *Graph {
	t.Helper()
	ctx := context.Background()
	g := New(nil)
	nodes := map[string]domain.NormalizedEntity{
		"d":   {Type: domain.EntityDomain, Value: "example.com"},
		"ip":  {Type: domain.EntityIP, Value: "1.2.3.4"},
		"sub": {Type: domain.EntitySubdomain, Value: "api.example.com"},
		"em":  {Type: domain.EntityEmail, Value: "admin@example.com"},
		"x":   {Type: domain.EntityDomain, Value: "lonely.org"},
	}
	for id, e := range nodes {
		require.NoError(t, g.SyncNode(ctx, id, e))
	}
	require.NoError(t, g.SyncEdge(ctx, "d", "ip", rel(domain.RelResolvesTo, 0.8)))
	require.NoError(t, g.SyncEdge(ctx, "sub", "ip", rel(domain.RelResolvesTo, 0.8)))
	require.NoError(t, g.SyncEdge(ctx, "em", "d", rel(domain.RelEmailDomain, 1)))
	return g
}

func TestGraph_Neighbors(t *testing.T) {
	g := buildGraph(t)

	n, err := g.Neighbors("d")
	require.NoError(t, err)
	require.Len(t, n, 2)
	assert.Equal(t, "ip", n[0].Node.ID)
	assert.Equal(t, "out", n[0].Direction)
	assert.Equal(t, "em", n[1].Node.ID)
	assert.Equal(t, "in", n[1].Direction)

	filtered, err := g.Neighbors("d", domain.RelEmailDomain)
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	_, err = g.Neighbors("missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestGraph_SyncEdgeKeepsHighestConfidence(t *testing.T) {
	g := buildGraph(t)
	require.NoError(t, g.SyncEdge(context.Background(), "d", "ip", rel(domain.RelResolvesTo, 0.3)))

	n, err := g.Neighbors("d", domain.RelResolvesTo)
	require.NoError(t, err)
	assert.Equal(t, 0.8, n[0].Edge.Confidence)

	nodes, edges := g.Stats()
	assert.Equal(t, 5, nodes)
	assert.Equal(t, 3, edges)
}

func TestGraph_SyncEdgeUnknownNode(t *testing.T) {
	g := buildGraph(t)
	err := g.SyncEdge(context.Background(), "d", "nope", rel(domain.RelLinksTo, 1))
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestGraph_ShortestPath(t *testing.T) {
	g := buildGraph(t)

	path, err := g.ShortestPath("em", "sub")
	require.NoError(t, err)
	assert.Equal(t, []string{"em", "d", "ip", "sub"}, path)

	self, err := g.ShortestPath("ip", "ip")
	require.NoError(t, err)
	assert.Equal(t, []string{"ip"}, self)

	_, err = g.ShortestPath("em", "x")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestGraph_Lookup(t *testing.T) {
	g := buildGraph(t)
	id, ok := g.Lookup(domain.EntityIP, "1.2.3.4")
	assert.True(t, ok)
	assert.Equal(t, "ip", id)
}
