// internal/adapters/graph/graph.go
package graph

import (
	"context"
	"sort"
	"sync"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
	"argus/internal/platform/logx"
)

// Node es una entidad sincronizada en el grafo.
type Node struct {
	ID     string                  `json:"id"`
	Entity domain.NormalizedEntity `json:"entity"`
}

// Edge es una relación dirigida entre dos nodos.
type Edge struct {
	SourceID   string  `json:"source_id"`
	TargetID   string  `json:"target_id"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Neighbor es un nodo adyacente con la arista que lo conecta.
type Neighbor struct {
	Node      Node   `json:"node"`
	Edge      Edge   `json:"edge"`
	Direction string `json:"direction"` // out, in
}

// Graph es un grafo en memoria con índices directo e inverso.
// Implementa ports.GraphSync.
type Graph struct {
	mu sync.RWMutex

	nodes map[string]Node
	// keys mapea fingerprint -> id
	keys map[string]string

	// forward[sourceID][edgeKey] / reverse[targetID][edgeKey]
	forward map[string]map[string]Edge
	reverse map[string]map[string]Edge

	logger logx.Logger
}

var _ ports.GraphSync = (*Graph)(nil)

// New crea un grafo vacío.
func New(logger logx.Logger) *Graph {
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &Graph{
		nodes:   make(map[string]Node),
		keys:    make(map[string]string),
		forward: make(map[string]map[string]Edge),
		reverse: make(map[string]map[string]Edge),
		logger:  logger.With("component", "graph"),
	}
}

// SyncNode crea o reemplaza un nodo.
func (g *Graph) SyncNode(ctx context.Context, id string, entity domain.NormalizedEntity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return errors.Wrap(errors.ErrInvalidInput, "node id is empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[id] = Node{ID: id, Entity: entity}
	g.keys[entity.Fingerprint().Key()] = id
	return nil
}

// SyncEdge crea o actualiza una arista. Ambos extremos deben existir.
func (g *Graph) SyncEdge(ctx context.Context, sourceID, targetID string, rel domain.NormalizedRelationship) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[sourceID]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "source node %s", sourceID)
	}
	if _, ok := g.nodes[targetID]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "target node %s", targetID)
	}

	e := Edge{SourceID: sourceID, TargetID: targetID, Type: rel.RelationshipType, Confidence: rel.Confidence}
	key := targetID + "|" + e.Type
	if prev, ok := g.forward[sourceID][key]; ok && prev.Confidence > e.Confidence {
		e.Confidence = prev.Confidence
	}
	if g.forward[sourceID] == nil {
		g.forward[sourceID] = make(map[string]Edge)
	}
	if g.reverse[targetID] == nil {
		g.reverse[targetID] = make(map[string]Edge)
	}
	g.forward[sourceID][key] = e
	g.reverse[targetID][sourceID+"|"+e.Type] = e
	return nil
}

// Node retorna un nodo por ID.
func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Lookup resuelve (type, value) al ID de su nodo.
func (g *Graph) Lookup(t domain.EntityType, value string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.keys[domain.Fingerprint{Type: t, Value: value}.Key()]
	return id, ok
}

// Stats retorna la cantidad de nodos y aristas.
func (g *Graph) Stats() (nodes, edges int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, out := range g.forward {
		edges += len(out)
	}
	return len(g.nodes), edges
}

// Neighbors retorna los vecinos de id en ambas direcciones, opcionalmente
// filtrados por tipo de relación. Orden: dirección, tipo, id.
func (g *Graph) Neighbors(id string, relTypes ...string) ([]Neighbor, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[id]; !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "node %s", id)
	}
	allowed := make(map[string]bool, len(relTypes))
	for _, t := range relTypes {
		allowed[t] = true
	}

	var out []Neighbor
	for _, e := range g.forward[id] {
		if len(allowed) > 0 && !allowed[e.Type] {
			continue
		}
		out = append(out, Neighbor{Node: g.nodes[e.TargetID], Edge: e, Direction: "out"})
	}
	for _, e := range g.reverse[id] {
		if len(allowed) > 0 && !allowed[e.Type] {
			continue
		}
		out = append(out, Neighbor{Node: g.nodes[e.SourceID], Edge: e, Direction: "in"})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Direction != out[j].Direction {
			return out[i].Direction > out[j].Direction // out antes que in
		}
		if out[i].Edge.Type != out[j].Edge.Type {
			return out[i].Edge.Type < out[j].Edge.Type
		}
		return out[i].Node.ID < out[j].Node.ID
	})
	return out, nil
}

// ShortestPath retorna la secuencia de IDs entre from y to tratando las
// aristas como no dirigidas (BFS). Retorna ErrNotFound si no hay camino.
func (g *Graph) ShortestPath(from, to string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[from]; !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "node %s", from)
	}
	if _, ok := g.nodes[to]; !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "node %s", to)
	}
	if from == to {
		return []string{from}, nil
	}

	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range g.adjacent(cur) {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				return buildPath(prev, from, to), nil
			}
			queue = append(queue, next)
		}
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "no path from %s to %s", from, to)
}

// adjacent retorna los vecinos sin dirección, ordenados para BFS determinista.
func (g *Graph) adjacent(id string) []string {
	set := make(map[string]struct{})
	for _, e := range g.forward[id] {
		set[e.TargetID] = struct{}{}
	}
	for _, e := range g.reverse[id] {
		set[e.SourceID] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func buildPath(prev map[string]string, from, to string) []string {
	var path []string
	for cur := to; cur != from; cur = prev[cur] {
		path = append(path, cur)
	}
	path = append(path, from)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
