// internal/core/usecases/mocks_test.go
package usecases

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/logx"
	"argus/internal/platform/registry"
)

// mockCollector es un mock de ports.Collector para tests del orchestrator
type mockCollector struct {
	name     string
	execFunc func(ctx context.Context, target domain.Target) (*domain.CollectorOutput, error)
	calls    atomic.Int32
	closed   atomic.Bool
}

func newMockCollector(name string) *mockCollector {
	return &mockCollector{name: name}
}

func (m *mockCollector) Name() string {
	return m.name
}

func (m *mockCollector) Execute(ctx context.Context, target domain.Target) (*domain.CollectorOutput, error) {
	m.calls.Add(1)
	if m.execFunc != nil {
		return m.execFunc(ctx, target)
	}
	return &domain.CollectorOutput{}, nil
}

func (m *mockCollector) Close() error {
	m.closed.Store(true)
	return nil
}

// collectorWithRecords retorna n records de tipo domain con valores distintos
func collectorWithRecords(name string, n int) *mockCollector {
	m := newMockCollector(name)
	m.execFunc = func(ctx context.Context, target domain.Target) (*domain.CollectorOutput, error) {
		out := &domain.CollectorOutput{}
		for i := 0; i < n; i++ {
			out.AddRecord(domain.RawRecord{
				Type:       domain.EntitySubdomain,
				Value:      fmt.Sprintf("host%d.%s", i, target.Value),
				Source:     name,
				Confidence: 0.7,
			})
		}
		return out, nil
	}
	return m
}

// failingCollector retorna siempre un error duro
func failingCollector(name string, err error) *mockCollector {
	m := newMockCollector(name)
	m.execFunc = func(context.Context, domain.Target) (*domain.CollectorOutput, error) {
		return nil, err
	}
	return m
}

// softFailingCollector retorna salida sin records y con errores
func softFailingCollector(name string, msg string) *mockCollector {
	m := newMockCollector(name)
	m.execFunc = func(context.Context, domain.Target) (*domain.CollectorOutput, error) {
		out := &domain.CollectorOutput{}
		out.AddError("%s", msg)
		return out, nil
	}
	return m
}

// blockingCollector bloquea hasta release o hasta que ctx termine. Con
// ignoreCtx solo release lo desbloquea.
func blockingCollector(name string, release <-chan struct{}, ignoreCtx bool) *mockCollector {
	m := newMockCollector(name)
	m.execFunc = func(ctx context.Context, target domain.Target) (*domain.CollectorOutput, error) {
		out := &domain.CollectorOutput{}
		out.AddRecord(domain.RawRecord{Type: domain.EntityDomain, Value: target.Value, Source: name, Confidence: 0.5})
		if ignoreCtx {
			<-release
			return out, nil
		}
		select {
		case <-release:
			return out, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m
}

// newTestRegistry registra cada mock con una factory que lo retorna tal cual.
func newTestRegistry(t *testing.T, collectors ...*mockCollector) *registry.CollectorRegistry {
	t.Helper()
	reg := registry.NewCollectorRegistry(logx.NewSilent())
	for _, c := range collectors {
		c := c
		err := reg.Register(c.name, func(ports.CollectorConfig, logx.Logger) (ports.Collector, error) {
			return c, nil
		}, ports.CollectorMetadata{Name: c.name, Priority: 5})
		if err != nil {
			t.Fatalf("register %s: %v", c.name, err)
		}
	}
	return reg
}

// mockStore guarda entidades y relaciones en memoria
type mockStore struct {
	mu       sync.Mutex
	entities map[string]domain.NormalizedEntity
	rels     []string
	failFor  string
}

func newMockStore() *mockStore {
	return &mockStore{entities: make(map[string]domain.NormalizedEntity)}
}

func (s *mockStore) CreateEntity(_ context.Context, e domain.NormalizedEntity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := e.Fingerprint().Key()
	if key == s.failFor {
		return "", fmt.Errorf("store unavailable")
	}
	id := "id-" + key
	s.entities[id] = e
	return id, nil
}

func (s *mockStore) CreateRelationship(_ context.Context, r domain.NormalizedRelationship, src, tgt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rels = append(s.rels, src+"->"+tgt+":"+r.RelationshipType)
	return fmt.Sprintf("rel-%d", len(s.rels)), nil
}

func (s *mockStore) counts() (int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities), append([]string(nil), s.rels...)
}

// mockGraph cuenta nodos y aristas sincronizados
type mockGraph struct {
	nodes atomic.Int32
	edges atomic.Int32
}

func (g *mockGraph) SyncNode(context.Context, string, domain.NormalizedEntity) error {
	g.nodes.Add(1)
	return nil
}

func (g *mockGraph) SyncEdge(context.Context, string, string, domain.NormalizedRelationship) error {
	g.edges.Add(1)
	return nil
}

type mockRisk struct {
	score float64
	err   error
}

func (r *mockRisk) AssessRisk(_ context.Context, taskID string, entities []domain.NormalizedEntity) (ports.RiskReport, error) {
	if r.err != nil {
		return ports.RiskReport{}, r.err
	}
	return ports.RiskReport{TaskID: taskID, Score: r.score, Level: "low"}, nil
}

// mockBroadcaster guarda cada snapshot publicado
type mockBroadcaster struct {
	mu        sync.Mutex
	snapshots []domain.CollectionTask
}

func (b *mockBroadcaster) BroadcastProgress(_ context.Context, _ string, task domain.CollectionTask) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots = append(b.snapshots, task)
	return nil
}

func (b *mockBroadcaster) progressFor(taskID string) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []float64
	for _, s := range b.snapshots {
		if s.TaskID == taskID {
			out = append(out, s.ProgressPercent)
		}
	}
	return out
}

// mockCompliance rechaza los targets listados
type mockCompliance struct {
	blocked map[string]string
}

func (c mockCompliance) Check(_ context.Context, t domain.Target) error {
	if reason, ok := c.blocked[t.Value]; ok {
		return fmt.Errorf("%s", reason)
	}
	return nil
}
