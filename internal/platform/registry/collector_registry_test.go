// internal/platform/registry/collector_registry_test.go
package registry

import (
	"context"
	"errors"
	"testing"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/logx"
	"argus/internal/testutil"
)

type stubCollector struct {
	name string
	cfg  ports.CollectorConfig
}

func (s *stubCollector) Name() string { return s.name }
func (s *stubCollector) Execute(ctx context.Context, target domain.Target) (*domain.CollectorOutput, error) {
	return &domain.CollectorOutput{}, nil
}
func (s *stubCollector) Close() error { return nil }

func stubFactory(name string) CollectorFactory {
	return func(cfg ports.CollectorConfig, logger logx.Logger) (ports.Collector, error) {
		return &stubCollector{name: name, cfg: cfg}, nil
	}
}

func TestCollectorRegistry_Register(t *testing.T) {
	r := NewCollectorRegistry(logx.NewNop())

	err := r.Register("test", stubFactory("test"), ports.CollectorMetadata{
		TargetTypes: []domain.TargetType{domain.TargetDomain},
	})
	testutil.AssertNoError(t, err, "register should succeed")
	testutil.AssertTrue(t, r.IsRegistered("test"), "collector should be registered")

	meta, ok := r.GetMetadata("test")
	testutil.AssertTrue(t, ok, "metadata present")
	testutil.AssertEqual(t, meta.Name, "test", "name defaulted from registration")
}

func TestCollectorRegistry_RegisterErrors(t *testing.T) {
	r := NewCollectorRegistry(logx.NewNop())

	testutil.AssertError(t, r.Register("", stubFactory("x"), ports.CollectorMetadata{}), "empty name")
	testutil.AssertError(t, r.Register("x", nil, ports.CollectorMetadata{}), "nil factory")

	testutil.AssertNoError(t, r.Register("x", stubFactory("x"), ports.CollectorMetadata{}), "first")
	testutil.AssertError(t, r.Register("x", stubFactory("x"), ports.CollectorMetadata{}), "duplicate")
}

func TestCollectorRegistry_MustRegisterPanicsOnDuplicate(t *testing.T) {
	r := NewCollectorRegistry(logx.NewNop())
	r.MustRegister("x", stubFactory("x"), ports.CollectorMetadata{})

	defer func() {
		testutil.AssertNotNil(t, recover(), "should panic")
	}()
	r.MustRegister("x", stubFactory("x"), ports.CollectorMetadata{})
}

func TestCollectorRegistry_Build(t *testing.T) {
	r := NewCollectorRegistry(logx.NewNop())
	r.MustRegister("web", stubFactory("web"), ports.CollectorMetadata{})

	cfg := ports.DefaultCollectorConfig()
	cfg.Priority = 9

	c, err := r.Build("web", cfg, logx.NewNop())
	testutil.AssertNoError(t, err, "build")
	testutil.AssertEqual(t, c.Name(), "web", "collector name")
	testutil.AssertEqual(t, c.(*stubCollector).cfg.Priority, 9, "config passed through")

	_, err = r.Build("missing", cfg, nil)
	testutil.AssertTrue(t, errors.Is(err, domain.ErrCollectorNotFound), "missing collector sentinel")
}

func TestCollectorRegistry_BuildFactoryError(t *testing.T) {
	r := NewCollectorRegistry(logx.NewNop())
	r.MustRegister("broken", func(ports.CollectorConfig, logx.Logger) (ports.Collector, error) {
		return nil, errors.New("missing api key")
	}, ports.CollectorMetadata{})

	_, err := r.Build("broken", ports.DefaultCollectorConfig(), nil)
	testutil.AssertError(t, err, "factory error propagated")
	testutil.AssertContains(t, err.Error(), "missing api key", "cause in message")
}

func TestCollectorRegistry_ListAndMetadata(t *testing.T) {
	r := NewCollectorRegistry(logx.NewNop())
	r.MustRegister("web", stubFactory("web"), ports.CollectorMetadata{Priority: 5})
	r.MustRegister("domain", stubFactory("domain"), ports.CollectorMetadata{Priority: 8})
	r.MustRegister("geo", stubFactory("geo"), ports.CollectorMetadata{Priority: 5})

	testutil.AssertDeepEqual(t, r.List(), []string{"domain", "geo", "web"}, "sorted names")

	all := r.AllMetadata()
	testutil.AssertLen(t, all, 3, "metadata count")
	testutil.AssertEqual(t, all[0].Name, "domain", "highest priority first")
	testutil.AssertEqual(t, all[1].Name, "geo", "ties by name")
}

func TestCollectorRegistry_Clear(t *testing.T) {
	r := NewCollectorRegistry(logx.NewNop())
	r.MustRegister("web", stubFactory("web"), ports.CollectorMetadata{})
	r.Clear()

	testutil.AssertLen(t, r.List(), 0, "empty after clear")
	testutil.AssertFalse(t, r.IsRegistered("web"), "not registered")
}

func TestCollectorMetadata_Accepts(t *testing.T) {
	open := ports.CollectorMetadata{}
	testutil.AssertTrue(t, open.Accepts(domain.TargetIP), "no declaration accepts all")

	web := ports.CollectorMetadata{TargetTypes: []domain.TargetType{domain.TargetDomain, domain.TargetURL}}
	testutil.AssertTrue(t, web.Accepts(domain.TargetURL), "declared type")
	testutil.AssertFalse(t, web.Accepts(domain.TargetEmail), "undeclared type")
}
