// internal/core/usecases/collector_task_test.go
package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/testutil"
)

func TestCollectorTask_Success(t *testing.T) {
	ct := NewCollectorTask(collectorWithRecords("domain", 2), domain.NewTarget("example.com"), 5, 20, time.Second)

	testutil.AssertNoError(t, ct.Execute(context.Background()), "execute")
	ok, errs := ct.Outcome()
	testutil.AssertTrue(t, ok, "records means success")
	testutil.AssertLen(t, errs, 0, "no errors")

	out, _ := ct.Result()
	testutil.AssertLen(t, out.Records, 2, "records kept")
	testutil.AssertEqual(t, ct.Name(), "domain", "name from collector")
}

func TestCollectorTask_AbandonsNonCooperativeCollector(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	ct := NewCollectorTask(blockingCollector("slow", release, true), domain.NewTarget("example.com"), 5, 20, 20*time.Millisecond)

	start := time.Now()
	err := ct.Execute(context.Background())
	testutil.AssertTrue(t, time.Since(start) < time.Second, "returns at the collector deadline")

	var te *domain.TimeoutError
	testutil.AssertTrue(t, errors.As(err, &te), "timeout error")
	testutil.AssertEqual(t, te.Scope, domain.TimeoutScopeCollector, "collector scope")

	var ce *domain.CollectorError
	testutil.AssertTrue(t, errors.As(err, &ce), "wrapped as collector error")
	testutil.AssertEqual(t, ce.Collector, "slow", "collector name")

	ok, errs := ct.Outcome()
	testutil.AssertFalse(t, ok, "timeout is a failure")
	testutil.AssertLen(t, errs, 1, "one error")
}

func TestCollectorTask_ParentCancelIsNotTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ct := NewCollectorTask(blockingCollector("slow", release, false), domain.NewTarget("example.com"), 5, 20, time.Minute)
	err := ct.Execute(ctx)

	var te *domain.TimeoutError
	testutil.AssertFalse(t, errors.As(err, &te), "parent cancellation is not a collector timeout")
	testutil.AssertTrue(t, errors.Is(err, context.Canceled), "context error kept")
}

func TestCollectorTask_Outcome(t *testing.T) {
	tests := []struct {
		name    string
		c       *mockCollector
		wantOK  bool
		wantErr int
	}{
		{"hard error", failingCollector("x", errors.New("boom")), false, 1},
		{"errors without records", softFailingCollector("x", "HTTP 503"), false, 1},
		{"empty output", newMockCollector("x"), true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := NewCollectorTask(tt.c, domain.NewTarget("example.com"), 0, 0, time.Second)
			_ = ct.Execute(context.Background())
			ok, errs := ct.Outcome()
			testutil.AssertEqual(t, ok, tt.wantOK, "outcome")
			testutil.AssertLen(t, errs, tt.wantErr, "errors")
		})
	}
}

func TestCollectorTask_PartialErrorsStillSucceed(t *testing.T) {
	c := newMockCollector("web")
	c.execFunc = func(context.Context, domain.Target) (*domain.CollectorOutput, error) {
		out := &domain.CollectorOutput{}
		out.AddRecord(domain.NewRawRecord(domain.EntityURL, "https://example.com", "web", 0.6))
		out.AddError("robots.txt unavailable")
		return out, nil
	}

	ct := NewCollectorTask(c, domain.NewTarget("example.com"), 0, 0, time.Second)
	testutil.AssertNoError(t, ct.Execute(context.Background()), "execute")
	ok, errs := ct.Outcome()
	testutil.AssertTrue(t, ok, "records plus errors is success")
	testutil.AssertContains(t, errs, "robots.txt unavailable", "soft error reported")
}

func TestEstimateCollectorWeight(t *testing.T) {
	tests := []struct {
		meta ports.CollectorMetadata
		want int
	}{
		{ports.CollectorMetadata{}, 20},
		{ports.CollectorMetadata{Network: true}, 50},
		{ports.CollectorMetadata{Network: true, RateLimit: 2}, 70},
		{ports.CollectorMetadata{RateLimit: 1}, 40},
	}
	for _, tt := range tests {
		testutil.AssertEqual(t, EstimateCollectorWeight(tt.meta), tt.want, "weight")
	}
}
