// internal/core/usecases/tracked_task_test.go
package usecases

import (
	"math"
	"testing"

	"argus/internal/core/domain"
	"argus/internal/testutil"
)

func newTestTracked(collectors ...string) *TrackedTask {
	return newTrackedTask(domain.CollectionTask{
		TaskID:     "task-1",
		Target:     "example.com",
		Collectors: collectors,
	}, testutil.FixedClock(t0))
}

func TestTrackedTask_Lifecycle(t *testing.T) {
	tt := newTestTracked("domain")
	testutil.AssertEqual(t, tt.Status(), domain.TaskPending, "new task is pending")
	testutil.AssertTrue(t, tt.Snapshot().CreatedAt.Equal(t0), "created_at from clock")

	testutil.AssertNoError(t, tt.start(), "pending -> running")
	testutil.AssertError(t, tt.start(), "running -> running is invalid")

	ok := tt.finish(domain.TaskCompleted, domain.CollectionResults{
		Entities: []domain.NormalizedEntity{{Type: domain.EntityDomain, Value: "example.com"}},
	}, "")
	testutil.AssertTrue(t, ok, "running -> completed")
	testutil.AssertEqual(t, tt.Snapshot().ProgressPercent, 100.0, "completed is 100%")

	select {
	case <-tt.Done():
	default:
		t.Fatal("done channel must be closed")
	}

	res, ok := tt.Results()
	testutil.AssertTrue(t, ok, "results available")
	testutil.AssertEqual(t, res.Status, domain.TaskCompleted, "results carry status")
	testutil.AssertEqual(t, res.TaskID, "task-1", "results carry task id")
	testutil.AssertLen(t, res.Entities, 1, "entities kept")

	testutil.AssertFalse(t, tt.finish(domain.TaskFailed, domain.CollectionResults{}, "late"), "terminal states absorb")
	testutil.AssertEqual(t, tt.Status(), domain.TaskCompleted, "status unchanged")
}

func TestTrackedTask_FailedDropsEntities(t *testing.T) {
	tt := newTestTracked("domain")
	testutil.AssertNoError(t, tt.start(), "start")

	tt.finish(domain.TaskFailed, domain.CollectionResults{
		Entities: []domain.NormalizedEntity{{Type: domain.EntityDomain, Value: "example.com"}},
	}, "all collectors failed")

	res, _ := tt.Results()
	testutil.AssertNil(t, res.Entities, "failed results carry no entities")
	testutil.AssertContains(t, res.Errors, "all collectors failed", "reason recorded")
}

func TestTrackedTask_ProgressMonotonic(t *testing.T) {
	tt := newTestTracked("a", "b", "c")
	testutil.AssertNoError(t, tt.start(), "start")

	want := []float64{80.0 / 3, 160.0 / 3, 80}
	prev := 0.0
	for i, name := range []string{"b", "a", "c"} {
		tt.recordCollector(name, i != 1, nil, 1, 0)
		got := tt.Snapshot().ProgressPercent
		testutil.AssertTrue(t, math.Abs(got-want[i]) < 1e-9, "progress after "+name)
		testutil.AssertTrue(t, got >= prev, "progress never decreases")
		prev = got
	}

	tt.setProgress(50)
	testutil.AssertEqual(t, tt.Snapshot().ProgressPercent, 80.0, "setProgress cannot go back")
	tt.setProgress(250)
	testutil.AssertEqual(t, tt.Snapshot().ProgressPercent, 100.0, "capped at 100")

	snap := tt.Snapshot()
	testutil.AssertDeepEqual(t, snap.CollectorsCompleted, []string{"b", "c"}, "completed sorted")
	testutil.AssertDeepEqual(t, snap.CollectorsFailed, []string{"a"}, "failed sorted")
	testutil.AssertEqual(t, snap.EntitiesCollected, 2, "only successful records counted")
}

func TestTrackedTask_LateOutputDiscarded(t *testing.T) {
	tt := newTestTracked("slow", "fast")
	testutil.AssertNoError(t, tt.start(), "start")
	tt.recordCollector("fast", true, nil, 3, 0)

	testutil.AssertTrue(t, tt.requestCancel(), "cancel running task")
	testutil.AssertFalse(t, tt.requestCancel(), "second cancel is a no-op")

	testutil.AssertFalse(t, tt.recordCollector("slow", true, nil, 10, 0), "late output rejected")

	snap := tt.Snapshot()
	testutil.AssertEqual(t, snap.Status, domain.TaskCancelled, "cancelled")
	testutil.AssertDeepEqual(t, snap.Discarded, []string{"slow"}, "late collector discarded")
	testutil.AssertEqual(t, snap.EntitiesCollected, 3, "late records not counted")
	testutil.AssertContains(t, snap.Errors, "cancelled by request", "reason recorded")
}

func TestTrackedTask_CompletedCountsDeduplicated(t *testing.T) {
	tt := newTestTracked("domain", "web")
	testutil.AssertNoError(t, tt.start(), "start")
	tt.recordCollector("domain", true, nil, 1, 1)
	tt.recordCollector("web", true, nil, 1, 1)
	testutil.AssertEqual(t, tt.Snapshot().EntitiesCollected, 2, "raw count while collecting")

	ok := tt.finish(domain.TaskCompleted, domain.CollectionResults{
		Entities: []domain.NormalizedEntity{{Type: domain.EntityDomain, Value: "example.com"}},
	}, "")
	testutil.AssertTrue(t, ok, "finish")

	snap := tt.Snapshot()
	testutil.AssertEqual(t, snap.EntitiesCollected, 1, "entities after merge")
	testutil.AssertEqual(t, snap.RelationshipsCollected, 0, "relationships after merge")
}

func TestTrackedTask_CollectorErrorsPrefixed(t *testing.T) {
	tt := newTestTracked("web")
	testutil.AssertNoError(t, tt.start(), "start")
	tt.recordCollector("web", false, []string{"HTTP 503"}, 0, 0)
	testutil.AssertContains(t, tt.Snapshot().Errors, "web: HTTP 503", "error prefixed with collector")
}

func TestInsertSorted(t *testing.T) {
	var list []string
	for _, v := range []string{"c", "a", "b", "a"} {
		list = insertSorted(list, v)
	}
	testutil.AssertDeepEqual(t, list, []string{"a", "b", "c"}, "sorted without duplicates")
}
