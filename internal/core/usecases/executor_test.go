// internal/core/usecases/executor_test.go
package usecases

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/core/domain"
	"argus/internal/platform/logx"
)

// newStalledExecutor arma un executor cuya normalización avisa en entered y
// espera release antes de resolver.
func newStalledExecutor(t *testing.T, store *mockStore, entered chan<- struct{}, release <-chan struct{}) *Executor {
	t.Helper()
	norm := newTestEngine(t, false)
	norm.resolve = func(groups []*RecordGroup, rels []domain.RawRelationship) ([]domain.NormalizedEntity, []domain.NormalizedRelationship, error) {
		close(entered)
		<-release
		return norm.resolveGraph(groups, rels)
	}
	return NewExecutor(ExecutorConfig{
		MaxParallel: 2,
		Normalizer:  norm,
		Handoff:     NewHandoff(HandoffConfig{Store: store}),
		Logger:      logx.NewSilent(),
	})
}

func runAsync(ex *Executor, tt *TrackedTask, timeout time.Duration, collectors ...*mockCollector) <-chan struct{} {
	dispatches := make([]Dispatch, 0, len(collectors))
	for _, c := range collectors {
		dispatches = append(dispatches, Dispatch{Collector: c, Priority: 5, Weight: 1})
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ex.Run(context.Background(), tt, dispatches, timeout)
	}()
	return done
}

func TestExecutor_CancelDuringNormalizationSkipsHandoff(t *testing.T) {
	store := newMockStore()
	entered, release := make(chan struct{}), make(chan struct{})
	ex := newStalledExecutor(t, store, entered, release)

	tt := newTrackedTask(domain.CollectionTask{TaskID: "task-1", Target: "example.com", Collectors: []string{"good"}}, nil)
	done := runAsync(ex, tt, 5*time.Second, collectorWithRecords("good", 3))

	<-entered
	require.True(t, tt.requestCancel())
	close(release)
	<-done

	assert.Equal(t, domain.TaskCancelled, tt.Status())
	n, rels := store.counts()
	assert.Zero(t, n, "nothing persisted for a cancelled task")
	assert.Empty(t, rels)
}

func TestExecutor_DeadlineCoversNormalization(t *testing.T) {
	store := newMockStore()
	entered, release := make(chan struct{}), make(chan struct{})
	ex := newStalledExecutor(t, store, entered, release)

	tt := newTrackedTask(domain.CollectionTask{TaskID: "task-2", Target: "example.com", Collectors: []string{"good"}}, nil)
	done := runAsync(ex, tt, 100*time.Millisecond, collectorWithRecords("good", 3))

	<-entered
	time.Sleep(150 * time.Millisecond)
	close(release)
	<-done

	snap := tt.Snapshot()
	assert.Equal(t, domain.TaskFailed, snap.Status)
	assert.True(t, strings.Contains(strings.Join(snap.Errors, "\n"), "timed out"), "timeout reason recorded")
	res, ok := tt.Results()
	require.True(t, ok)
	assert.Empty(t, res.Entities, "partial results discarded")
	n, _ := store.counts()
	assert.Zero(t, n, "nothing persisted for a timed out task")
}

func TestExecutor_CompletedTaskIsDelivered(t *testing.T) {
	store := newMockStore()
	entered, release := make(chan struct{}), make(chan struct{})
	close(release)
	ex := newStalledExecutor(t, store, entered, release)

	tt := newTrackedTask(domain.CollectionTask{TaskID: "task-3", Target: "example.com", Collectors: []string{"good"}}, nil)
	<-runAsync(ex, tt, 5*time.Second, collectorWithRecords("good", 3))

	snap := tt.Snapshot()
	require.Equal(t, domain.TaskCompleted, snap.Status)
	assert.Equal(t, 3, snap.EntitiesCollected)
	n, _ := store.counts()
	assert.Equal(t, 3, n, "delivered once the task completed")
}
