// internal/platform/workerpool/worker_pool_test.go
package workerpool

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"argus/internal/testutil"
)

type fakeTask struct {
	name     string
	priority int
	weight   int
	run      func(ctx context.Context) error
}

func (f *fakeTask) Execute(ctx context.Context) error {
	if f.run == nil {
		return nil
	}
	return f.run(ctx)
}
func (f *fakeTask) Priority() int { return f.priority }
func (f *fakeTask) Weight() int   { return f.weight }
func (f *fakeTask) Name() string  { return f.name }

func names(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Name()
	}
	return out
}

func TestPriorityScheduler(t *testing.T) {
	tasks := []Task{
		&fakeTask{name: "c", priority: 1},
		&fakeTask{name: "b", priority: 5, weight: 50},
		&fakeTask{name: "a", priority: 5, weight: 50},
		&fakeTask{name: "d", priority: 5, weight: 10},
	}

	got := names(NewPriorityScheduler().Schedule(tasks))
	testutil.AssertDeepEqual(t, got, []string{"d", "a", "b", "c"}, "priority, weight, name order")
	testutil.AssertEqual(t, tasks[0].Name(), "c", "input not mutated")
}

func TestFIFOScheduler(t *testing.T) {
	tasks := []Task{&fakeTask{name: "x", priority: 1}, &fakeTask{name: "y", priority: 9}}
	testutil.AssertDeepEqual(t, names(NewFIFOScheduler().Schedule(tasks)), []string{"x", "y"}, "original order")
}

func TestPool_RunsAllTasks(t *testing.T) {
	p := New(Config{MaxParallel: 3})
	boom := errors.New("boom")

	tasks := []Task{
		&fakeTask{name: "ok1"},
		&fakeTask{name: "fail", run: func(context.Context) error { return boom }},
		&fakeTask{name: "ok2"},
	}

	results := p.Run(context.Background(), tasks)
	testutil.AssertLen(t, results, 3, "one result per task")

	var failed []string
	for _, r := range results {
		if r.Error != nil {
			failed = append(failed, r.Task.Name())
		}
	}
	testutil.AssertDeepEqual(t, failed, []string{"fail"}, "failure isolated")
}

func TestPool_BoundsParallelism(t *testing.T) {
	p := New(Config{MaxParallel: 2})

	var running, peak atomic.Int32
	tasks := make([]Task, 6)
	for i := range tasks {
		tasks[i] = &fakeTask{name: string(rune('a' + i)), run: func(context.Context) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return nil
		}}
	}

	p.Run(context.Background(), tasks)
	testutil.AssertTrue(t, peak.Load() <= 2, "never more than MaxParallel")
	testutil.AssertTrue(t, peak.Load() >= 1, "tasks ran")
}

func TestPool_StartOrderFollowsScheduler(t *testing.T) {
	p := New(Config{MaxParallel: 1})

	var mu sync.Mutex
	var started []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			started = append(started, name)
			mu.Unlock()
			return nil
		}
	}

	tasks := []Task{
		&fakeTask{name: "low", priority: 1, run: record("low")},
		&fakeTask{name: "high", priority: 9, run: record("high")},
		&fakeTask{name: "mid", priority: 5, run: record("mid")},
	}
	p.Run(context.Background(), tasks)

	testutil.AssertDeepEqual(t, started, []string{"high", "mid", "low"}, "priority order with one slot")
}

func TestPool_CancelledContextSkipsQueuedTasks(t *testing.T) {
	p := New(Config{MaxParallel: 1})
	ctx, cancel := context.WithCancel(context.Background())

	tasks := []Task{
		&fakeTask{name: "first", priority: 9, run: func(ctx context.Context) error {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		}},
		&fakeTask{name: "second", priority: 1},
	}

	results := p.Run(ctx, tasks)
	sort.Slice(results, func(i, j int) bool { return results[i].Task.Name() < results[j].Task.Name() })

	testutil.AssertLen(t, results, 2, "every task reported")
	testutil.AssertFalse(t, results[0].Skipped, "first ran")
	testutil.AssertTrue(t, errors.Is(results[0].Error, context.Canceled), "first saw cancel")
	testutil.AssertTrue(t, results[1].Skipped, "second skipped")
}

func TestPool_Defaults(t *testing.T) {
	p := New(Config{})
	testutil.AssertEqual(t, p.MaxParallel(), 8, "default max parallel")
}
