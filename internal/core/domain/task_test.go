// internal/core/domain/task_test.go
package domain

import (
	"testing"
	"time"

	"argus/internal/testutil"
)

func TestCollectionTask_Clone(t *testing.T) {
	orig := CollectionTask{
		TaskID:              "t1",
		Collectors:          []string{"domain", "web"},
		CollectorsCompleted: []string{"domain"},
		Errors:              []string{"web: timeout"},
	}

	c := orig.Clone()
	c.Collectors[0] = "mutated"
	c.CollectorsCompleted = append(c.CollectorsCompleted, "web")
	c.Errors[0] = "mutated"

	testutil.AssertEqual(t, orig.Collectors[0], "domain", "collectors not shared")
	testutil.AssertLen(t, orig.CollectorsCompleted, 1, "completed not shared")
	testutil.AssertEqual(t, orig.Errors[0], "web: timeout", "errors not shared")
	testutil.AssertNil(t, CollectionTask{}.Clone().Discarded, "nil stays nil")
}

func TestCollectionTask_Duration(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	testutil.AssertEqual(t, CollectionTask{}.Duration(), time.Duration(0), "not started")

	done := CollectionTask{StartedAt: start, EndedAt: start.Add(90 * time.Second)}
	testutil.AssertEqual(t, done.Duration(), 90*time.Second, "finished task")

	running := CollectionTask{StartedAt: time.Now().Add(-time.Second)}
	testutil.AssertTrue(t, running.Duration() >= time.Second, "running task measures until now")
}

func TestCollectionTask_Finished(t *testing.T) {
	task := CollectionTask{
		CollectorsCompleted: []string{"domain"},
		CollectorsFailed:    []string{"web", "ip"},
	}
	testutil.AssertEqual(t, task.Finished(), 3, "finished collectors")
}

func TestCollectionRequest_Timeout(t *testing.T) {
	def := 5 * time.Minute
	testutil.AssertEqual(t, CollectionRequest{}.Timeout(def), def, "default")
	testutil.AssertEqual(t, CollectionRequest{TimeoutSeconds: 30}.Timeout(def), 30*time.Second, "explicit")
	testutil.AssertEqual(t, CollectionRequest{TimeoutSeconds: -1}.Timeout(def), def, "negative falls back")
}
