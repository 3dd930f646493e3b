// internal/platform/ui/presenter_test.go
package ui

import (
	"testing"
	"time"

	"argus/internal/core/domain"
	"argus/internal/testutil"
)

func TestTracker_Observe(t *testing.T) {
	tr := NewTracker()

	events, progress := tr.Observe(domain.CollectionTask{
		CollectorsCompleted: []string{"web"},
		ProgressPercent:     40,
	})
	testutil.AssertLen(t, events, 1, "one finished")
	testutil.AssertEqual(t, events[0].Name, "web", "web first")
	testutil.AssertEqual(t, events[0].Status, StatusSuccess, "success")
	testutil.AssertEqual(t, progress, 40.0, "progress")

	events, progress = tr.Observe(domain.CollectionTask{
		CollectorsCompleted: []string{"web"},
		CollectorsFailed:    []string{"domain"},
		Discarded:           []string{"social"},
		ProgressPercent:     30,
	})
	testutil.AssertLen(t, events, 2, "only new collectors")
	testutil.AssertEqual(t, events[0].Name, "domain", "sorted")
	testutil.AssertEqual(t, events[0].Status, StatusError, "failed")
	testutil.AssertEqual(t, events[1].Status, StatusSkipped, "discarded")
	testutil.AssertEqual(t, progress, 40.0, "progress never decreases")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		in   domain.TaskStatus
		want Status
	}{
		{domain.TaskCompleted, StatusSuccess},
		{domain.TaskFailed, StatusError},
		{domain.TaskCancelled, StatusSkipped},
		{domain.TaskRunning, StatusRunning},
		{domain.TaskPending, StatusPending},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			testutil.AssertEqual(t, StatusFor(tt.in), tt.want, "status")
		})
	}
}

func TestNewCollectionStats(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	task := domain.CollectionTask{
		Status:              domain.TaskCompleted,
		CollectorsCompleted: []string{"domain", "web"},
		CollectorsFailed:    []string{"social"},
		StartedAt:           start,
		EndedAt:             start.Add(2 * time.Second),
	}
	results := domain.CollectionResults{
		Entities: []domain.NormalizedEntity{
			{Type: domain.EntityDomain, Value: "example.com"},
			{Type: domain.EntityEmail, Value: "a@example.com"},
			{Type: domain.EntityEmail, Value: "b@example.com"},
		},
	}

	stats := NewCollectionStats(task, results)
	testutil.AssertEqual(t, stats.Entities, 3, "entities")
	testutil.AssertEqual(t, stats.CollectorsSucceeded, 2, "succeeded")
	testutil.AssertEqual(t, stats.CollectorsFailed, 1, "failed")
	testutil.AssertEqual(t, stats.EntitiesByType["email"], 2, "emails")
	testutil.AssertEqual(t, stats.TotalDuration, 2*time.Second, "duration")
}

func TestFormatDuration(t *testing.T) {
	testutil.AssertEqual(t, formatDuration(250*time.Millisecond), "250ms", "ms")
	testutil.AssertEqual(t, formatDuration(1500*time.Millisecond), "1.5s", "seconds")
	testutil.AssertEqual(t, formatDuration(125*time.Second), "2m5s", "minutes")
}

func TestNoopPresenter(t *testing.T) {
	var p Presenter = NewNoopPresenter()
	p.Start(CollectionInfo{})
	p.Update(domain.CollectionTask{})
	p.Finish(CollectionStats{})
	testutil.AssertNoError(t, p.Close(), "close")
}

func TestStatusSymbol(t *testing.T) {
	testutil.AssertEqual(t, StatusSuccess.Symbol(), "✓", "success")
	testutil.AssertEqual(t, StatusError.Symbol(), "✗", "error")
	testutil.AssertEqual(t, StatusSkipped.Symbol(), "⊘", "skipped")
	testutil.AssertEqual(t, Status(99).Symbol(), "?", "unknown")
	testutil.AssertTrue(t, Status(99).Style() != nil, "unknown status still styled")
}
