// internal/core/domain/errors_test.go
package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"argus/internal/testutil"
)

func TestTypedErrors_IsAndAs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		contains string
	}{
		{"no collector", &NoCollectorFoundError{Target: "", TargetType: TargetUnknown}, ErrNoCollectorFound, "no collector found"},
		{"ethics", &EthicsViolationError{Target: "nasa.gov", Reason: "blocked suffix .gov", TaskID: "t1"}, ErrEthicsViolation, "blocked suffix"},
		{"collector", &CollectorError{Collector: "web", Err: errors.New("boom")}, ErrCollector, "collector web failed: boom"},
		{"timeout", &TimeoutError{Scope: TimeoutScopeTask, Name: "t1", After: time.Second}, ErrTimeout, "task t1 timed out after 1s"},
		{"validation", &ValidationError{Value: "", Type: EntityDomain, Reasons: []string{"missing value"}}, ErrValidation, "missing value"},
		{"aggregation", &AggregationError{Stage: "merge", Err: errors.New("bad")}, ErrAggregation, "merge"},
		{"not found", &TaskNotFoundError{TaskID: "abc"}, ErrTaskNotFound, "task abc not found"},
		{"not complete", &TaskNotCompleteError{TaskID: "abc", Status: TaskRunning}, ErrTaskNotComplete, "running"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			testutil.AssertTrue(t, errors.Is(wrapped, tt.sentinel), "errors.Is sentinel")
			testutil.AssertContains(t, tt.err.Error(), tt.contains, "message")
		})
	}
}

func TestEthicsViolationError_As(t *testing.T) {
	err := fmt.Errorf("start: %w", &EthicsViolationError{Target: "x", Reason: "r", TaskID: "task-1"})

	var ev *EthicsViolationError
	testutil.AssertTrue(t, errors.As(err, &ev), "errors.As")
	testutil.AssertEqual(t, ev.TaskID, "task-1", "task id carried")
}

func TestCollectorError_UnwrapsCause(t *testing.T) {
	err := &CollectorError{Collector: "ip", Err: context.DeadlineExceeded}
	testutil.AssertTrue(t, errors.Is(err, context.DeadlineExceeded), "cause reachable")
	testutil.AssertTrue(t, errors.Is(err, ErrCollector), "sentinel reachable")

	bare := &CollectorError{Collector: "ip"}
	testutil.AssertTrue(t, errors.Is(bare, ErrCollector), "sentinel without cause")
	testutil.AssertEqual(t, bare.Error(), "collector ip failed", "message without cause")
}

func TestNoCollectorFoundError_Requested(t *testing.T) {
	err := &NoCollectorFoundError{Target: "x", TargetType: TargetUsername, Requested: []string{"darkweb", "media"}}
	testutil.AssertContains(t, err.Error(), "darkweb,media", "requested collectors listed")
}
