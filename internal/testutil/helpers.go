// Package testutil holds assertion helpers and fixtures shared by package tests.
// It must not import domain packages so that any package can use it.
package testutil

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// AssertEqual fails the test when got != want.
func AssertEqual(t *testing.T, got, want any, msg string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", msg, got, want)
	}
}

// AssertNotEqual fails the test when got == want.
func AssertNotEqual(t *testing.T, got, want any, msg string) {
	t.Helper()
	if got == want {
		t.Errorf("%s: got %v, should not equal %v", msg, got, want)
	}
}

// AssertDeepEqual compares using reflect.DeepEqual.
func AssertDeepEqual(t *testing.T, got, want any, msg string) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("%s:\n got  %#v\n want %#v", msg, got, want)
	}
}

// AssertNil fails the test when got is not nil.
func AssertNil(t *testing.T, got any, msg string) {
	t.Helper()
	if got == nil {
		return
	}
	v := reflect.ValueOf(got)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		if v.IsNil() {
			return
		}
	}
	t.Errorf("%s: expected nil, got %v", msg, got)
}

// AssertNotNil fails the test when got is nil.
func AssertNotNil(t *testing.T, got any, msg string) {
	t.Helper()
	if got == nil {
		t.Errorf("%s: expected non-nil value", msg)
		return
	}
	v := reflect.ValueOf(got)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		if v.IsNil() {
			t.Errorf("%s: expected non-nil value", msg)
		}
	}
}

// AssertError fails the test when err is nil.
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error, got nil", msg)
	}
}

// AssertNoError fails the test when err is not nil.
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// AssertTrue fails the test when condition is false.
func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Errorf("%s: expected true, got false", msg)
	}
}

// AssertFalse fails the test when condition is true.
func AssertFalse(t *testing.T, condition bool, msg string) {
	t.Helper()
	if condition {
		t.Errorf("%s: expected false, got true", msg)
	}
}

// AssertContains checks that a []string holds element or that a string
// contains element as a substring.
func AssertContains(t *testing.T, container any, element string, msg string) {
	t.Helper()

	switch v := container.(type) {
	case []string:
		for _, item := range v {
			if item == element {
				return
			}
		}
		t.Errorf("%s: slice %v does not contain %s", msg, v, element)
	case string:
		if !strings.Contains(v, element) {
			t.Errorf("%s: string %q does not contain %q", msg, v, element)
		}
	default:
		t.Errorf("%s: unsupported type for AssertContains", msg)
	}
}

// AssertLen checks the length of any slice, map, string or channel.
func AssertLen(t *testing.T, container any, want int, msg string) {
	t.Helper()
	v := reflect.ValueOf(container)
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String, reflect.Chan:
		if v.Len() != want {
			t.Errorf("%s: got length %d, want %d", msg, v.Len(), want)
		}
	default:
		t.Errorf("%s: AssertLen does not support %T", msg, container)
	}
}

// Eventually polls cond every tick until it returns true or the timeout
// elapses.
func Eventually(t *testing.T, cond func() bool, timeout, tick time.Duration, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s: condition not met within %s", msg, timeout)
			return
		}
		time.Sleep(tick)
	}
}

// FixedClock returns a clock function that always reports ts.
func FixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
