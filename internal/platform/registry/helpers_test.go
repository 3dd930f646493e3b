package registry

import (
	"testing"
	"time"

	"argus/internal/testutil"
)

func TestGetStringConfig(t *testing.T) {
	custom := map[string]any{"ua": "argus/1.0", "empty": "", "num": 3}

	testutil.AssertEqual(t, GetStringConfig(custom, "ua", "def"), "argus/1.0", "present")
	testutil.AssertEqual(t, GetStringConfig(custom, "empty", "def"), "def", "empty string")
	testutil.AssertEqual(t, GetStringConfig(custom, "num", "def"), "def", "wrong type")
	testutil.AssertEqual(t, GetStringConfig(nil, "ua", "def"), "def", "nil map")
}

func TestGetIntConfig(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected int
	}{
		{"int", 5, 5},
		{"int64", int64(6), 6},
		{"json float", float64(7), 7},
		{"string", "8", 42},
		{"missing", nil, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			custom := map[string]any{}
			if tt.value != nil {
				custom["k"] = tt.value
			}
			testutil.AssertEqual(t, GetIntConfig(custom, "k", 42), tt.expected, "int config")
		})
	}
}

func TestGetFloat64Config(t *testing.T) {
	custom := map[string]any{"f": 0.5, "i": 2, "s": "x"}

	testutil.AssertEqual(t, GetFloat64Config(custom, "f", 1), 0.5, "float")
	testutil.AssertEqual(t, GetFloat64Config(custom, "i", 1), 2.0, "int")
	testutil.AssertEqual(t, GetFloat64Config(custom, "s", 1), 1.0, "wrong type")
}

func TestGetBoolConfig(t *testing.T) {
	custom := map[string]any{"on": true, "off": false, "str": "true"}

	testutil.AssertTrue(t, GetBoolConfig(custom, "on", false), "true")
	testutil.AssertFalse(t, GetBoolConfig(custom, "off", true), "false")
	testutil.AssertFalse(t, GetBoolConfig(custom, "str", false), "string is not bool")
}

func TestGetDurationConfig(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected time.Duration
	}{
		{"duration", 3 * time.Second, 3 * time.Second},
		{"string", "1m30s", 90 * time.Second},
		{"bad string", "soon", time.Minute},
		{"seconds int", 10, 10 * time.Second},
		{"seconds float", 1.5, 1500 * time.Millisecond},
		{"wrong type", true, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			custom := map[string]any{"d": tt.value}
			testutil.AssertEqual(t, GetDurationConfig(custom, "d", time.Minute), tt.expected, "duration config")
		})
	}
}

func TestGetSliceConfig(t *testing.T) {
	def := []string{"default"}

	testutil.AssertDeepEqual(t, GetSliceConfig(map[string]any{"p": []string{"a", "b"}}, "p", def), []string{"a", "b"}, "string slice")
	testutil.AssertDeepEqual(t, GetSliceConfig(map[string]any{"p": []any{"a", "b"}}, "p", def), []string{"a", "b"}, "any slice")
	testutil.AssertDeepEqual(t, GetSliceConfig(map[string]any{"p": []any{"a", 1}}, "p", def), def, "mixed slice")
	testutil.AssertDeepEqual(t, GetSliceConfig(nil, "p", def), def, "nil map")
}
