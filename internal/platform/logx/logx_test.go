package logx

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	if New() == nil {
		t.Fatal("New() should return a logger, got nil")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"dbg", LevelDebug},
		{"  debug  ", LevelDebug},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"warn", LevelWarn},
		{"Warning", LevelWarn},
		{"err", LevelError},
		{"ERROR", LevelError},
		{"garbage", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelDebug)

	scoped := logger.With("component", "router", "version", "1.0")
	scoped.Info("routed target", "collectors", 2)

	output := buf.String()
	for _, want := range []string{"routed target", "component=router", "version=1.0", "collectors=2"} {
		if !strings.Contains(output, want) {
			t.Errorf("output should contain %q, got: %s", want, output)
		}
	}
}

func TestLogger_With_DoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelDebug)

	_ = logger.With("component", "executor")
	logger.Info("plain")

	if strings.Contains(buf.String(), "component=executor") {
		t.Errorf("parent logger must not carry child fields: %s", buf.String())
	}
}

func TestLogger_Err(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelError)

	logger.Err(errors.New("boom"), "collector", "whois")

	output := buf.String()
	if !strings.Contains(output, "boom") {
		t.Errorf("output should contain error text, got: %s", output)
	}
	if !strings.Contains(output, "collector=whois") {
		t.Errorf("output should contain kv pair, got: %s", output)
	}
}

func TestLogger_Err_Nil(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelDebug)

	logger.Err(nil, "collector", "whois")

	if buf.Len() != 0 {
		t.Errorf("nil error should not log anything, got: %s", buf.String())
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		expect map[string]bool
	}{
		{"debug", LevelDebug, map[string]bool{"dmsg": true, "imsg": true, "wmsg": true, "emsg": true}},
		{"info", LevelInfo, map[string]bool{"dmsg": false, "imsg": true, "wmsg": true, "emsg": true}},
		{"warn", LevelWarn, map[string]bool{"dmsg": false, "imsg": false, "wmsg": true, "emsg": true}},
		{"error", LevelError, map[string]bool{"dmsg": false, "imsg": false, "wmsg": false, "emsg": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, tt.level)

			logger.Debug("dmsg")
			logger.Info("imsg")
			logger.Warn("wmsg")
			logger.Err(errors.New("emsg"))

			output := buf.String()
			for msg, want := range tt.expect {
				if got := strings.Contains(output, msg); got != want {
					t.Errorf("level %v: presence of %q = %v, want %v", tt.level, msg, got, want)
				}
			}
		})
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelError)

	logger.Info("hidden")
	logger.SetLevel(LevelInfo)
	logger.Info("visible")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("message below level was written: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("message at level was not written: %s", buf.String())
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	var buf syncBuffer
	logger := NewWithWriter(&buf, LevelInfo)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.With("worker", id).Info("tick")
		}(i)
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "tick"); got != 20 {
		t.Errorf("expected 20 lines, got %d", got)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
