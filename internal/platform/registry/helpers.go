package registry

import (
	"time"
)

// Typed accessors for ports.CollectorConfig.Custom. Values may come from
// Go literals, YAML (int) or JSON (float64), so each accessor accepts the
// representations those decoders produce and falls back to def otherwise.

// GetStringConfig returns custom[key] when it is a non-empty string.
func GetStringConfig(custom map[string]any, key, def string) string {
	if s, ok := custom[key].(string); ok && s != "" {
		return s
	}
	return def
}

// GetIntConfig returns custom[key] as an int.
func GetIntConfig(custom map[string]any, key string, def int) int {
	switch v := custom[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// GetFloat64Config returns custom[key] as a float64.
func GetFloat64Config(custom map[string]any, key string, def float64) float64 {
	switch v := custom[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// GetBoolConfig returns custom[key] when it is a bool.
func GetBoolConfig(custom map[string]any, key string, def bool) bool {
	if b, ok := custom[key].(bool); ok {
		return b
	}
	return def
}

// GetDurationConfig accepts a time.Duration, a duration string ("5s") or
// a number of seconds.
func GetDurationConfig(custom map[string]any, key string, def time.Duration) time.Duration {
	switch v := custom[key].(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return def
}

// GetSliceConfig returns custom[key] as []string. A list holding any
// non-string element yields def.
func GetSliceConfig(custom map[string]any, key string, def []string) []string {
	switch v := custom[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return def
			}
			out = append(out, s)
		}
		return out
	default:
		return def
	}
}
