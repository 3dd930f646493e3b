// Package logx is the structured key/value logger used across argus.
package logx

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Err(err error, kv ...any)
	With(kv ...any) Logger
	SetLevel(lvl Level)
}

type charmLogger struct {
	lg *log.Logger
}

// New returns a logger writing to stderr at the level named by ARGUS_LOG_LEVEL.
func New() Logger {
	return NewWithWriter(os.Stderr, ParseLevel(os.Getenv("ARGUS_LOG_LEVEL")))
}

// NewWithLevel creates a stderr logger with a specific log level.
func NewWithLevel(lvl Level) Logger {
	return NewWithWriter(os.Stderr, lvl)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, lvl Level) Logger {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           toCharm(lvl),
	})
	return &charmLogger{lg: lg}
}

// NewSilent creates a logger that only outputs errors (used while the
// terminal presenter owns the screen).
func NewSilent() Logger {
	return NewWithLevel(LevelError)
}

// NewNop discards everything.
func NewNop() Logger {
	return NewWithWriter(io.Discard, LevelError)
}

func (c *charmLogger) With(kv ...any) Logger {
	return &charmLogger{lg: c.lg.With(kv...)}
}

func (c *charmLogger) SetLevel(lvl Level) {
	c.lg.SetLevel(toCharm(lvl))
}

func (c *charmLogger) Debug(msg string, kv ...any) { c.lg.Debug(msg, kv...) }
func (c *charmLogger) Info(msg string, kv ...any)  { c.lg.Info(msg, kv...) }
func (c *charmLogger) Warn(msg string, kv ...any)  { c.lg.Warn(msg, kv...) }

func (c *charmLogger) Err(err error, kv ...any) {
	if err == nil {
		return
	}
	kv = append([]any{"error", err.Error()}, kv...)
	c.lg.Error("error", kv...)
}

func toCharm(l Level) log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ParseLevel maps a textual level onto a Level. Unknown values mean info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "dbg":
		return LevelDebug
	case "info", "inf", "":
		return LevelInfo
	case "warn", "warning", "wrn":
		return LevelWarn
	case "err", "error":
		return LevelError
	default:
		return LevelInfo
	}
}
