package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	mu       sync.RWMutex
	logger   = newLogger(os.Stderr, "text", slog.LevelInfo)
	levelVar = new(slog.LevelVar)
)

func newLogger(w io.Writer, format string, lvl slog.Level) *slog.Logger {
	levelVar.Set(lvl)
	opts := &slog.HandlerOptions{Level: levelVar}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Configure replaces the process logger. format is "text" or "json"; level
// accepts debug/info/warn/error in any case and defaults to info.
func Configure(w io.Writer, format string, level string) {
	if w == nil {
		w = os.Stderr
	}
	l := newLogger(w, format, ParseLevel(level).slog())

	mu.Lock()
	logger = l
	mu.Unlock()
}

// ParseLevel maps a config string to a Level, falling back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func SetLevel(l Level) {
	levelVar.Set(l.slog())
}

// With returns a logger carrying kv on every line, e.g. a run_id.
func With(kv ...any) *Logger {
	return &Logger{kv: kv}
}

// Logger is a child logger with fixed key/value pairs.
type Logger struct {
	kv []any
}

func (l *Logger) Debug(msg string, kv ...any) { Debug(msg, append(l.kv[:len(l.kv):len(l.kv)], kv...)...) }
func (l *Logger) Info(msg string, kv ...any)  { Info(msg, append(l.kv[:len(l.kv):len(l.kv)], kv...)...) }
func (l *Logger) Warn(msg string, kv ...any)  { Warn(msg, append(l.kv[:len(l.kv):len(l.kv)], kv...)...) }
func (l *Logger) Error(msg string, err error, kv ...any) {
	Error(msg, err, append(l.kv[:len(l.kv):len(l.kv)], kv...)...)
}

func Debug(msg string, kv ...any) {
	current().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	current().Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	current().Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	current().Error(msg, extended...)
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
