package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Level is the severity of a log line.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the label printed in front of each line.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ParseLevel converts a config value ("debug", "info", "warn", "error") to a
// Level. Empty input maps to LevelInfo.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("invalid log level %q", s)
}

// Logger is a named logger. Obtain one with ForService.
type Logger struct {
	name string
	std  *log.Logger
}

// writerHolder keeps the concrete type stored in atomic.Value constant.
type writerHolder struct {
	w io.Writer
}

var (
	minLevel     atomic.Int32
	serviceDebug sync.Map // map[string]*atomic.Bool
	loggers      sync.Map // map[string]*Logger
	outputWriter atomic.Value
)

func init() {
	minLevel.Store(int32(LevelInfo))
	outputWriter.Store(writerHolder{w: os.Stderr})
}

// ForService returns (and memoizes) the logger for a service name.
func ForService(name string) *Logger {
	if name == "" {
		name = "unknown"
	}
	if l, ok := loggers.Load(name); ok {
		return l.(*Logger)
	}
	current := outputWriter.Load().(writerHolder).w
	logger := &Logger{name: name, std: log.New(current, "", log.LstdFlags|log.Lmicroseconds)}
	actual, _ := loggers.LoadOrStore(name, logger)
	return actual.(*Logger)
}

// SetLevel sets the minimum level printed by every logger.
func SetLevel(l Level) {
	minLevel.Store(int32(l))
}

// CurrentLevel returns the minimum level printed by every logger.
func CurrentLevel() Level {
	return Level(minLevel.Load())
}

// SetGlobalDebug is shorthand for SetLevel(LevelDebug) / SetLevel(LevelInfo).
func SetGlobalDebug(enabled bool) {
	if enabled {
		SetLevel(LevelDebug)
		return
	}
	SetLevel(LevelInfo)
}

// EnableDebugFor enables debug output for one service regardless of the
// global level.
func EnableDebugFor(name string) {
	if name == "" {
		return
	}
	val, _ := serviceDebug.LoadOrStore(name, &atomic.Bool{})
	val.(*atomic.Bool).Store(true)
}

// DisableDebugFor reverts EnableDebugFor.
func DisableDebugFor(name string) {
	if val, ok := serviceDebug.Load(name); ok {
		val.(*atomic.Bool).Store(false)
	}
}

// DebugEnabledFor reports whether debug lines of the named service are printed.
func DebugEnabledFor(name string) bool {
	if CurrentLevel() <= LevelDebug {
		return true
	}
	if val, ok := serviceDebug.Load(name); ok {
		return val.(*atomic.Bool).Load()
	}
	return false
}

// SetOutput redirects every logger, existing and future, to w.
func SetOutput(w io.Writer) {
	if w == nil {
		return
	}
	outputWriter.Store(writerHolder{w: w})
	loggers.Range(func(_, v any) bool {
		v.(*Logger).std.SetOutput(w)
		return true
	})
}

func (l *Logger) output(level Level, format string, args ...any) {
	if level < CurrentLevel() {
		return
	}
	l.std.Println(level.String() + " [" + l.name + "] " + fmt.Sprintf(format, args...))
}

// Name returns the service name of the logger.
func (l *Logger) Name() string {
	return l.name
}

func (l *Logger) Infof(format string, args ...any) {
	l.output(LevelInfo, format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.output(LevelWarn, format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.output(LevelError, format, args...)
}

// Debugf prints only when debug is enabled globally or for this service.
func (l *Logger) Debugf(format string, args ...any) {
	if !DebugEnabledFor(l.name) {
		return
	}
	l.std.Println(LevelDebug.String() + " [" + l.name + "] " + fmt.Sprintf(format, args...))
}
