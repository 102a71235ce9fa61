// Package logging provides the leveled logger shared by every spoofdir component.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents a logging threshold.
type Level int

const (
	// LevelError only logs errors
	LevelError Level = iota
	// LevelWarn logs warnings and errors
	LevelWarn
	// LevelInfo logs requests, startup information, warnings and errors
	LevelInfo
	// LevelDebug logs resolution and listing decisions
	LevelDebug
	// LevelTrace logs every filesystem probe
	LevelTrace
)

var levelNames = map[Level]string{
	LevelError: "ERROR",
	LevelWarn:  "WARN",
	LevelInfo:  "INFO",
	LevelDebug: "DEBUG",
	LevelTrace: "TRACE",
}

// String returns the upper-case name of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel converts a level name such as "debug" or "WARN" to a Level.
func ParseLevel(name string) (Level, error) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for level, n := range levelNames {
		if n == want {
			return level, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// threshold is shared between a logger and every logger derived from it
// with WithPrefix, so SetLevel on the root affects all components.
type threshold struct {
	mu    sync.RWMutex
	level Level
}

// Logger writes leveled, prefixed log lines.
type Logger struct {
	prefix string
	logger *log.Logger
	th     *threshold
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// GetLogger returns the process-wide logger. Its initial level comes from
// the LOG_LEVEL environment variable.
func GetLogger() *Logger {
	once.Do(func() {
		defaultLogger = New(os.Stdout, "SPOOFDIR")
		if env := os.Getenv("LOG_LEVEL"); env != "" {
			if level, err := ParseLevel(env); err == nil {
				defaultLogger.SetLevel(level)
			}
		}
	})
	return defaultLogger
}

// New creates a logger writing to w with the given prefix.
func New(w io.Writer, prefix string) *Logger {
	flags := log.Ldate | log.Ltime | log.LUTC
	if os.Getenv("LOG_LONGFILE") != "" {
		flags |= log.Llongfile
	}
	return &Logger{
		prefix: prefix,
		logger: log.New(w, prefix+": ", flags),
		th:     &threshold{level: LevelInfo},
	}
}

// SetLevel sets the threshold for this logger and all loggers sharing it.
func (l *Logger) SetLevel(level Level) {
	l.th.mu.Lock()
	defer l.th.mu.Unlock()
	l.th.level = level
}

// Level reports the current threshold.
func (l *Logger) Level() Level {
	l.th.mu.RLock()
	defer l.th.mu.RUnlock()
	return l.th.level
}

// Enabled reports whether a message at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level <= l.Level()
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if err := l.logger.Output(3, fmt.Sprintf("[%s] %s", levelNames[level], msg)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write log message: %v\n", err)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Trace logs a trace message
func (l *Logger) Trace(format string, args ...interface{}) {
	l.log(LevelTrace, format, args...)
}

// WithPrefix returns a logger for a component. Output goes to the same
// destination and the level stays shared with the parent.
func (l *Logger) WithPrefix(component string) *Logger {
	prefix := l.prefix + "/" + component
	return &Logger{
		prefix: prefix,
		logger: log.New(l.logger.Writer(), prefix+": ", l.logger.Flags()),
		th:     l.th,
	}
}
