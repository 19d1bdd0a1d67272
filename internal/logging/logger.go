// Package logging provides leveled, structured logging for tracekit.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Config holds logging configuration.
type Config struct {
	Level LogLevel
	// Format selects the output encoding: "text" (default) or "json".
	Format string
	Output io.Writer
	// Sync, when true, flushes after every line (tracekit always writes
	// through the stdlib logger, which is unbuffered, but tests use this
	// flag to make the contract explicit).
	Sync bool
	// NoColor is carried on the Logger; text output never includes ANSI
	// color codes, whether or not it is set.
	NoColor bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// Logger wraps the stdlib log package with levels, structured fields, and
// a small amount of context (pid/tid/error) that attach to every line it
// writes afterward.
type Logger struct {
	logger  *log.Logger
	level   LogLevel
	format  string
	noColor bool
	mu      sync.Mutex

	// fields are key=value pairs carried by WithPid/WithThread/WithError
	// and rendered on every subsequent call.
	fields []field
}

type field struct {
	key string
	val any
}

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

// NewLogger creates a new logger from config. A nil config uses DefaultConfig.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	format := config.Format
	if format == "" {
		format = "text"
	}
	return &Logger{
		logger:  log.New(output, "", log.LstdFlags),
		level:   config.Level,
		format:  format,
		noColor: config.NoColor,
	}
}

// Default returns the process-wide default logger, creating it on first use.
func Default() *Logger {
	defaultMu.RLock()
	if defaultLogger != nil {
		defer defaultMu.RUnlock()
		return defaultLogger
	}
	defaultMu.RUnlock()

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// clone returns a copy of l with an extra field appended, used by the
// With* chaining methods so each derived logger is independent.
func (l *Logger) clone(f field) *Logger {
	fields := make([]field, len(l.fields), len(l.fields)+1)
	copy(fields, l.fields)
	fields = append(fields, f)
	return &Logger{
		logger:  l.logger,
		level:   l.level,
		format:  l.format,
		noColor: l.noColor,
		fields:  fields,
	}
}

// WithPid returns a derived logger that annotates every line with pid.
func (l *Logger) WithPid(pid int) *Logger {
	return l.clone(field{"pid", pid})
}

// WithThread returns a derived logger that annotates every line with tid.
func (l *Logger) WithThread(tid int32) *Logger {
	return l.clone(field{"tid", tid})
}

// WithError returns a derived logger that annotates every line with err.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.clone(field{"err", err})
}

func formatFields(fields []field, args []any) string {
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.key, f.val)
	}
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		}
	}
	return b.String()
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	extra := formatFields(l.fields, args)
	if l.format == "json" {
		l.logger.Printf(`{"level":%q,"msg":%q%s}`, level.String(), msg, jsonifyExtra(extra))
		return
	}
	l.logger.Printf("[%s] %s%s", level.String(), msg, extra)
}

// jsonifyExtra turns " key=value key2=value2" into `,"key":"value",...`.
// This is a best-effort encoder, not a general structured logger -
// tracekit's log volume is low enough that this simple approach is fine.
func jsonifyExtra(extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return ""
	}
	var b strings.Builder
	for _, pair := range strings.Fields(extra) {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		fmt.Fprintf(&b, `,%q:%q`, kv[0], kv[1])
	}
	return b.String()
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

// Debugf/Infof/Warnf/Errorf offer printf-style formatting for callers that
// prefer it over key/value pairs (e.g. wrapping a pre-formatted errno message).
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, fmt.Sprintf(format, args...)) }

// Printf implements the minimal Logger shape other packages accept
// (see internal/interfaces.Logger) so callers can pass *Logger directly.
func (l *Logger) Printf(format string, args ...any) { l.Infof(format, args...) }

// Global convenience functions operating on the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
