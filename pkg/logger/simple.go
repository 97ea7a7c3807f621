package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Output formats
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options configures a SimpleLogger.
type Options struct {
	Level  string    // debug, info, warn, error
	Format string    // json or text
	Output io.Writer // defaults to os.Stdout
}

// SimpleLogger provides a basic structured logger implementation
type SimpleLogger struct {
	level  LogLevel
	format string
	out    io.Writer
	mu     *sync.Mutex // shared with derived loggers so lines never interleave
	fields map[string]interface{}
	now    func() time.Time
}

// NewSimpleLogger creates a new simple logger writing JSON lines to stdout
func NewSimpleLogger() *SimpleLogger {
	return New(Options{Level: GetLogLevel(), Format: FormatJSON})
}

// New creates a SimpleLogger from options.
func New(opts Options) *SimpleLogger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	format := strings.ToLower(opts.Format)
	if format != FormatText {
		format = FormatJSON
	}
	l := &SimpleLogger{
		level:  InfoLevel,
		format: format,
		out:    out,
		mu:     &sync.Mutex{},
		fields: make(map[string]interface{}),
		now:    time.Now,
	}
	if opts.Level != "" {
		l.SetLevel(opts.Level)
	}
	return l
}

// NewDefaultLogger creates a new default logger instance
func NewDefaultLogger() Logger {
	return NewSimpleLogger()
}

// Debug logs a debug message
func (l *SimpleLogger) Debug(msg string, fields ...interface{}) {
	if l.level <= DebugLevel {
		l.log(DebugLevel, msg, fields...)
	}
}

// Info logs an info message
func (l *SimpleLogger) Info(msg string, fields ...interface{}) {
	if l.level <= InfoLevel {
		l.log(InfoLevel, msg, fields...)
	}
}

// Warn logs a warning message
func (l *SimpleLogger) Warn(msg string, fields ...interface{}) {
	if l.level <= WarnLevel {
		l.log(WarnLevel, msg, fields...)
	}
}

// Error logs an error message
func (l *SimpleLogger) Error(msg string, fields ...interface{}) {
	if l.level <= ErrorLevel {
		l.log(ErrorLevel, msg, fields...)
	}
}

// SetLevel sets the logging level. Unknown names leave the level unchanged.
func (l *SimpleLogger) SetLevel(level string) {
	if lvl, ok := ParseLevel(level); ok {
		l.level = lvl
	}
}

// WithField returns a logger with an additional field
func (l *SimpleLogger) WithField(key string, value interface{}) Logger {
	return l.derive(map[string]interface{}{key: value})
}

// WithFields returns a logger with additional fields
func (l *SimpleLogger) WithFields(fields map[string]interface{}) Logger {
	return l.derive(fields)
}

// With returns a logger with additional fields
func (l *SimpleLogger) With(fields ...Field) Logger {
	extra := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		extra[f.Key] = f.Value
	}
	return l.derive(extra)
}

func (l *SimpleLogger) derive(extra map[string]interface{}) *SimpleLogger {
	merged := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return &SimpleLogger{
		level:  l.level,
		format: l.format,
		out:    l.out,
		mu:     l.mu,
		fields: merged,
		now:    l.now,
	}
}

// log performs the actual logging
func (l *SimpleLogger) log(level LogLevel, msg string, fields ...interface{}) {
	entry := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		entry[k] = v
	}
	mergeFields(entry, fields)

	var line []byte
	if l.format == FormatText {
		line = l.textLine(level, msg, entry)
	} else {
		line = l.jsonLine(level, msg, entry)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(line)
}

func (l *SimpleLogger) jsonLine(level LogLevel, msg string, entry map[string]interface{}) []byte {
	for k, v := range entry {
		if err, ok := v.(error); ok {
			entry[k] = err.Error()
		}
	}
	entry["time"] = l.now().UTC().Format(time.RFC3339Nano)
	entry["level"] = strings.ToLower(level.String())
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		data, _ = json.Marshal(map[string]interface{}{
			"time":  entry["time"],
			"level": entry["level"],
			"msg":   msg,
			"error": fmt.Sprintf("unencodable log fields: %v", err),
		})
	}
	return append(data, '\n')
}

func (l *SimpleLogger) textLine(level LogLevel, msg string, entry map[string]interface{}) []byte {
	keys := make([]string, 0, len(entry))
	for k := range entry {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(l.now().UTC().Format(time.RFC3339))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry[k])
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// mergeFields folds variadic log arguments into entry.
// Dangling keys without a value are recorded under "!BADKEY".
func mergeFields(entry map[string]interface{}, fields []interface{}) {
	for i := 0; i < len(fields); i++ {
		switch f := fields[i].(type) {
		case Field:
			entry[f.Key] = f.Value
		case map[string]interface{}:
			for k, v := range f {
				entry[k] = v
			}
		case string:
			if i+1 < len(fields) {
				entry[f] = fields[i+1]
				i++
			} else {
				entry["!BADKEY"] = f
			}
		case error:
			entry["error"] = f.Error()
		default:
			entry["!BADKEY"] = f
		}
	}
}

// ParseLevel converts a level name to a LogLevel.
func ParseLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DebugLevel, true
	case "INFO":
		return InfoLevel, true
	case "WARN", "WARNING":
		return WarnLevel, true
	case "ERROR":
		return ErrorLevel, true
	}
	return InfoLevel, false
}

// GetLogLevel gets the current log level from environment
func GetLogLevel() string {
	if level := os.Getenv("NODEMESH_LOG_LEVEL"); level != "" {
		return level
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	return "INFO"
}

// NoOpLogger discards everything. Components default to it when no logger is configured.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...interface{}) {}
func (NoOpLogger) Info(string, ...interface{}) {}
func (NoOpLogger) Warn(string, ...interface{}) {}
func (NoOpLogger) Error(string, ...interface{}) {}
func (NoOpLogger) SetLevel(string) {}
func (n NoOpLogger) WithField(string, interface{}) Logger { return n }
func (n NoOpLogger) WithFields(map[string]interface{}) Logger { return n }
func (n NoOpLogger) With(...Field) Logger { return n }
