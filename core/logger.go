package core

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"
)

// LogLevel represents the logging level
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// SimpleLogger provides a basic leveled structured logger writing to stdout.
// It is the default production logger; tests and embedders can substitute any
// Logger implementation.
type SimpleLogger struct {
	level  LogLevel
	format string // "json" or "text"
	out    *log.Logger
}

// NewSimpleLogger creates a new simple logger with the given level and format.
func NewSimpleLogger(level, format string) *SimpleLogger {
	l := &SimpleLogger{
		format: strings.ToLower(format),
		out:    log.New(os.Stdout, "", 0),
	}
	l.SetLevel(level)
	return l
}

// SetLevel sets the logging level
func (l *SimpleLogger) SetLevel(level string) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		l.level = DebugLevel
	case "INFO":
		l.level = InfoLevel
	case "WARN", "WARNING":
		l.level = WarnLevel
	case "ERROR":
		l.level = ErrorLevel
	default:
		l.level = InfoLevel
	}
}

// Debug logs a debug message
func (l *SimpleLogger) Debug(msg string, fields map[string]interface{}) {
	if l.level <= DebugLevel {
		l.log("DEBUG", msg, fields)
	}
}

// Info logs an info message
func (l *SimpleLogger) Info(msg string, fields map[string]interface{}) {
	if l.level <= InfoLevel {
		l.log("INFO", msg, fields)
	}
}

// Warn logs a warning message
func (l *SimpleLogger) Warn(msg string, fields map[string]interface{}) {
	if l.level <= WarnLevel {
		l.log("WARN", msg, fields)
	}
}

// Error logs an error message
func (l *SimpleLogger) Error(msg string, fields map[string]interface{}) {
	if l.level <= ErrorLevel {
		l.log("ERROR", msg, fields)
	}
}

func (l *SimpleLogger) log(level, msg string, fields map[string]interface{}) {
	if l.format == "json" {
		entry := make(map[string]interface{}, len(fields)+3)
		for k, v := range fields {
			// error values do not marshal usefully; flatten to strings
			if err, ok := v.(error); ok {
				entry[k] = err.Error()
				continue
			}
			entry[k] = v
		}
		entry["time"] = time.Now().Format(time.RFC3339Nano)
		entry["level"] = level
		entry["message"] = msg

		data, err := json.Marshal(entry)
		if err != nil {
			l.out.Printf("%s %s (unserializable fields: %v)", level, msg, err)
			return
		}
		l.out.Print(string(data))
		return
	}

	// Text format: stable field order for readability
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", time.Now().Format(time.RFC3339), level, msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	l.out.Print(b.String())
}
