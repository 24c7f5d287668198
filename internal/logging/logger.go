// Package logging provides structured logging for the recipe tracker.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// LogLevel represents a log level.
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

var levelRank = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger writes structured JSON log lines.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel LogLevel
}

var (
	global *Logger
	once   sync.Once
)

// Init initializes the global logger.
func Init(out io.Writer, minLevel LogLevel) {
	once.Do(func() {
		global = &Logger{
			out:      out,
			minLevel: minLevel,
		}
	})
}

// Get returns the global logger instance.
func Get() *Logger {
	if global == nil {
		Init(os.Stdout, LevelInfo)
	}
	return global
}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Error     string                 `json:"error,omitempty"`
	Code      string                 `json:"code,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

func (l *Logger) log(level LogLevel, message, code string, err error, context map[string]interface{}) {
	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     string(level),
		Message:   message,
		Code:      code,
		Context:   context,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	data, jsonErr := json.Marshal(entry)
	if jsonErr != nil {
		log.Printf("failed to marshal log entry: %v", jsonErr)
		return
	}

	fmt.Fprintln(l.out, string(data))
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, context map[string]interface{}) {
	l.log(LevelDebug, message, "", nil, context)
}

// Info logs an info message.
func (l *Logger) Info(message string, context map[string]interface{}) {
	l.log(LevelInfo, message, "", nil, context)
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, context map[string]interface{}) {
	l.log(LevelWarn, message, "", nil, context)
}

// Error logs an error message.
func (l *Logger) Error(message string, err error, context map[string]interface{}) {
	l.log(LevelError, message, "", err, context)
}

// ErrorWithCode logs an error message tagged with an application error code.
func (l *Logger) ErrorWithCode(message, code string, err error, context map[string]interface{}) {
	l.log(LevelError, message, code, err, context)
}

// Convenience functions using the global logger.

func Debug(message string, context map[string]interface{}) {
	Get().Debug(message, context)
}

func Info(message string, context map[string]interface{}) {
	Get().Info(message, context)
}

func Warn(message string, context map[string]interface{}) {
	Get().Warn(message, context)
}

func Error(message string, err error, context map[string]interface{}) {
	Get().Error(message, err, context)
}

func ErrorWithCode(message, code string, err error, context map[string]interface{}) {
	Get().ErrorWithCode(message, code, err, context)
}
