package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu     sync.Mutex
	Logger *log.Logger
)

// Init initializes the logger with default settings
func Init() {
	Initialize("info")
}

// Initialize sets up the global logger on stderr
func Initialize(logLevel string) {
	InitializeWithWriter(logLevel, os.Stderr)
}

// InitializeWithWriter sets up the global logger writing to w. Unknown levels
// fall back to info.
func InitializeWithWriter(logLevel string, w io.Writer) {
	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
	})

	level := strings.ToLower(strings.TrimSpace(logLevel))
	if level == "warning" {
		level = "warn"
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	l.SetLevel(parsed)

	mu.Lock()
	Logger = l
	mu.Unlock()

	l.Debug("Logger initialized", "level", parsed.String())
}

// Get returns the global logger instance
func Get() *log.Logger {
	mu.Lock()
	l := Logger
	mu.Unlock()
	if l == nil {
		Initialize("info")
		return Get()
	}
	return l
}

// WithContext creates a new logger with additional context fields
func WithContext(fields ...any) *log.Logger {
	return Get().With(fields...)
}

// Service creates a logger for a specific service
func Service(serviceName string) *log.Logger {
	return WithContext("service", serviceName)
}

// Database creates a logger for database operations
func Database() *log.Logger {
	return WithContext("component", "database")
}

// HTTP creates a logger for HTTP operations
func HTTP() *log.Logger {
	return WithContext("component", "http")
}

// Migration creates a logger for migration operations
func Migration() *log.Logger {
	return WithContext("component", "migration")
}

// Draw creates a logger for the assignment engine
func Draw() *log.Logger {
	return WithContext("component", "draw")
}

// Repository creates a logger for repository operations
func Repository(repoName string) *log.Logger {
	return WithContext("component", "repository", "repository", repoName)
}

// Handler creates a logger for HTTP handlers
func Handler(handlerName string) *log.Logger {
	return WithContext("component", "handler", "handler", handlerName)
}
