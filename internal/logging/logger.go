package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// ParseLevel converts a level name ("debug", "info", "warn", "error")
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", name)
	}
}

// String returns the lower-case level name
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "debug"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	default:
		return "info"
	}
}

// Config holds logger configuration
type Config struct {
	Level      LogLevel
	Output     io.Writer // console output, defaults to stderr
	OutputFile string    // optional log file, rotated by size
	MaxSize    int64     // bytes before rotation (default: 10MB)
	MaxBackups int       // rotated files to keep (default: 3)
	JSONFormat bool
	AddSource  bool
}

// Logger wraps slog.Logger with file output and rotation
type Logger struct {
	slog   *slog.Logger
	config Config
	file   *os.File
	mu     sync.Mutex
}

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// Initialize builds a logger from config and installs it as the
// process default, so slog.Default() callers pick it up
func Initialize(config Config) error {
	logger, err := newLogger(config)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	globalMu.Lock()
	previous := globalLogger
	globalLogger = logger
	globalMu.Unlock()

	if previous != nil {
		previous.Close()
	}

	slog.SetDefault(logger.slog)
	return nil
}

// newLogger creates a logger with the given configuration
func newLogger(config Config) (*Logger, error) {
	if config.MaxSize == 0 {
		config.MaxSize = 10 * 1024 * 1024
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 3
	}
	if config.Output == nil {
		// stdout may carry protocol traffic (MCP), so logs never go there by default
		config.Output = os.Stderr
	}

	logger := &Logger{config: config}

	writers := []io.Writer{config.Output}

	if config.OutputFile != "" {
		dir := filepath.Dir(config.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}

		if err := logger.rotateIfNeeded(); err != nil {
			return nil, fmt.Errorf("failed to rotate logs: %w", err)
		}

		file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.OutputFile, err)
		}
		logger.file = file
		writers = append(writers, file)
	}

	out := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{
		Level:     toSlogLevel(config.Level),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.JSONFormat {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger.slog = slog.New(handler)
	return logger, nil
}

// rotateIfNeeded shifts file -> file.1 -> file.2 ... once the file
// exceeds MaxSize
func (l *Logger) rotateIfNeeded() error {
	if l.config.OutputFile == "" {
		return nil
	}

	info, err := os.Stat(l.config.OutputFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	if info.Size() < l.config.MaxSize {
		return nil
	}

	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	for i := l.config.MaxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", l.config.OutputFile, i)
		newPath := fmt.Sprintf("%s.%d", l.config.OutputFile, i+1)
		if _, err := os.Stat(oldPath); err == nil {
			os.Rename(oldPath, newPath)
		}
	}

	backupPath := fmt.Sprintf("%s.1", l.config.OutputFile)
	if err := os.Rename(l.config.OutputFile, backupPath); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	return nil
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Close closes the log file if one is open
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Component returns the default logger tagged with a component name.
// Call it after Initialize; loggers taken earlier keep the old handler.
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

// Close closes the global logger
func Close() error {
	globalMu.Lock()
	logger := globalLogger
	globalLogger = nil
	globalMu.Unlock()

	if logger != nil {
		return logger.Close()
	}
	return nil
}
