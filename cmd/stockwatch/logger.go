// cmd/stockwatch/logger.go
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarning
	LogError
)

var logLevelStrings = map[LogLevel]string{
	LogDebug:   "DEBUG",
	LogInfo:    "INFO",
	LogWarning: "WARN",
	LogError:   "ERROR",
}

// ParseLogLevel maps a level name to a LogLevel, defaulting to info.
func ParseLogLevel(name string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LogDebug
	case "WARN", "WARNING":
		return LogWarning
	case "ERROR":
		return LogError
	default:
		return LogInfo
	}
}

// Logger handles application logging
type Logger struct {
	logger   *log.Logger
	file     *os.File
	out      io.Writer
	level    LogLevel
	filename string
	maxSize  int64
	mutex    sync.Mutex
}

// NewLogger creates a logger that writes to w only. Rotation is disabled.
func NewLogger(w io.Writer, level LogLevel) *Logger {
	return &Logger{
		logger: log.New(w, "", log.LstdFlags),
		out:    w,
		level:  level,
	}
}

// OpenLogger creates a logger writing to logPath and stdout. An empty path
// logs to stdout only.
func OpenLogger(logPath string, level LogLevel) (*Logger, error) {
	if logPath == "" {
		return NewLogger(os.Stdout, level), nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	multiWriter := io.MultiWriter(file, os.Stdout)

	l := &Logger{
		logger:   log.New(multiWriter, "", log.LstdFlags),
		file:     file,
		out:      multiWriter,
		level:    level,
		filename: logPath,
		maxSize:  50 * 1024 * 1024, // 50MB
	}

	l.Info("Logger initialized")
	return l, nil
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if level < l.level {
		return
	}

	if err := l.rotateIfNeeded(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to rotate log file: %v\n", err)
	}

	msg := fmt.Sprintf("[%s] %s", logLevelStrings[level], fmt.Sprintf(format, args...))
	l.logger.Print(msg)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LogDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LogInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.log(LogWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LogError, format, args...)
}

// Printf logs at info level.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.log(LogInfo, format, args...)
}

func (l *Logger) rotateIfNeeded() error {
	if l.file == nil || l.maxSize <= 0 {
		return nil
	}

	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log file: %v", err)
	}

	if info.Size() < l.maxSize {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %v", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	rotatedPath := fmt.Sprintf("%s.%s", l.filename, timestamp)

	if err := os.Rename(l.filename, rotatedPath); err != nil {
		return fmt.Errorf("failed to rename log file: %v", err)
	}

	file, err := os.OpenFile(l.filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open new log file: %v", err)
	}

	multiWriter := io.MultiWriter(file, os.Stdout)
	l.logger.SetOutput(multiWriter)
	l.out = multiWriter
	l.file = file

	l.logger.Printf("[%s] Log file rotated to %s", logLevelStrings[LogInfo], rotatedPath)
	return nil
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %v", err)
	}
	return nil
}

// SetLevel changes the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.mutex.Lock()
	l.level = level
	l.mutex.Unlock()
	l.Info("Log level changed to %s", logLevelStrings[level])
}
