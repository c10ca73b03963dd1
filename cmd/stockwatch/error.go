package main

import (
	"errors"
	"os"
	"sync"
	"time"
)

// Error kinds surfaced by the scrape pipeline and the chat platform.
var (
	ErrNetwork     = errors.New("network failure")
	ErrParse       = errors.New("parse anomaly")
	ErrPersistence = errors.New("persistence failure")
	ErrPlatform    = errors.New("platform failure")
)

// Error severity levels
const (
	ErrorSeverityLow = iota
	ErrorSeverityMedium
	ErrorSeverityHigh
	ErrorSeverityFatal
)

// ErrorRecord represents a single error occurrence
type ErrorRecord struct {
	Time      time.Time `json:"time"`
	Message   string    `json:"message"`
	Error     string    `json:"error"`
	Component string    `json:"component"`
	Severity  string    `json:"severity"`
}

// ErrorSystem keeps the most recent errors and logs each one.
type ErrorSystem struct {
	logger      *Logger
	errors      []ErrorRecord
	errorsMutex sync.Mutex
	maxErrors   int
	total       int

	// exit is swapped out in tests.
	exit func(code int)
}

// NewErrorSystem creates a new error system
func NewErrorSystem(logger *Logger, maxErrors int) *ErrorSystem {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorSystem{
		logger:    logger,
		errors:    make([]ErrorRecord, 0, maxErrors),
		maxErrors: maxErrors,
		exit:      os.Exit,
	}
}

// HandleError records an error and takes appropriate action based on severity
func (es *ErrorSystem) HandleError(message string, err error, component string, severity int) {
	errorMsg := "unknown error"
	if err != nil {
		errorMsg = err.Error()
	}

	if severity >= ErrorSeverityHigh {
		es.logger.Error("[%s] %s: %s", component, message, errorMsg)
	} else {
		es.logger.Warning("[%s] %s: %s", component, message, errorMsg)
	}

	es.errorsMutex.Lock()
	if len(es.errors) >= es.maxErrors {
		es.errors = es.errors[1:]
	}
	es.errors = append(es.errors, ErrorRecord{
		Time:      time.Now(),
		Message:   message,
		Error:     errorMsg,
		Component: component,
		Severity:  severityString(severity),
	})
	es.total++
	es.errorsMutex.Unlock()

	if severity >= ErrorSeverityFatal {
		es.logger.Error("FATAL ERROR: %s: %s", message, errorMsg)
		es.exit(1)
	}
}

// GetErrors returns the recorded errors
func (es *ErrorSystem) GetErrors() []ErrorRecord {
	es.errorsMutex.Lock()
	defer es.errorsMutex.Unlock()

	result := make([]ErrorRecord, len(es.errors))
	copy(result, es.errors)
	return result
}

// Count returns the number of errors handled since startup.
func (es *ErrorSystem) Count() int {
	es.errorsMutex.Lock()
	defer es.errorsMutex.Unlock()
	return es.total
}

func severityString(severity int) string {
	switch severity {
	case ErrorSeverityLow:
		return "LOW"
	case ErrorSeverityMedium:
		return "MEDIUM"
	case ErrorSeverityHigh:
		return "HIGH"
	case ErrorSeverityFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// errorKind names the error kind for logs and status output.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrPlatform):
		return "platform"
	default:
		return "internal"
	}
}
