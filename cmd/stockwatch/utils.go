package main

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// RecoverFromPanic recovers from panics and logs the error with a stack.
// It must be called directly by defer.
func RecoverFromPanic(logger *Logger, component string) {
	if r := recover(); r != nil {
		stack := make([]byte, 4096)
		stack = stack[:runtime.Stack(stack, false)]
		logger.Error("Panic in %s: %v\n%s", component, r, stack)
	}
}

// FormatDuration renders d as "1d 2h 3m 4s", skipping zero units.
func FormatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	parts := []string{}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}

	return strings.Join(parts, " ")
}
