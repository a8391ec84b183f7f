// Package logging wraps the standard logger with a subsystem prefix so log
// lines can be traced back to the package that emitted them. Debug output is
// gated on DEBUG=true in the environment.
package logging

import (
	"fmt"
	"log"
	"os"
)

var debugEnabled = os.Getenv("DEBUG") == "true"

func emit(subsystem, format string, args ...any) {
	log.Printf("[%s] %s", subsystem, fmt.Sprintf(format, args...))
}

// Info logs an informational message, always shown
func Info(subsystem, format string, args ...any) {
	emit(subsystem, format, args...)
}

// Warn logs a recoverable problem, always shown
func Warn(subsystem, format string, args ...any) {
	emit(subsystem, "warning: "+format, args...)
}

// Debug logs a debug message, shown only when DEBUG=true
func Debug(subsystem, format string, args ...any) {
	if debugEnabled {
		emit(subsystem, format, args...)
	}
}
