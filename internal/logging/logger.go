package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level is a log severity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	setupOnce sync.Once
	minLevel  = LevelInfo
)

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARNING", "WARN":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level: %q", s)
}

// Setup configures the minimum level and optional file output.
// Safe to call more than once; only the first call takes effect.
func Setup(level Level, logFile string, logToFile bool) error {
	var setupErr error
	setupOnce.Do(func() {
		minLevel = level

		if !logToFile {
			return
		}
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			setupErr = fmt.Errorf("create log dir: %w", err)
			return
		}
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			setupErr = fmt.Errorf("open log file: %w", err)
			return
		}
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	})
	return setupErr
}

// Debug logs a debug message (only shown at the DEBUG level)
func Debug(subsystem, format string, args ...any) {
	if minLevel <= LevelDebug {
		log.Printf("[%s] "+format, append([]any{subsystem}, args...)...)
	}
}

// Info logs an informational message
func Info(subsystem, format string, args ...any) {
	if minLevel <= LevelInfo {
		log.Printf("[%s] "+format, append([]any{subsystem}, args...)...)
	}
}

// Warn logs a warning
func Warn(subsystem, format string, args ...any) {
	if minLevel <= LevelWarn {
		log.Printf("[%s] WARN "+format, append([]any{subsystem}, args...)...)
	}
}

// Error logs an error (always shown)
func Error(subsystem, format string, args ...any) {
	log.Printf("[%s] ERROR "+format, append([]any{subsystem}, args...)...)
}

// Truncate truncates a string to maxLen and adds ellipsis
func Truncate(s string, maxLen int) string {
	// Replace newlines with spaces for one-line logs
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
