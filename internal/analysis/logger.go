// Package analysis implements the chunked parallel log-aggregation engine:
// chunk processing, the worker-pool coordinator, and the ordered merger.
package analysis

import (
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/cecat/soundviz-go/internal/logging"
)

// Package-level logger for analysis operations
var (
	logger         *slog.Logger
	loggerInitOnce sync.Once
	levelVar       = new(slog.LevelVar) // Dynamic level control
	closeLogger    func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "analysis.log")
	levelVar.Set(slog.LevelInfo)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "analysis", levelVar)
	if err != nil {
		// Fallback: log the error and disable file output for this package
		log.Printf("Failed to initialize analysis file logger at %s: %v. Using console logging.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: levelVar})
		logger = slog.New(fbHandler).With("service", "analysis")
		closeLogger = func() error { return nil }
	}
}

// GetLogger returns the package logger for use by callers that want
// analysis-scoped log output. Thread-safe initialization is guaranteed
// through sync.Once.
func GetLogger() *slog.Logger {
	loggerInitOnce.Do(func() {
		if logger == nil {
			logger = slog.Default().With("service", "analysis")
		}
	})
	return logger
}

// SetLogLevel adjusts the package log level at runtime.
func SetLogLevel(level slog.Level) {
	levelVar.Set(level)
}

// CloseLogger closes the log file and releases resources
func CloseLogger() error {
	if closeLogger != nil {
		return closeLogger()
	}
	return nil
}
