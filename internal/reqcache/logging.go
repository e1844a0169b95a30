package reqcache

import (
	"sync"

	"github.com/rs/zerolog"
)

var (
	// loggerMu protects Logger from concurrent access in tests.
	loggerMu sync.RWMutex

	// Logger is the package-level logger for request cache operations.
	// Uses a no-op logger by default to avoid logging until explicitly configured.
	Logger = zerolog.Nop()
)

// SetLogger sets the package-level logger for request cache operations.
// The logger is automatically tagged with component: reqcache.
//
// Example:
//
//	logger := zerolog.New(os.Stdout).Level(zerolog.DebugLevel)
//	reqcache.SetLogger(&logger)
func SetLogger(l *zerolog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	Logger = l.With().Str("component", "reqcache").Logger()
}

// logger returns the current package logger.
func logger() zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return Logger
}
