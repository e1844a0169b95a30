package fetch

import (
	"sync"

	"github.com/rs/zerolog"
)

var (
	loggerMu sync.RWMutex

	// Logger is the package-level logger for backend requests.
	// Uses a no-op logger by default to avoid logging until explicitly configured.
	Logger = zerolog.Nop()
)

// SetLogger sets the package-level logger, tagged with component: fetch.
func SetLogger(l *zerolog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	Logger = l.With().Str("component", "fetch").Logger()
}

func logger() zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return Logger
}
