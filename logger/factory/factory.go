package factory

import (
	"fmt"
	"sync"

	"github.com/storefront/mediastore/logger/adapters/zerolog"
	"github.com/storefront/mediastore/logger/api"
	"github.com/storefront/mediastore/logger/config"
)

var (
	globalMu     sync.Mutex
	globalLogger api.Logger
)

// NewLogger creates a new logger instance based on configuration
func NewLogger(cfg config.LogConfig) (api.Logger, error) {
	// zerolog is the only backend for now
	return zerolog.NewZerologger(cfg)
}

// NewLoggerFromEnv builds a logger from LOG_* environment variables.
func NewLoggerFromEnv() (api.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewLogger(cfg)
}

// GetGlobalLogger returns the global logger instance, creating it if needed
func GetGlobalLogger() api.Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger != nil {
		return globalLogger
	}
	logger, err := NewLoggerFromEnv()
	if err != nil {
		// no logger to report logger failure with
		fmt.Printf("Failed to create global logger: %v\n", err)
		logger, _ = zerolog.NewZerologger(config.DefaultConfig())
	}
	globalLogger = logger
	return globalLogger
}

// SetGlobalLogger replaces the global logger with the provided instance
func SetGlobalLogger(logger api.Logger) {
	if logger == nil {
		return
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// Reset clears the global logger, forcing recreation on next call
func Reset() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = nil
}
