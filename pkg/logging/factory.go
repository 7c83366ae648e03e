package logging

import (
	"context"
	"sync"
)

// LoggerFactory lets an embedding application route probe logs into its own logger.
type LoggerFactory interface {
	CreateLogger(ctx context.Context) Logger
}

var (
	loggerFactoryMu sync.RWMutex
	loggerFactory   LoggerFactory
)

// SetLoggerFactory installs factory for all subsequent NewLogger calls. Passing nil
// restores the logrus default.
func SetLoggerFactory(factory LoggerFactory) {
	loggerFactoryMu.Lock()
	defer loggerFactoryMu.Unlock()

	loggerFactory = factory
}

func GetLoggerFactory() LoggerFactory {
	loggerFactoryMu.RLock()
	defer loggerFactoryMu.RUnlock()

	return loggerFactory
}
