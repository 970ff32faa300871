package scripthost

import (
	"sync"

	"go.uber.org/zap"
)

var (
	defaultLogger     *zap.Logger
	defaultLoggerOnce sync.Once
)

// defaultZapLogger returns the package's fallback logger, a no-op unless
// SetDefaultLogger was called first.
func defaultZapLogger() *zap.Logger {
	defaultLoggerOnce.Do(func() {
		if defaultLogger == nil {
			defaultLogger = zap.NewNop()
		}
	})
	return defaultLogger
}

// SetDefaultLogger installs the *zap.Logger backing DefaultHostHooks. Must
// be called, if at all, before the first DefaultHostHooks call.
func SetDefaultLogger(l *zap.Logger) {
	defaultLoggerOnce.Do(func() {})
	defaultLogger = l
}

// DefaultHostHooks returns HostHooks backed by the package's zap logger,
// suitable as a starting point for a Builder that only wants to override
// Abort.
func DefaultHostHooks() HostHooks {
	log := defaultZapLogger().Sugar()
	return HostHooks{
		LogInfo:     func(msg string) { log.Info(msg) },
		LogWarn:     func(msg string) { log.Warn(msg) },
		LogDebug:    func(msg string) { log.Debug(msg) },
		LogCritical: func(msg string) { log.Error(msg) },
	}
}
