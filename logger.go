package duihost

// Logger defines the interface for host logging.
// Every component logs through this interface using key-value pairs:
//
//	logger.Info("runtime ready", "epoch", 3, "handle", id)
//
// *slog.Logger satisfies it directly.
type Logger interface {
	// Info logs normal lifecycle progress such as service initialization.
	Info(msg string, args ...any)

	// Error logs failures that were handled, such as a failed teardown step.
	Error(msg string, args ...any)

	// Warn logs unusual conditions, such as a dropped stale result.
	Warn(msg string, args ...any)

	// Debug logs detailed diagnostics.
	Debug(msg string, args ...any)
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Debug(string, ...any) {}
