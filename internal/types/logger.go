package types

// Logger is an optional logger used for non-fatal diagnostics. Standard
// output carries the wire protocol, so implementations must never write
// there.
type Logger interface {
	// Debugf logs verbose detail useful when tracing one session.
	Debugf(format string, args ...any)
	// Warnf logs a formatted warning message.
	Warnf(format string, args ...any)
	// Errorf logs a formatted error message.
	Errorf(format string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
