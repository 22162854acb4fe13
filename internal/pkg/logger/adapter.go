package logger

import "portfolio_bridge/internal/app/port"

// slogAdapter implements port.Logger on top of the package-level slog logger,
// optionally prefixing every record with a component attribute.
type slogAdapter struct {
	component string
}

// NewSlogAdapter creates a port.Logger backed by the global logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

// Named returns a port.Logger that tags every record with component=name.
func Named(name string) port.Logger {
	return &slogAdapter{component: name}
}

func (a *slogAdapter) with(args []any) []any {
	if a.component == "" {
		return args
	}
	return append([]any{"component", a.component}, args...)
}

func (a *slogAdapter) Info(msg string, args ...any) {
	Info(msg, a.with(args)...)
}

func (a *slogAdapter) Debug(msg string, args ...any) {
	Debug(msg, a.with(args)...)
}

func (a *slogAdapter) Warn(msg string, args ...any) {
	Warn(msg, a.with(args)...)
}

func (a *slogAdapter) Error(msg string, args ...any) {
	Error(msg, a.with(args)...)
}
