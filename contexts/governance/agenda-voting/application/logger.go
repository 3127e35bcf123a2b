package application

import "log/slog"

// ResolveLogger guarantees a non-nil logger for application/worker code paths.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// ModuleName is the structured-log "module" attribute for this context.
const ModuleName = "governance/agenda-voting"
