package stac

// Logger is the logging interface used across the client. A zerolog-backed
// implementation lives in internal/logging; any structured logger can be
// adapted to it.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}
