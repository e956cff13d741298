package log

import "context"

// Fields are structured key/value pairs attached to a log line.
type Fields = map[string]interface{}

// Logger is the logging surface used by the stores, the secure format and
// the CLI. Trace and span ids are taken from ctx when a span is active.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Fields)
	Info(ctx context.Context, msg string, fields ...Fields)
	Warn(ctx context.Context, msg string, fields ...Fields)
	Error(ctx context.Context, msg string, err error, fields ...Fields)
	With(fields Fields) Logger // Returns a new logger with added structured fields
}
