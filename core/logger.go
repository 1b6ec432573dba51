package core

// Logger logs messages, optionally followed by errors and extra data.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Fields are extra key/values attached to a log entry.
type Fields map[string]interface{}
