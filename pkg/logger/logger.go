// Package logger is the process-wide logging facade. Backends are registered
// once with Init; every call fans out to all of them. Messages carry a
// "[Component]" prefix and key/value pairs.
package logger

import "sync"

// LoggerInstance defines the interface for logging backends.
type LoggerInstance interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Logger holds multiple logging backends and dispatches log calls to all of them.
type Logger struct {
	instances []LoggerInstance
}

var (
	mu        sync.RWMutex
	singleton *Logger
)

func instances() []LoggerInstance {
	mu.RLock()
	defer mu.RUnlock()
	if singleton == nil {
		return nil
	}
	return singleton.instances
}

// Init initializes the global logger with one or more logging backends.
// Calling it again replaces the backends. Before Init every call is a no-op.
func Init(instances ...LoggerInstance) {
	mu.Lock()
	defer mu.Unlock()
	singleton = &Logger{
		instances: instances,
	}
}

// Log writes a message at the default log level to all configured backends.
func Log(message string, keyvals ...any) {
	for _, instance := range instances() {
		instance.Log(message, keyvals...)
	}
}

func Info(message string, keyvals ...any) {
	for _, instance := range instances() {
		instance.Info(message, keyvals...)
	}
}

func Warn(message string, keyvals ...any) {
	for _, instance := range instances() {
		instance.Warn(message, keyvals...)
	}
}

func Error(message string, keyvals ...any) {
	for _, instance := range instances() {
		instance.Error(message, keyvals...)
	}
}

func Debug(message string, keyvals ...any) {
	for _, instance := range instances() {
		instance.Debug(message, keyvals...)
	}
}

// Fatal writes a message at FATAL level. Backends such as the console logger
// terminate the program.
func Fatal(message string, keyvals ...any) {
	for _, instance := range instances() {
		instance.Fatal(message, keyvals...)
	}
}
