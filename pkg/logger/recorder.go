package logger

import "sync"

// Entry is one recorded log call.
type Entry struct {
	Level   string
	Message string
	KeyVals []any
}

// Recorder is a LoggerInstance that keeps every call in memory. Tests use it
// to assert on warnings.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(level, message string, keyvals []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: message, KeyVals: keyvals})
}

func (r *Recorder) Log(message string, keyvals ...any)   { r.record("log", message, keyvals) }
func (r *Recorder) Debug(message string, keyvals ...any) { r.record("debug", message, keyvals) }
func (r *Recorder) Info(message string, keyvals ...any)  { r.record("info", message, keyvals) }
func (r *Recorder) Warn(message string, keyvals ...any)  { r.record("warn", message, keyvals) }
func (r *Recorder) Error(message string, keyvals ...any) { r.record("error", message, keyvals) }
func (r *Recorder) Fatal(message string, keyvals ...any) { r.record("fatal", message, keyvals) }

// Entries returns a copy of the recorded calls, optionally filtered by level.
func (r *Recorder) Entries(level string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
