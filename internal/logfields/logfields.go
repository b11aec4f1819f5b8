package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTaskID     = "task_id"
	KeyLanguage   = "language"
	KeyFlavor     = "flavor"
	KeyFormat     = "format"
	KeyPhase      = "phase"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyTool       = "tool"
	KeyWorker     = "worker"
	KeyAttempt    = "attempt"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func TaskID(id string) slog.Attr      { return slog.String(KeyTaskID, id) }
func Language(l string) slog.Attr     { return slog.String(KeyLanguage, l) }
func Flavor(f string) slog.Attr       { return slog.String(KeyFlavor, f) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Phase(p string) slog.Attr        { return slog.String(KeyPhase, p) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Tool(t string) slog.Attr         { return slog.String(KeyTool, t) }
func Worker(w string) slog.Attr       { return slog.String(KeyWorker, w) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
