package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyAction     = "action"
	KeySection    = "section"
	KeySource     = "source"
	KeyKey        = "key"
	KeyAsset      = "asset"
	KeyBytes      = "bytes"
	KeyPath       = "path"
	KeyBackend    = "backend"
	KeyDurationMS = "duration_ms"
	KeyJob        = "job"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Action(t string) slog.Attr       { return slog.String(KeyAction, t) }
func Section(id string) slog.Attr     { return slog.String(KeySection, id) }
func Source(s string) slog.Attr       { return slog.String(KeySource, s) }
func Key(k string) slog.Attr          { return slog.String(KeyKey, k) }
func Asset(name string) slog.Attr     { return slog.String(KeyAsset, name) }
func Bytes(n int) slog.Attr           { return slog.Int(KeyBytes, n) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Backend(b string) slog.Attr      { return slog.String(KeyBackend, b) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Job(name string) slog.Attr       { return slog.String(KeyJob, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
