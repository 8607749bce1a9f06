package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyFile       = "file"
	KeyPath       = "path"
	KeyNode       = "node"
	KeyKind       = "kind"
	KeyName       = "name"
	KeyGenerator  = "generator"
	KeyCount      = "count"
	KeyWorker     = "worker"
	KeyCacheHit   = "cache_hit"
	KeyCategory   = "category"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Node(id string) slog.Attr        { return slog.String(KeyNode, id) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Name(n string) slog.Attr         { return slog.String(KeyName, n) }
func Generator(g string) slog.Attr    { return slog.String(KeyGenerator, g) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Worker(id int) slog.Attr         { return slog.Int(KeyWorker, id) }
func CacheHit(hit bool) slog.Attr     { return slog.Bool(KeyCacheHit, hit) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
