package logger

import "log/slog"

// Standard field keys. Use them consistently so logs can be queried by key.
const (
	// Tracing
	KeyTraceID   = "trace_id"
	KeySpanID    = "span_id"
	KeyRequestID = "request_id"

	// Filesystem operations
	KeyOperation = "operation"
	KeyPath      = "path"
	KeyOldPath   = "old_path"
	KeyNewPath   = "new_path"
	KeyPattern   = "pattern"
	KeySize      = "size"
	KeyEntries   = "entries"
	KeyFound     = "found"

	// Mounts and stores
	KeyMount     = "mount"
	KeyStoreType = "store_type"
	KeyRoot      = "root"
	KeyDBPath    = "db_path"
	KeyBucket    = "bucket"
	KeyKey       = "key"
	KeyRegion    = "region"
	KeyCodec     = "codec"

	// HTTP
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyAddress    = "address"

	// Outcome
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
	KeyConfigFile = "config_file"
)

// Err returns an error attribute, or an empty attribute for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Path returns a path attribute.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Mount returns a mount attribute.
func Mount(name string) slog.Attr { return slog.String(KeyMount, name) }

// DurationMs returns a duration attribute in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }
