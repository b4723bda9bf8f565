// Package instrumented decorates a gfs.Filesystem with tracing spans,
// Prometheus metrics and debug logging.
package instrumented

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/marmos91/gfs/internal/logger"
	"github.com/marmos91/gfs/internal/telemetry"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/metrics"
)

// Operation names used for spans, metric labels and log lines.
const (
	OpReadMeta    = "read_meta"
	OpReadData    = "read_data"
	OpReadEntry   = "read_entry"
	OpReadDir     = "read_dir"
	OpRename      = "rename"
	OpDrop        = "drop"
	OpInsert      = "insert"
	OpSnapshot    = "snapshot"
	OpHealthcheck = "healthcheck"
)

// Options configures the decorator.
type Options struct {
	// Mount names the filesystem in spans, metrics and logs.
	Mount string

	// StoreType is the backend type, recorded on spans.
	StoreType string

	// Metrics receives operation metrics. Nil disables them.
	Metrics metrics.FSMetrics
}

// Filesystem is an instrumented gfs.Filesystem.
type Filesystem[T gfs.Meta] struct {
	inner gfs.Filesystem[T]
	opts  Options
}

var (
	_ gfs.Filesystem[struct{}]        = (*Filesystem[struct{}])(nil)
	_ gfs.ReadEntrySnapshot[struct{}] = (*Filesystem[struct{}])(nil)
	_ gfs.Snapshotter[struct{}]       = (*Filesystem[struct{}])(nil)
	_ gfs.HealthChecker               = (*Filesystem[struct{}])(nil)
)

// Wrap returns fs decorated with instrumentation.
func Wrap[T gfs.Meta](fs gfs.Filesystem[T], opts Options) *Filesystem[T] {
	return &Filesystem[T]{inner: fs, opts: opts}
}

// Unwrap returns the decorated filesystem.
func (f *Filesystem[T]) Unwrap() gfs.Filesystem[T] { return f.inner }

// Mount returns the configured mount name.
func (f *Filesystem[T]) Mount() string { return f.opts.Mount }

// begin starts a span and returns the func that ends it.
func (f *Filesystem[T]) begin(ctx context.Context, op, path string, attrs ...attribute.KeyValue) (context.Context, func(err error, attrs ...attribute.KeyValue)) {
	start := time.Now()
	base := []attribute.KeyValue{telemetry.Mount(f.opts.Mount)}
	if f.opts.StoreType != "" {
		base = append(base, telemetry.StoreType(f.opts.StoreType))
	}
	ctx, span := telemetry.StartFSSpan(ctx, op, path, append(base, attrs...)...)

	return ctx, func(err error, attrs ...attribute.KeyValue) {
		defer span.End()
		elapsed := time.Since(start)

		if len(attrs) > 0 {
			span.SetAttributes(attrs...)
		}
		telemetry.RecordError(ctx, err)
		metrics.ObserveOperation(f.opts.Metrics, f.opts.Mount, op, elapsed, err)

		if err != nil {
			logger.DebugCtx(ctx, "gfs operation failed",
				logger.KeyOperation, op,
				logger.Mount(f.opts.Mount),
				logger.Path(path),
				logger.Err(err),
				logger.KeyErrorCode, gfs.CodeOf(err).String(),
				logger.DurationMs(float64(elapsed.Microseconds())/1000.0))
			return
		}
		logger.DebugCtx(ctx, "gfs operation",
			logger.KeyOperation, op,
			logger.Mount(f.opts.Mount),
			logger.Path(path),
			logger.DurationMs(float64(elapsed.Microseconds())/1000.0))
	}
}

func (f *Filesystem[T]) Root() gfs.OwnedPath[T] { return f.inner.Root().WithSnapshot(f) }

func (f *Filesystem[T]) NormalizePath(raw string) string { return f.inner.NormalizePath(raw) }

func (f *Filesystem[T]) ReadMeta(ctx context.Context, p gfs.Path) (T, bool, error) {
	ctx, end := f.begin(ctx, OpReadMeta, p)
	meta, ok, err := f.inner.ReadMeta(ctx, p)
	end(err, telemetry.Found(ok))
	return meta, ok, err
}

func (f *Filesystem[T]) ReadData(ctx context.Context, p gfs.Path) (gfs.Content, bool, error) {
	ctx, end := f.begin(ctx, OpReadData, p)
	data, ok, err := f.inner.ReadData(ctx, p)
	end(err, telemetry.Found(ok), telemetry.Size(data.Len()))
	metrics.RecordBytes(f.opts.Metrics, f.opts.Mount, "read", data.Len())
	return data, ok, err
}

func (f *Filesystem[T]) ReadEntry(ctx context.Context, p gfs.Path) (gfs.Entry[T], bool, error) {
	ctx, end := f.begin(ctx, OpReadEntry, p)
	e, ok, err := gfs.ReadEntry[T](ctx, f.inner, p)
	end(err, telemetry.Found(ok), telemetry.Size(e.Contents.Len()))
	metrics.RecordBytes(f.opts.Metrics, f.opts.Mount, "read", e.Contents.Len())
	return e, ok, err
}

func (f *Filesystem[T]) ReadDir(ctx context.Context, p gfs.Path) ([]gfs.OwnedPath[T], error) {
	ctx, end := f.begin(ctx, OpReadDir, p)
	children, err := f.inner.ReadDir(ctx, p)
	end(err, telemetry.Entries(len(children)))
	if err != nil {
		return nil, err
	}
	for i := range children {
		children[i] = children[i].WithSnapshot(f)
	}
	return children, nil
}

func (f *Filesystem[T]) RenameEntry(ctx context.Context, oldPath, newPath gfs.Path) error {
	ctx, end := f.begin(ctx, OpRename, oldPath, telemetry.NewPath(newPath))
	err := f.inner.RenameEntry(ctx, oldPath, newPath)
	end(err)
	if err == nil {
		logger.InfoCtx(ctx, "entry renamed",
			logger.Mount(f.opts.Mount),
			logger.KeyOldPath, f.inner.NormalizePath(oldPath),
			logger.KeyNewPath, f.inner.NormalizePath(newPath))
	}
	return err
}

func (f *Filesystem[T]) DropEntry(ctx context.Context, p gfs.Path) (gfs.Entry[T], error) {
	ctx, end := f.begin(ctx, OpDrop, p)
	e, err := f.inner.DropEntry(ctx, p)
	end(err, telemetry.Size(e.Contents.Len()))
	return e, err
}

func (f *Filesystem[T]) InsertEntry(ctx context.Context, p gfs.Path, meta T, data gfs.Content) (gfs.Entry[T], error) {
	ctx, end := f.begin(ctx, OpInsert, p, telemetry.Size(data.Len()))
	e, err := f.inner.InsertEntry(ctx, p, meta, data)
	end(err)
	if err == nil {
		metrics.RecordBytes(f.opts.Metrics, f.opts.Mount, "write", data.Len())
	}
	return e, err
}

// Snapshot forwards to the wrapped store. Reads on the returned snapshot are
// not instrumented.
func (f *Filesystem[T]) Snapshot(ctx context.Context) (gfs.Frozen[T], error) {
	s, ok := f.inner.(gfs.Snapshotter[T])
	if !ok {
		return nil, gfs.NewNotSupportedError("snapshot")
	}
	ctx, end := f.begin(ctx, OpSnapshot, f.inner.Root().Path())
	frozen, err := s.Snapshot(ctx)
	end(err)
	return frozen, err
}

func (f *Filesystem[T]) Healthcheck(ctx context.Context) error {
	hc, ok := f.inner.(gfs.HealthChecker)
	if !ok {
		return nil
	}
	ctx, end := f.begin(ctx, OpHealthcheck, f.inner.Root().Path())
	err := hc.Healthcheck(ctx)
	end(err)
	return err
}

func (f *Filesystem[T]) Close() error {
	if c, ok := f.inner.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
