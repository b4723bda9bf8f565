// Package badger implements a gfs filesystem on top of BadgerDB.
//
// Every entry is a single key ("e:" + normalized path) holding one record
// with both the encoded metadata and the content, so metadata and data are
// always read and replaced together. Directory listings are prefix scans.
package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/gfs/internal/logger"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/gfs/codec"
)

const (
	entryPrefix = "e:"

	// maxConflictRetries bounds retries of update transactions that lose
	// an optimistic concurrency race.
	maxConflictRetries = 5
)

// Store is a BadgerDB-backed gfs.Filesystem.
type Store[T gfs.Meta] struct {
	db     *badgerdb.DB
	root   string
	policy gfs.RenamePolicy
	codec  codec.Codec[T]
	comp   *compressor

	closeOnce sync.Once
}

var (
	_ gfs.Filesystem[struct{}]        = (*Store[struct{}])(nil)
	_ gfs.ReadEntrySnapshot[struct{}] = (*Store[struct{}])(nil)
	_ gfs.Snapshotter[struct{}]       = (*Store[struct{}])(nil)
	_ gfs.HealthChecker               = (*Store[struct{}])(nil)
)

// New opens (or creates) the database described by cfg.
func New[T gfs.Meta](ctx context.Context, cfg Config) (*Store[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := codec.ByName[T](cfg.Codec)
	if err != nil {
		return nil, err
	}

	var comp *compressor
	if cfg.Compression == CompressionZstd {
		comp, err = newCompressor(int(cfg.CompressionThreshold))
		if err != nil {
			return nil, err
		}
	}

	opts := badgerdb.DefaultOptions(cfg.Path).
		WithLogger(nil).
		WithSyncWrites(cfg.SyncWrites)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		comp.close()
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Info("Badger store opened",
		logger.KeyDBPath, cfg.Path,
		"in_memory", cfg.InMemory,
		"codec", c.Name(),
		"compression", cfg.Compression)

	return &Store[T]{
		db:     db,
		root:   gfs.NormalizePath(cfg.Root),
		policy: cfg.RenamePolicy,
		codec:  c,
		comp:   comp,
	}, nil
}

func entryKey(p string) []byte { return []byte(entryPrefix + p) }

func (s *Store[T]) Root() gfs.OwnedPath[T] { return gfs.NewRoot[T](s, s.root) }

func (s *Store[T]) NormalizePath(raw string) string { return gfs.NormalizePath(raw) }

func (s *Store[T]) ReadMeta(ctx context.Context, p gfs.Path) (T, bool, error) {
	e, ok, err := s.ReadEntry(ctx, p)
	return e.Metadata, ok, err
}

func (s *Store[T]) ReadData(ctx context.Context, p gfs.Path) (gfs.Content, bool, error) {
	e, ok, err := s.ReadEntry(ctx, p)
	return e.Contents, ok, err
}

func (s *Store[T]) ReadEntry(ctx context.Context, p gfs.Path) (gfs.Entry[T], bool, error) {
	if err := ctx.Err(); err != nil {
		return gfs.Entry[T]{}, false, err
	}
	key := gfs.NormalizePath(p)

	var (
		e     gfs.Entry[T]
		found bool
	)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		var err error
		e, found, err = s.get(txn, key)
		return err
	})
	if err != nil {
		return gfs.Entry[T]{}, false, s.wrap(key, "read", err)
	}
	return e, found, nil
}

func (s *Store[T]) ReadDir(ctx context.Context, p gfs.Path) ([]gfs.OwnedPath[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := gfs.NormalizePath(p)

	var keys []string
	err := s.db.View(func(txn *badgerdb.Txn) error {
		keys = listKeys(txn, dir)
		return nil
	})
	if err != nil {
		return nil, s.wrap(dir, "list", err)
	}
	return gfs.ChildPaths(s.Root(), dir, keys), nil
}

func (s *Store[T]) InsertEntry(ctx context.Context, p gfs.Path, meta T, data gfs.Content) (gfs.Entry[T], error) {
	if err := ctx.Err(); err != nil {
		return gfs.Entry[T]{}, err
	}
	key := gfs.NormalizePath(p)
	if err := gfs.CheckEntryPath(key); err != nil {
		return gfs.Entry[T]{}, err
	}

	value, err := s.encode(meta, data)
	if err != nil {
		return gfs.Entry[T]{}, gfs.NewIOError(key, "encode", err)
	}
	err = s.update(func(txn *badgerdb.Txn) error {
		return txn.Set(entryKey(key), value)
	})
	if err != nil {
		return gfs.Entry[T]{}, s.wrap(key, "insert", err)
	}
	return gfs.Entry[T]{Metadata: meta, Contents: data}, nil
}

func (s *Store[T]) DropEntry(ctx context.Context, p gfs.Path) (gfs.Entry[T], error) {
	if err := ctx.Err(); err != nil {
		return gfs.Entry[T]{}, err
	}
	key := gfs.NormalizePath(p)

	var dropped gfs.Entry[T]
	err := s.update(func(txn *badgerdb.Txn) error {
		e, found, err := s.get(txn, key)
		if err != nil {
			return err
		}
		if !found {
			return gfs.NewNotFoundError(key)
		}
		dropped = e
		return txn.Delete(entryKey(key))
	})
	if err != nil {
		return gfs.Entry[T]{}, s.wrap(key, "drop", err)
	}
	return dropped, nil
}

func (s *Store[T]) RenameEntry(ctx context.Context, oldPath, newPath gfs.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := gfs.NormalizePath(oldPath)
	to := gfs.NormalizePath(newPath)

	err := s.update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(entryKey(from))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return gfs.NewNotFoundError(from)
		}
		if err != nil {
			return err
		}
		if from == to {
			return nil
		}
		if err := gfs.CheckEntryPath(to); err != nil {
			return err
		}
		if s.policy == gfs.RenameReject {
			if _, err := txn.Get(entryKey(to)); err == nil {
				return gfs.NewAlreadyExistsError(to)
			} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
				return err
			}
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Set(entryKey(to), value); err != nil {
			return err
		}
		return txn.Delete(entryKey(from))
	})
	if err != nil {
		return s.wrap(from, "rename", err)
	}
	return nil
}

// Snapshot opens a read-only transaction. The returned snapshot must be
// closed to release it.
func (s *Store[T]) Snapshot(ctx context.Context) (gfs.Frozen[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.db.IsClosed() {
		return nil, gfs.NewClosedError()
	}
	return &Snapshot[T]{store: s, txn: s.db.NewTransaction(false)}, nil
}

// Healthcheck verifies the database can serve a read transaction.
func (s *Store[T]) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return gfs.NewClosedError()
	}
	if err := s.db.View(func(*badgerdb.Txn) error { return nil }); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store[T]) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
		s.comp.close()
	})
	return err
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *Store[T]) update(fn func(txn *badgerdb.Txn) error) error {
	var err error
	for range maxConflictRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badgerdb.ErrConflict) {
			return err
		}
		logger.Debug("Badger transaction conflict, retrying", logger.KeyError, err)
	}
	return err
}

func (s *Store[T]) get(txn *badgerdb.Txn, key string) (gfs.Entry[T], bool, error) {
	item, err := txn.Get(entryKey(key))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return gfs.Entry[T]{}, false, nil
	}
	if err != nil {
		return gfs.Entry[T]{}, false, err
	}
	var e gfs.Entry[T]
	err = item.Value(func(val []byte) error {
		var derr error
		e, derr = s.decode(val)
		return derr
	})
	if err != nil {
		return gfs.Entry[T]{}, false, err
	}
	return e, true, nil
}

func (s *Store[T]) encode(meta T, data gfs.Content) ([]byte, error) {
	m, err := s.codec.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return encodeRecord(m, data.Bytes(), s.comp), nil
}

// decode copies out of val since badger only guarantees it inside the
// transaction.
func (s *Store[T]) decode(val []byte) (gfs.Entry[T], error) {
	m, content, err := decodeRecord(val, s.comp)
	if err != nil {
		return gfs.Entry[T]{}, err
	}
	var meta T
	if err := s.codec.Unmarshal(m, &meta); err != nil {
		return gfs.Entry[T]{}, fmt.Errorf("decode metadata: %w", err)
	}
	return gfs.Entry[T]{Metadata: meta, Contents: gfs.NewContent(content)}, nil
}

// wrap passes store errors through and maps the rest to IOError.
func (s *Store[T]) wrap(path, op string, err error) error {
	var se *gfs.StoreError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, badgerdb.ErrDBClosed) {
		return gfs.NewClosedError()
	}
	return gfs.NewIOError(path, op, err)
}

// listKeys returns every entry key below dir.
func listKeys(txn *badgerdb.Txn, dir string) []string {
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(entryPrefix + gfs.DirPrefix(dir))
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys []string
	for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
		keys = append(keys, string(it.Item().Key()[len(entryPrefix):]))
	}
	return keys
}

// Snapshot is a frozen view backed by a read-only badger transaction.
type Snapshot[T gfs.Meta] struct {
	store *Store[T]

	mu     sync.Mutex
	txn    *badgerdb.Txn
	closed bool
}

func (s *Snapshot[T]) Root() gfs.OwnedPath[T] { return gfs.NewRoot[T](s, s.store.root) }

func (s *Snapshot[T]) NormalizePath(raw string) string { return gfs.NormalizePath(raw) }

func (s *Snapshot[T]) ReadMeta(ctx context.Context, p gfs.Path) (T, bool, error) {
	e, ok, err := s.ReadEntry(ctx, p)
	return e.Metadata, ok, err
}

func (s *Snapshot[T]) ReadData(ctx context.Context, p gfs.Path) (gfs.Content, bool, error) {
	e, ok, err := s.ReadEntry(ctx, p)
	return e.Contents, ok, err
}

func (s *Snapshot[T]) ReadEntry(ctx context.Context, p gfs.Path) (gfs.Entry[T], bool, error) {
	if err := ctx.Err(); err != nil {
		return gfs.Entry[T]{}, false, err
	}
	key := gfs.NormalizePath(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return gfs.Entry[T]{}, false, gfs.NewClosedError()
	}
	e, ok, err := s.store.get(s.txn, key)
	if err != nil {
		return gfs.Entry[T]{}, false, s.store.wrap(key, "read", err)
	}
	return e, ok, nil
}

func (s *Snapshot[T]) ReadDir(ctx context.Context, p gfs.Path) ([]gfs.OwnedPath[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := gfs.NormalizePath(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, gfs.NewClosedError()
	}
	return gfs.ChildPaths(s.Root(), dir, listKeys(s.txn, dir)), nil
}

// Close discards the underlying transaction.
func (s *Snapshot[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.txn.Discard()
	}
	return nil
}
