// Package postgres implements a gfs filesystem on top of PostgreSQL.
//
// Entries live in the gfs_entries table, one row per path holding the
// encoded metadata and the content. Metadata and content are written in the
// same statement, so a reader never observes one without the other.
// Snapshots are REPEATABLE READ read-only transactions.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marmos91/gfs/internal/logger"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/gfs/codec"
)

const (
	selectEntrySQL = `SELECT meta, data FROM gfs_entries WHERE path = $1`
	listKeysSQL    = `SELECT path FROM gfs_entries WHERE path LIKE $1 ESCAPE '\'`
	upsertEntrySQL = `INSERT INTO gfs_entries (path, meta, data) VALUES ($1, $2, $3)
		ON CONFLICT (path) DO UPDATE SET meta = EXCLUDED.meta, data = EXCLUDED.data, updated_at = now()`
	insertNewSQL = `INSERT INTO gfs_entries (path, meta, data) VALUES ($1, $2, $3)
		ON CONFLICT (path) DO NOTHING`
	deleteEntrySQL    = `DELETE FROM gfs_entries WHERE path = $1 RETURNING meta, data`
	lockEntrySQL      = `SELECT meta, data FROM gfs_entries WHERE path = $1 FOR UPDATE`
	deleteUnlockedSQL = `DELETE FROM gfs_entries WHERE path = $1`
)

// querier is the subset shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is a PostgreSQL-backed gfs.Filesystem.
type Store[T gfs.Meta] struct {
	pool   *pgxpool.Pool
	root   string
	policy gfs.RenamePolicy
	codec  codec.Codec[T]

	closeOnce sync.Once
}

var (
	_ gfs.Filesystem[struct{}]        = (*Store[struct{}])(nil)
	_ gfs.ReadEntrySnapshot[struct{}] = (*Store[struct{}])(nil)
	_ gfs.Snapshotter[struct{}]       = (*Store[struct{}])(nil)
	_ gfs.HealthChecker               = (*Store[struct{}])(nil)
)

// New connects to PostgreSQL, applying migrations first when AutoMigrate is
// set.
func New[T gfs.Meta](ctx context.Context, cfg Config) (*Store[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := codec.ByName[T](cfg.Codec)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := RunMigrations(ctx, cfg); err != nil {
			return nil, err
		}
	}

	pool, err := createPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Store[T]{
		pool:   pool,
		root:   gfs.NormalizePath(cfg.Root),
		policy: cfg.RenamePolicy,
		codec:  c,
	}, nil
}

func createPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	if cfg.QueryTimeout > 0 {
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.QueryTimeout.Milliseconds())
	}

	logger.Info("Creating PostgreSQL connection pool",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
		"max_conns", cfg.MaxConns,
		"ssl_mode", cfg.SSLMode)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return pool, nil
}

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
	key := gfs.NormalizePath(p)
	e, ok, err := s.get(ctx, s.pool, selectEntrySQL, key)
	if err != nil {
		return gfs.Entry[T]{}, false, wrap(key, "read", err)
	}
	return e, ok, nil
}

func (s *Store[T]) ReadDir(ctx context.Context, p gfs.Path) ([]gfs.OwnedPath[T], error) {
	dir := gfs.NormalizePath(p)
	keys, err := listKeys(ctx, s.pool, dir)
	if err != nil {
		return nil, wrap(dir, "list", err)
	}
	return gfs.ChildPaths(s.Root(), dir, keys), nil
}

func (s *Store[T]) InsertEntry(ctx context.Context, p gfs.Path, meta T, data gfs.Content) (gfs.Entry[T], error) {
	key := gfs.NormalizePath(p)
	if err := gfs.CheckEntryPath(key); err != nil {
		return gfs.Entry[T]{}, err
	}
	m, err := s.codec.Marshal(meta)
	if err != nil {
		return gfs.Entry[T]{}, gfs.NewIOError(key, "encode", err)
	}
	if _, err := s.pool.Exec(ctx, upsertEntrySQL, key, m, contentArg(data)); err != nil {
		return gfs.Entry[T]{}, wrap(key, "insert", err)
	}
	return gfs.Entry[T]{Metadata: meta, Contents: data}, nil
}

// contentArg returns the query argument for data. pgx sends a nil slice as
// NULL, which the NOT NULL data column rejects.
func contentArg(data gfs.Content) []byte {
	if b := data.Bytes(); b != nil {
		return b
	}
	return []byte{}
}

func (s *Store[T]) DropEntry(ctx context.Context, p gfs.Path) (gfs.Entry[T], error) {
	key := gfs.NormalizePath(p)
	e, ok, err := s.get(ctx, s.pool, deleteEntrySQL, key)
	if err != nil {
		return gfs.Entry[T]{}, wrap(key, "drop", err)
	}
	if !ok {
		return gfs.Entry[T]{}, gfs.NewNotFoundError(key)
	}
	return e, nil
}

func (s *Store[T]) RenameEntry(ctx context.Context, oldPath, newPath gfs.Path) error {
	from := gfs.NormalizePath(oldPath)
	to := gfs.NormalizePath(newPath)

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var meta, data []byte
		err := tx.QueryRow(ctx, lockEntrySQL, from).Scan(&meta, &data)
		if errors.Is(err, pgx.ErrNoRows) {
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
			tag, err := tx.Exec(ctx, insertNewSQL, to, meta, data)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return gfs.NewAlreadyExistsError(to)
			}
		} else if _, err := tx.Exec(ctx, upsertEntrySQL, to, meta, data); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, deleteUnlockedSQL, from)
		return err
	})
	if err != nil {
		return wrap(from, "rename", err)
	}
	return nil
}

// Snapshot opens a REPEATABLE READ read-only transaction. The snapshot holds
// a pooled connection until closed.
func (s *Store[T]) Snapshot(ctx context.Context) (gfs.Frozen[T], error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, wrap(s.root, "snapshot", err)
	}
	// The snapshot is taken at the first statement, not at BEGIN.
	if _, err := tx.Exec(ctx, "SELECT 1"); err != nil {
		_ = tx.Rollback(ctx)
		return nil, wrap(s.root, "snapshot", err)
	}
	return &Snapshot[T]{store: s, tx: tx}, nil
}

// Healthcheck pings the pool.
func (s *Store[T]) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.pool.Ping(ctx); err != nil {
		return gfs.NewIOError("", "healthcheck", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store[T]) Close() error {
	s.closeOnce.Do(func() {
		logger.Debug("Closing PostgreSQL connection pool")
		s.pool.Close()
	})
	return nil
}

// get runs a single-row query returning (meta, data) for key.
func (s *Store[T]) get(ctx context.Context, q querier, query, key string) (gfs.Entry[T], bool, error) {
	var m, data []byte
	err := q.QueryRow(ctx, query, key).Scan(&m, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return gfs.Entry[T]{}, false, nil
	}
	if err != nil {
		return gfs.Entry[T]{}, false, err
	}
	var meta T
	if err := s.codec.Unmarshal(m, &meta); err != nil {
		return gfs.Entry[T]{}, false, fmt.Errorf("decode metadata: %w", err)
	}
	return gfs.Entry[T]{Metadata: meta, Contents: gfs.ContentOf(data)}, true, nil
}

func listKeys(ctx context.Context, q querier, dir string) ([]string, error) {
	rows, err := q.Query(ctx, listKeysSQL, likePrefix(gfs.DirPrefix(dir)))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// likePrefix escapes LIKE metacharacters in prefix and appends a wildcard.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// wrap passes store and context errors through and maps the rest to IOError.
func wrap(path, op string, err error) error {
	var se *gfs.StoreError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, pgx.ErrTxClosed) || strings.Contains(err.Error(), "closed pool") {
		return gfs.NewClosedError()
	}
	return gfs.NewIOError(path, op, err)
}

// Snapshot is a frozen view backed by a read-only transaction.
type Snapshot[T gfs.Meta] struct {
	store *Store[T]

	mu     sync.Mutex
	tx     pgx.Tx
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
	key := gfs.NormalizePath(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return gfs.Entry[T]{}, false, gfs.NewClosedError()
	}
	e, ok, err := s.store.get(ctx, s.tx, selectEntrySQL, key)
	if err != nil {
		return gfs.Entry[T]{}, false, wrap(key, "read", err)
	}
	return e, ok, nil
}

func (s *Snapshot[T]) ReadDir(ctx context.Context, p gfs.Path) ([]gfs.OwnedPath[T], error) {
	dir := gfs.NormalizePath(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, gfs.NewClosedError()
	}
	keys, err := listKeys(ctx, s.tx, dir)
	if err != nil {
		return nil, wrap(dir, "list", err)
	}
	return gfs.ChildPaths(s.Root(), dir, keys), nil
}

// Close rolls back the transaction and returns its connection to the pool.
func (s *Snapshot[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.tx.Rollback(context.Background())
}
