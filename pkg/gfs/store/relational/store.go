// Package relational implements a gfs filesystem on GORM, backed by either
// SQLite or PostgreSQL.
//
// Each entry is one gfs_records row holding the encoded metadata and the
// content. The schema is created with GORM AutoMigrate.
package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/gfs/internal/logger"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/gfs/codec"
)

// record is the row layout of an entry.
type record struct {
	Path      string `gorm:"primaryKey;size:4096"`
	Meta      []byte
	Data      []byte
	UpdatedAt time.Time
}

func (record) TableName() string { return "gfs_records" }

// Store is a GORM-backed gfs.Filesystem.
type Store[T gfs.Meta] struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	kind   DatabaseType
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

// New opens the database and migrates the schema.
func New[T gfs.Meta](ctx context.Context, cfg Config) (*Store[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := codec.ByName[T](cfg.Codec)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// WAL lets snapshots read while a writer commits.
		dialector = sqlite.Open(cfg.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	case DatabaseTypePostgres:
		dialector = postgres.Open(cfg.Postgres.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	if cfg.Type == DatabaseTypePostgres {
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}

	if err := db.WithContext(ctx).AutoMigrate(&record{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	logger.Info("Relational store opened", "type", string(cfg.Type))

	return &Store[T]{
		db:     db,
		sqlDB:  sqlDB,
		kind:   cfg.Type,
		root:   gfs.NormalizePath(cfg.Root),
		policy: cfg.RenamePolicy,
		codec:  c,
	}, nil
}

// DB returns the underlying GORM handle.
func (s *Store[T]) DB() *gorm.DB { return s.db }

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
	e, ok, err := s.get(s.db.WithContext(ctx), key)
	if err != nil {
		return gfs.Entry[T]{}, false, wrap(key, "read", err)
	}
	return e, ok, nil
}

func (s *Store[T]) ReadDir(ctx context.Context, p gfs.Path) ([]gfs.OwnedPath[T], error) {
	dir := gfs.NormalizePath(p)
	keys, err := listKeys(s.db.WithContext(ctx), dir)
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
	row, err := s.toRecord(key, meta, data)
	if err != nil {
		return gfs.Entry[T]{}, gfs.NewIOError(key, "encode", err)
	}
	if err := upsert(s.db.WithContext(ctx), row); err != nil {
		return gfs.Entry[T]{}, wrap(key, "insert", err)
	}
	return gfs.Entry[T]{Metadata: meta, Contents: data}, nil
}

func (s *Store[T]) DropEntry(ctx context.Context, p gfs.Path) (gfs.Entry[T], error) {
	key := gfs.NormalizePath(p)

	var dropped gfs.Entry[T]
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, ok, err := s.get(s.lock(tx), key)
		if err != nil {
			return err
		}
		if !ok {
			return gfs.NewNotFoundError(key)
		}
		dropped = e
		return tx.Delete(&record{Path: key}).Error
	})
	if err != nil {
		return gfs.Entry[T]{}, wrap(key, "drop", err)
	}
	return dropped, nil
}

func (s *Store[T]) RenameEntry(ctx context.Context, oldPath, newPath gfs.Path) error {
	from := gfs.NormalizePath(oldPath)
	to := gfs.NormalizePath(newPath)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row record
		err := s.lock(tx).Take(&row, "path = ?", from).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
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
			var n int64
			if err := tx.Model(&record{}).Where("path = ?", to).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return gfs.NewAlreadyExistsError(to)
			}
		}

		if err := tx.Delete(&record{Path: from}).Error; err != nil {
			return err
		}
		row.Path = to
		return upsert(tx, &row)
	})
	if err != nil {
		return wrap(from, "rename", err)
	}
	return nil
}

// Snapshot opens a read transaction. On PostgreSQL it runs at REPEATABLE
// READ; on SQLite the WAL read snapshot pins the view.
func (s *Store[T]) Snapshot(ctx context.Context) (gfs.Frozen[T], error) {
	var opts *sql.TxOptions
	if s.kind == DatabaseTypePostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// database/sql rolls a transaction back when its context ends, so the
	// snapshot must outlive the caller's context.
	tx := s.db.WithContext(context.WithoutCancel(ctx)).Begin(opts)
	if tx.Error != nil {
		return nil, wrap(s.root, "snapshot", tx.Error)
	}

	// Both engines take the snapshot at the first read, not at BEGIN.
	var n int64
	if err := tx.Model(&record{}).Count(&n).Error; err != nil {
		tx.Rollback()
		return nil, wrap(s.root, "snapshot", err)
	}
	return &Snapshot[T]{store: s, tx: tx}, nil
}

// Healthcheck pings the database.
func (s *Store[T]) Healthcheck(ctx context.Context) error {
	if err := s.sqlDB.PingContext(ctx); err != nil {
		return wrap("", "healthcheck", err)
	}
	return nil
}

// Close closes the database.
func (s *Store[T]) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.sqlDB.Close()
	})
	return err
}

// lock adds a row lock on PostgreSQL. SQLite serializes writers already.
func (s *Store[T]) lock(tx *gorm.DB) *gorm.DB {
	if s.kind == DatabaseTypePostgres {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (s *Store[T]) toRecord(key string, meta T, data gfs.Content) (*record, error) {
	m, err := s.codec.Marshal(meta)
	if err != nil {
		return nil, err
	}
	b := data.Bytes()
	if b == nil {
		b = []byte{}
	}
	return &record{Path: key, Meta: m, Data: b}, nil
}

func (s *Store[T]) get(db *gorm.DB, key string) (gfs.Entry[T], bool, error) {
	var row record
	err := db.Take(&row, "path = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gfs.Entry[T]{}, false, nil
	}
	if err != nil {
		return gfs.Entry[T]{}, false, err
	}
	var meta T
	if err := s.codec.Unmarshal(row.Meta, &meta); err != nil {
		return gfs.Entry[T]{}, false, fmt.Errorf("decode metadata: %w", err)
	}
	return gfs.Entry[T]{Metadata: meta, Contents: gfs.ContentOf(row.Data)}, true, nil
}

func upsert(db *gorm.DB, row *record) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"meta", "data", "updated_at"}),
	}).Create(row).Error
}

// listKeys returns every key below dir. SQLite LIKE ignores ASCII case, so
// callers must filter with an exact prefix check, which ChildPaths does.
func listKeys(db *gorm.DB, dir string) ([]string, error) {
	var keys []string
	err := db.Model(&record{}).
		Where(`path LIKE ? ESCAPE '\'`, likePrefix(gfs.DirPrefix(dir))).
		Pluck("path", &keys).Error
	return keys, err
}

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
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) ||
		strings.Contains(err.Error(), "database is closed") {
		return gfs.NewClosedError()
	}
	return gfs.NewIOError(path, op, err)
}

// Snapshot is a frozen view backed by an open read transaction.
type Snapshot[T gfs.Meta] struct {
	store *Store[T]

	mu     sync.Mutex
	tx     *gorm.DB
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
	e, ok, err := s.store.get(s.tx, key)
	if err != nil {
		return gfs.Entry[T]{}, false, wrap(key, "read", err)
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
	keys, err := listKeys(s.tx, dir)
	if err != nil {
		return nil, wrap(dir, "list", err)
	}
	return gfs.ChildPaths(s.Root(), dir, keys), nil
}

// Close ends the read transaction.
func (s *Snapshot[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.tx.Rollback().Error
}
