// Package s3 implements a gfs filesystem over an S3 bucket.
//
// Each entry is one object. The object body is the content and the encoded
// metadata travels base64 in the "gfs-meta" user metadata header, so a single
// GET returns both. Implicit directories map onto delimiter listings.
//
// S3 has no multi-object transactions: RenameEntry is a copy followed by a
// delete, and the reject policy check races with concurrent writers. The
// store does not hand out snapshots.
package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/marmos91/gfs/internal/logger"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/gfs/codec"
)

// metaKey is the user metadata key holding the encoded entry metadata.
const metaKey = "gfs-meta"

// Client is the subset of *s3.Client used by the store.
type Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	s3.ListObjectsV2APIClient
}

// Store is an S3-backed gfs.Filesystem.
type Store[T gfs.Meta] struct {
	client    Client
	bucket    string
	keyPrefix string
	root      string
	policy    gfs.RenamePolicy
	codec     codec.Codec[T]

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu     sync.RWMutex
	closed bool
}

var (
	_ gfs.Filesystem[struct{}]        = (*Store[struct{}])(nil)
	_ gfs.ReadEntrySnapshot[struct{}] = (*Store[struct{}])(nil)
	_ gfs.HealthChecker               = (*Store[struct{}])(nil)
)

// New creates a store over an existing client.
func New[T gfs.Meta](client Client, cfg Config) (*Store[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := codec.ByName[T](cfg.Codec)
	if err != nil {
		return nil, err
	}
	return &Store[T]{
		client:         client,
		bucket:         cfg.Bucket,
		keyPrefix:      cfg.KeyPrefix,
		root:           gfs.NormalizePath(cfg.Root),
		policy:         cfg.RenamePolicy,
		codec:          c,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
	}, nil
}

// NewFromConfig builds an S3 client from cfg and verifies the bucket.
func NewFromConfig[T gfs.Meta](ctx context.Context, cfg Config) (*Store[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	store, err := New[T](client, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Healthcheck(ctx); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	logger.Info("S3 store opened",
		logger.KeyBucket, cfg.Bucket,
		logger.KeyRegion, cfg.Region,
		"endpoint", cfg.Endpoint)
	return store, nil
}

// objectKey maps a normalized path to its object key.
func (s *Store[T]) objectKey(p string) string {
	return s.keyPrefix + strings.TrimPrefix(p, "/")
}

// pathOf maps an object key (or common prefix) back to a normalized path.
func (s *Store[T]) pathOf(key string) string {
	return "/" + strings.TrimSuffix(strings.TrimPrefix(key, s.keyPrefix), "/")
}

func (s *Store[T]) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return gfs.NewClosedError()
	}
	return nil
}

func (s *Store[T]) Root() gfs.OwnedPath[T] { return gfs.NewRoot[T](s, s.root) }

func (s *Store[T]) NormalizePath(raw string) string { return gfs.NormalizePath(raw) }

// ReadMeta issues a HEAD so the body is never transferred.
func (s *Store[T]) ReadMeta(ctx context.Context, p gfs.Path) (T, bool, error) {
	var zero T
	key := gfs.NormalizePath(p)
	if err := s.checkOpen(); err != nil {
		return zero, false, err
	}
	if key == "/" {
		return zero, false, nil
	}

	var out *s3.HeadObjectOutput
	err := s.withRetry(ctx, "head", key, func() error {
		var err error
		out, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(key)),
		})
		return err
	})
	if isNotFound(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, wrap(key, "read", err)
	}
	meta, err := s.decodeMeta(out.Metadata)
	if err != nil {
		return zero, false, gfs.NewIOError(key, "decode", err)
	}
	return meta, true, nil
}

func (s *Store[T]) ReadData(ctx context.Context, p gfs.Path) (gfs.Content, bool, error) {
	e, ok, err := s.ReadEntry(ctx, p)
	return e.Contents, ok, err
}

func (s *Store[T]) ReadEntry(ctx context.Context, p gfs.Path) (gfs.Entry[T], bool, error) {
	key := gfs.NormalizePath(p)
	if err := s.checkOpen(); err != nil {
		return gfs.Entry[T]{}, false, err
	}
	if key == "/" {
		return gfs.Entry[T]{}, false, nil
	}

	var e gfs.Entry[T]
	err := s.withRetry(ctx, "get", key, func() error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(key)),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()

		data, err := io.ReadAll(out.Body)
		if err != nil {
			return err
		}
		meta, err := s.decodeMeta(out.Metadata)
		if err != nil {
			return gfs.NewIOError(key, "decode", err)
		}
		e = gfs.Entry[T]{Metadata: meta, Contents: gfs.ContentOf(data)}
		return nil
	})
	if isNotFound(err) {
		return gfs.Entry[T]{}, false, nil
	}
	if err != nil {
		return gfs.Entry[T]{}, false, wrap(key, "read", err)
	}
	return e, true, nil
}

func (s *Store[T]) ReadDir(ctx context.Context, p gfs.Path) ([]gfs.OwnedPath[T], error) {
	dir := gfs.NormalizePath(p)
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	prefix := s.keyPrefix
	if dir != "/" {
		prefix = s.objectKey(dir) + "/"
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrap(dir, "list", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, s.pathOf(aws.ToString(obj.Key)))
		}
		for _, cp := range page.CommonPrefixes {
			keys = append(keys, s.pathOf(aws.ToString(cp.Prefix)))
		}
	}
	return gfs.ChildPaths(s.Root(), dir, keys), nil
}

func (s *Store[T]) InsertEntry(ctx context.Context, p gfs.Path, meta T, data gfs.Content) (gfs.Entry[T], error) {
	key := gfs.NormalizePath(p)
	if err := gfs.CheckEntryPath(key); err != nil {
		return gfs.Entry[T]{}, err
	}
	if err := s.checkOpen(); err != nil {
		return gfs.Entry[T]{}, err
	}
	encoded, err := s.encodeMeta(meta)
	if err != nil {
		return gfs.Entry[T]{}, gfs.NewIOError(key, "encode", err)
	}

	err = s.withRetry(ctx, "put", key, func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(s.objectKey(key)),
			Body:          bytes.NewReader(data.Bytes()),
			ContentLength: aws.Int64(int64(data.Len())),
			Metadata:      map[string]string{metaKey: encoded},
		})
		return err
	})
	if err != nil {
		return gfs.Entry[T]{}, wrap(key, "insert", err)
	}
	return gfs.Entry[T]{Metadata: meta, Contents: data}, nil
}

func (s *Store[T]) DropEntry(ctx context.Context, p gfs.Path) (gfs.Entry[T], error) {
	key := gfs.NormalizePath(p)
	e, ok, err := s.ReadEntry(ctx, key)
	if err != nil {
		return gfs.Entry[T]{}, err
	}
	if !ok {
		return gfs.Entry[T]{}, gfs.NewNotFoundError(key)
	}
	if err := s.delete(ctx, key); err != nil {
		return gfs.Entry[T]{}, err
	}
	return e, nil
}

func (s *Store[T]) RenameEntry(ctx context.Context, oldPath, newPath gfs.Path) error {
	from := gfs.NormalizePath(oldPath)
	to := gfs.NormalizePath(newPath)

	if _, ok, err := s.ReadMeta(ctx, from); err != nil {
		return err
	} else if !ok {
		return gfs.NewNotFoundError(from)
	}
	if from == to {
		return nil
	}
	if err := gfs.CheckEntryPath(to); err != nil {
		return err
	}
	if s.policy == gfs.RenameReject {
		if _, exists, err := s.ReadMeta(ctx, to); err != nil {
			return err
		} else if exists {
			return gfs.NewAlreadyExistsError(to)
		}
	}

	err := s.withRetry(ctx, "copy", from, func() error {
		_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:            aws.String(s.bucket),
			Key:               aws.String(s.objectKey(to)),
			CopySource:        aws.String(s.bucket + "/" + url.PathEscape(s.objectKey(from))),
			MetadataDirective: types.MetadataDirectiveCopy,
		})
		return err
	})
	if err != nil {
		return wrap(from, "rename", err)
	}
	return s.delete(ctx, from)
}

// Healthcheck verifies the bucket is reachable.
func (s *Store[T]) Healthcheck(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return wrap("", "healthcheck", err)
	}
	return nil
}

// Close marks the store closed. The client holds no resources to release.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store[T]) delete(ctx context.Context, key string) error {
	err := s.withRetry(ctx, "delete", key, func() error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(key)),
		})
		return err
	})
	if err != nil {
		return wrap(key, "delete", err)
	}
	return nil
}

func (s *Store[T]) encodeMeta(meta T) (string, error) {
	b, err := s.codec.Marshal(meta)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// decodeMeta reads the metadata header. Objects written by other tools
// carry none and decode to the zero value.
func (s *Store[T]) decodeMeta(md map[string]string) (T, error) {
	var meta T
	encoded, ok := md[metaKey]
	if !ok {
		return meta, nil
	}
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return meta, err
	}
	err = s.codec.Unmarshal(b, &meta)
	return meta, err
}

// withRetry runs fn, retrying transient failures with exponential backoff.
func (s *Store[T]) withRetry(ctx context.Context, op, key string, fn func() error) error {
	backoff := s.initialBackoff
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || attempt >= s.maxRetries || !isRetryable(err) {
			return err
		}
		logger.Debug("S3 request failed, retrying",
			logger.KeyOperation, op,
			logger.KeyKey, key,
			"attempt", attempt+1,
			"backoff", backoff,
			logger.KeyError, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, s.maxBackoff)
	}
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// isRetryable reports whether err is a throttling, server or timeout error.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "RequestThrottled", "SlowDown",
			"InternalError", "ServiceUnavailable", "RequestTimeout":
			return true
		}
	}
	return false
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
	return gfs.NewIOError(path, op, err)
}
