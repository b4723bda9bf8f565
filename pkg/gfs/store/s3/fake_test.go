package s3

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type fakeObject struct {
	data     []byte
	metadata map[string]string
}

// fakeClient is an in-memory Client. Listings return pageSize items per
// page so tests exercise pagination.
type fakeClient struct {
	mu       sync.Mutex
	bucket   string
	objects  map[string]fakeObject
	pageSize int

	// failures makes the next n calls of an operation fail with SlowDown.
	failures map[string]int
	calls    map[string]int
}

func newFakeClient(bucket string) *fakeClient {
	return &fakeClient{
		bucket:   bucket,
		objects:  make(map[string]fakeObject),
		pageSize: 2,
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (f *fakeClient) fail(op string) error {
	f.calls[op]++
	if f.failures[op] > 0 {
		f.failures[op]--
		return &smithy.GenericAPIError{Code: "SlowDown", Message: "reduce your request rate"}
	}
	return nil
}

func copyMetadata(md map[string]string) map[string]string {
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[strings.ToLower(k)] = v
	}
	return out
}

func (f *fakeClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("get"); err != nil {
		return nil, err
	}
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))),
		ContentLength: aws.Int64(int64(len(obj.data))),
		Metadata:      copyMetadata(obj.metadata),
	}, nil
}

func (f *fakeClient) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("head"); err != nil {
		return nil, err
	}
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		Metadata:      copyMetadata(obj.metadata),
	}, nil
}

func (f *fakeClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("put"); err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = fakeObject{data: data, metadata: copyMetadata(in.Metadata)}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("copy"); err != nil {
		return nil, err
	}
	bucket, escaped, _ := strings.Cut(aws.ToString(in.CopySource), "/")
	src, err := url.PathUnescape(escaped)
	if err != nil || bucket != f.bucket {
		return nil, &smithy.GenericAPIError{Code: "InvalidRequest", Message: "bad copy source"}
	}
	obj, ok := f.objects[src]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	f.objects[aws.ToString(in.Key)] = fakeObject{data: bytes.Clone(obj.data), metadata: copyMetadata(obj.metadata)}
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeClient) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("delete"); err != nil {
		return nil, err
	}
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeClient) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if aws.ToString(in.Bucket) != f.bucket {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeClient) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("list"); err != nil {
		return nil, err
	}

	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	type item struct {
		name     string
		isPrefix bool
	}
	seen := make(map[string]item)
	for key := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				cp := prefix + rest[:i+len(delim)]
				seen[cp] = item{name: cp, isPrefix: true}
				continue
			}
		}
		seen[key] = item{name: key}
	}
	items := make([]item, 0, len(seen))
	for _, it := range seen {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].name < items[j].name })

	if token := aws.ToString(in.ContinuationToken); token != "" {
		i := sort.Search(len(items), func(i int) bool { return items[i].name > token })
		items = items[i:]
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if len(items) > f.pageSize {
		items = items[:f.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(items[len(items)-1].name)
	}
	for _, it := range items {
		if it.isPrefix {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(it.name)})
		} else {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(it.name)})
		}
	}
	return out, nil
}

var _ Client = (*fakeClient)(nil)
