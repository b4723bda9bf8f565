package apiclient

import (
	"context"
	"net/url"
	"strings"
)

// getResource performs a GET request to the given path and decodes the
// response body into a value of type T.
//
// Example:
//
//	info, err := getResource[MountInfo](ctx, c, "/api/v1/mounts/docs", nil)
func getResource[T any](ctx context.Context, c *Client, path string, query url.Values) (*T, error) {
	var result T
	if err := c.get(ctx, path, query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// listResources performs a GET request to the given path and decodes the
// response body into a slice of type T.
func listResources[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var results []T
	if err := c.get(ctx, path, query, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// mountPath returns the API path of mount, followed by the given route
// segments.
func mountPath(mount string, route ...string) string {
	p := "/api/v1/mounts/" + url.PathEscape(mount)
	for _, r := range route {
		p += "/" + r
	}
	return p
}

// escapeEntry escapes each component of an entry path for use after a
// wildcard route. The leading separator is dropped.
func escapeEntry(p string) string {
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
