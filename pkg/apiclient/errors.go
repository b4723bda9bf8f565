package apiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/marmos91/gfs/pkg/gfs"
)

// APIError represents a problem response from the API.
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title"`
	Detail     string `json:"detail,omitempty"`

	// Code is the gfs error code name carried by store failures.
	Code string `json:"code,omitempty"`
	Path string `json:"path,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Title
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, msg)
}

// Unwrap exposes the store error named by Code so gfs.IsNotFoundError and
// friends work on client errors.
func (e *APIError) Unwrap() error {
	code, ok := storeCodes[e.Code]
	if !ok {
		return nil
	}
	return &gfs.StoreError{Code: code, Message: e.Detail, Path: e.Path}
}

// IsNotFound returns true if the entry or mount does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsPreconditionFailed returns true if an If-Match check failed.
func (e *APIError) IsPreconditionFailed() bool {
	return e.StatusCode == http.StatusPreconditionFailed
}

var storeCodes = func() map[string]gfs.ErrorCode {
	m := make(map[string]gfs.ErrorCode)
	for _, c := range []gfs.ErrorCode{
		gfs.ErrNotFound,
		gfs.ErrAlreadyExists,
		gfs.ErrInvalidArgument,
		gfs.ErrIOError,
		gfs.ErrReadOnly,
		gfs.ErrNotSupported,
		gfs.ErrClosed,
	} {
		m[c.String()] = c
	}
	return m
}()

// decodeError builds an APIError from an error response. Bodies that are
// not problem documents become the detail.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{}
	if json.Unmarshal(body, apiErr) != nil || apiErr.Title == "" {
		apiErr = &APIError{Title: http.StatusText(resp.StatusCode), Detail: string(body)}
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}
