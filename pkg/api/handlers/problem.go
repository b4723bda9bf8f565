// Package handlers provides HTTP handlers for the gfs API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/gfs/internal/logger"
	"github.com/marmos91/gfs/pkg/gfs"
)

// Problem represents an RFC 7807 "problem details" response.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`

	// Code is the gfs error code name, e.g. "NotFound".
	Code string `json:"code,omitempty"`
	Path string `json:"path,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, &Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func writeProblem(w http.ResponseWriter, p *Problem) {
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

// NotFound writes a 404 Not Found problem response.
func NotFound(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusNotFound, "Not Found", detail)
}

// InternalServerError writes a 500 Internal Server Error problem response.
func InternalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// StatusFor maps a gfs error to an HTTP status code.
func StatusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch gfs.CodeOf(err) {
	case gfs.ErrNotFound:
		return http.StatusNotFound
	case gfs.ErrAlreadyExists:
		return http.StatusConflict
	case gfs.ErrInvalidArgument:
		return http.StatusBadRequest
	case gfs.ErrReadOnly:
		return http.StatusForbidden
	case gfs.ErrClosed:
		return http.StatusServiceUnavailable
	case gfs.ErrNotSupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// WriteStoreError writes the problem response for a filesystem error.
// Server-side failures are logged; their details are not sent.
func WriteStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	p := &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
	}

	var se *gfs.StoreError
	if errors.As(err, &se) {
		p.Code = se.Code.String()
		p.Path = se.Path
	}

	if status == http.StatusInternalServerError {
		logger.ErrorCtx(r.Context(), "API request failed",
			logger.KeyMethod, r.Method,
			logger.Path(r.URL.Path),
			logger.Err(err))
		p.Detail = "filesystem operation failed"
	} else {
		p.Detail = err.Error()
	}

	writeProblem(w, p)
}
