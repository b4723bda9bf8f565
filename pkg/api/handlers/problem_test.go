package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marmos91/gfs/pkg/gfs"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", gfs.NewNotFoundError("/a"), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", gfs.NewNotFoundError("/a")), http.StatusNotFound},
		{"already exists", gfs.NewAlreadyExistsError("/a"), http.StatusConflict},
		{"invalid argument", gfs.NewInvalidArgumentError("/a", "bad"), http.StatusBadRequest},
		{"read only", gfs.NewReadOnlyError("/a"), http.StatusForbidden},
		{"closed", gfs.NewClosedError(), http.StatusServiceUnavailable},
		{"not supported", gfs.NewNotSupportedError("snapshot"), http.StatusNotImplemented},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteStoreError_CarriesCodeAndPath(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/x", nil)

	WriteStoreError(w, r, gfs.NewNotFoundError("/docs/a.txt"))

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != ContentTypeProblemJSON {
		t.Errorf("Expected Content-Type %q, got %q", ContentTypeProblemJSON, ct)
	}

	var p Problem
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("Failed to decode problem: %v", err)
	}
	if p.Code != "NotFound" {
		t.Errorf("Expected code NotFound, got %q", p.Code)
	}
	if p.Path != "/docs/a.txt" {
		t.Errorf("Expected path /docs/a.txt, got %q", p.Path)
	}
}

func TestWriteStoreError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/x", nil)

	WriteStoreError(w, r, errors.New("dial tcp 10.0.0.1:5432: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	var p Problem
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("Failed to decode problem: %v", err)
	}
	if p.Detail == "" || p.Detail == "dial tcp 10.0.0.1:5432: connection refused" {
		t.Errorf("Expected generic detail, got %q", p.Detail)
	}
}
