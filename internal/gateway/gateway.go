// Package gateway talks to the remote REST backend that owns transactions,
// categories, accounts and budgets.
//
// Every response shape the backend is known to emit is normalized here into
// the canonical model types, so nothing above this package deals with
// envelopes, field aliases or numeric ids.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Resource is the CRUD contract for one collection.
type Resource[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, draft T) (T, error)
	Update(ctx context.Context, id string, rec T) (T, error)
	Delete(ctx context.Context, id string) error
}

// Collection names under the API base URL.
const (
	CollectionTransactions = "transactions"
	CollectionCategories   = "categories"
	CollectionAccounts     = "accounts"
	CollectionBudgets      = "budgets"
)

// optionalCollections are missing on some backend deployments. A 401 or 404
// from them means "feature not available", never session expiry.
var optionalCollections = map[string]bool{
	CollectionCategories: true,
	CollectionAccounts:   true,
	CollectionBudgets:    true,
}

var (
	// ErrEndpointUnavailable marks a 401/404 from an optional collection.
	ErrEndpointUnavailable = errors.New("endpoint not available")
	// ErrSessionExpired marks a 401 from a protected, implemented endpoint.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotFound marks a 404 for a single record.
	ErrNotFound = errors.New("not found")
)

// Error is a non-2xx response.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	kind       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap exposes the classification so callers can use errors.Is.
func (e *Error) Unwrap() error { return e.kind }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.StatusCode
	}
	return 0
}

// classify decides what a failed status means for path.
func classify(path string, status int) error {
	if isAuthPath(path) {
		return nil
	}
	if optionalCollections[collectionOf(path)] && (status == 401 || status == 404) {
		return ErrEndpointUnavailable
	}
	switch status {
	case 401:
		return ErrSessionExpired
	case 404:
		return ErrNotFound
	}
	return nil
}

func isAuthPath(path string) bool {
	return strings.HasPrefix(path, "/auth/")
}

// collectionOf returns the first path segment: "/budgets/7" -> "budgets".
func collectionOf(path string) string {
	seg, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	seg, _, _ = strings.Cut(seg, "?")
	return seg
}
