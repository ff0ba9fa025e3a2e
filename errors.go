package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"syscall"
)

// Error kinds returned at every filesystem and rendering boundary.
// Handlers match them with errors.Is and never inspect the cause.
var (
	errPathEscape       = errors.New("path escapes repository root")
	errNotFound         = errors.New("not found")
	errPermissionDenied = errors.New("permission denied")
	errReadFailure      = errors.New("read failure")
	errRenderFailure    = errors.New("render failure")
	errInvalidRoot      = errors.New("not a directory")
)

// browseError ties an error kind to the root-relative path the user asked for.
type browseError struct {
	Kind error
	Path string // root-relative, safe to show
	Err  error  // underlying cause, logged only
}

func (e *browseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Kind)
}

func (e *browseError) Unwrap() error { return e.Err }

func (e *browseError) Is(target error) bool { return target == e.Kind }

// fsError converts an os-level error into one of the browse kinds.
// fallback is used for anything that is neither missing nor forbidden.
// ENOTDIR means a path component is a file, so nothing exists there.
func fsError(rel string, err error, fallback error) error {
	kind := fallback
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		kind = errNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = errPermissionDenied
	}
	return &browseError{Kind: kind, Path: rel, Err: err}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errPathEscape):
		return http.StatusForbidden
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, errPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, errInvalidRoot):
		return http.StatusBadRequest
	case errors.Is(err, errReadFailure), errors.Is(err, errRenderFailure):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the text shown on the error page. It only ever mentions the
// relative path the user supplied.
func userMessage(err error) string {
	var be *browseError
	path := ""
	if errors.As(err, &be) {
		path = be.Path
	}
	switch {
	case errors.Is(err, errPathEscape):
		return "Security error: access outside the repository is not allowed."
	case errors.Is(err, errNotFound):
		return fmt.Sprintf("The path '%s' was not found.", path)
	case errors.Is(err, errPermissionDenied):
		return fmt.Sprintf("Permission denied: you do not have access to '%s'.", path)
	case errors.Is(err, errInvalidRoot):
		return fmt.Sprintf("'%s' is not a valid directory.", path)
	case errors.Is(err, errReadFailure):
		return "The file could not be read."
	case errors.Is(err, errRenderFailure):
		return "The content could not be rendered."
	default:
		return "Internal server error"
	}
}
