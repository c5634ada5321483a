package openlibrary

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNotFound is returned when no record matches the lookup
	ErrNotFound = errors.New("record not found")
	// ErrNoSession is returned when login did not produce a session cookie
	ErrNoSession = errors.New("no session cookie set")
	// ErrInvalidBibkey is returned for unsupported bibliographic key names
	ErrInvalidBibkey = errors.New("bibkey must be one of OCLC, OLID, ISBN, OCAID, or LCCN")
	// ErrCreateFailed is returned when /books/add bounced back to the form,
	// usually because the book already exists
	ErrCreateFailed = errors.New("creation failed, book may already exist")
	// ErrKindMismatch is returned when a redirect's endpoints are of different kinds
	ErrKindMismatch = errors.New("redirect endpoints must be the same kind of record")
)

// RequestError is a custom error type that carries the request context
// of a failed API call so callers can branch on the status code
// without string parsing.
type RequestError struct {
	// Method and Path identify the failed request
	Method string
	Path   string
	// StatusCode is the HTTP status the API answered with
	StatusCode int
	// Body is a snippet of the response body, if any
	Body string
}

// Error implements the error interface
func (e *RequestError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}

// StatusCode returns the HTTP status from an error if it's a RequestError
func StatusCode(err error) (int, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode, true
	}
	return 0, false
}
