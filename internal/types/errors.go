package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrDuplicateIdentity = errors.New("duplicate product identity")
	ErrMissingTitle      = errors.New("missing required field: title")
	ErrMissingURL        = errors.New("missing required field: url")
	ErrInvalidURL        = errors.New("invalid URL")
	ErrEmptyResponse     = errors.New("empty response body")
	ErrAllSeedsFailed    = errors.New("all seed pages failed")
)

// FetchError wraps transport failures and non-success HTTP statuses.
// The crawler treats both uniformly: the page is unavailable.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps failures while extracting data from a fetched page.
// Field names the product field being resolved when one applies.
type ParseError struct {
	URL   string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse error for %s (field=%q): %v", e.URL, e.Field, e.Err)
	}
	return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a record that is missing a required field after
// normalization. The record is dropped; the run continues.
type ValidationError struct {
	URL   string
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record from %s: %v", e.URL, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ImageError wraps a failed image download. One bad image never stops
// the remaining downloads.
type ImageError struct {
	URL  string
	Path string
	Err  error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image fetch error for %s: %v", e.URL, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// StorageError wraps errors from a single sink backend. A failing backend
// is isolated; the other sinks keep writing.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
