package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoaded is returned by readers before the first successful load.
	ErrNotLoaded = errors.New("configuration data not loaded")

	// ErrUnknownCode indicates a code that is not in the collection.
	ErrUnknownCode = errors.New("unknown code")

	// ErrUnknownName indicates a display name that is not in the collection.
	ErrUnknownName = errors.New("unknown name")

	// ErrUnknownID indicates a backend id that is not in the collection.
	ErrUnknownID = errors.New("unknown id")

	// ErrIncomplete indicates the backend omitted one of the four collections.
	ErrIncomplete = errors.New("configuration payload is incomplete")
)

// LoadError wraps a failed reference-data load. Dependents surface it to the
// user instead of waiting on data that will never arrive.
type LoadError struct {
	Err       error
	retryable bool
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading configuration data: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Retryable reports whether calling Reload may succeed.
func (e *LoadError) Retryable() bool { return e.retryable }

// TranslationError reports a code or name that could not be translated.
type TranslationError struct {
	Collection Collection
	Value      string
	Err        error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Collection.Label(), e.Value)
}

func (e *TranslationError) Unwrap() error { return e.Err }
