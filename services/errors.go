package services

import (
	"errors"
	"fmt"
)

// ErrIndexNotReady is returned when retrieval is attempted against an index
// that has no embedded chunks. Callers should answer without grounding
// context instead of failing the whole request.
var ErrIndexNotReady = errors.New("search index not ready")

// ErrRetrievalUnavailable is returned when the query could not be embedded
// after exhausting the retry budget.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// TransientError marks an external service failure worth retrying
// (network errors, rate limits, temporary unavailability). Any other
// error from a collaborator propagates immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient service error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// BuildError means an index rebuild could not complete. The previously
// published index, if any, remains the visible state.
type BuildError struct {
	Stage string // "list", "embed"
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("index build failed at %s: %v", e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// MalformedDocumentError marks a single unreadable document. It is logged
// and skipped during a rebuild, never aborting the remaining documents.
type MalformedDocumentError struct {
	Name string
	Err  error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document %q: %v", e.Name, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

// EmbeddingError means a batch embedding operation failed after retries.
// No partial vector set is ever returned alongside it.
type EmbeddingError struct {
	Index int // position of the text that could not be embedded
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for text %d: %v", e.Index, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
