package services

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse means the provider answered without any usable text.
	// Treated as a retryable failure inside the model client.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrEmptyEmbedding is the embedding counterpart of ErrEmptyResponse.
	ErrEmptyEmbedding = errors.New("empty embedding from model")

	// ErrMissingExtractedText means a document was never text-extracted.
	// Fatal stage precondition, no model call is made.
	ErrMissingExtractedText = errors.New("document text has not been extracted")

	// ErrInvalidCVStructure means the parsed CV lacks required fields.
	ErrInvalidCVStructure = errors.New("invalid CV structure returned")

	// ErrStageOrdering means a later stage found required earlier-stage
	// output absent.
	ErrStageOrdering = errors.New("earlier stage output missing")
)

// ModelUnavailableError reports an exhausted retry loop against the model
// endpoint, carrying the last underlying error.
type ModelUnavailableError struct {
	Attempts int
	Err      error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}

// MalformedOutputError reports a structural JSON contract violation in a
// model response. Never retried by the client; the calling stage decides.
type MalformedOutputError struct {
	Context string
	Err     error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output in %s: %v", e.Context, e.Err)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}
