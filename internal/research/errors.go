package research

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrCorruptDocument   = errors.New("corrupt document")
)

// ValidationError reports input rejected at the request boundary. Message is
// safe to show to end users.
type ValidationError struct {
	Field   string
	Message string
	// TooLarge marks size-limit violations so transports can pick a status.
	TooLarge bool
	Err      error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

type Stage string

const (
	StageExtract Stage = "extract"
	StageSearch  Stage = "search"
	StageFetch   Stage = "fetch"
	StageModel   Stage = "model"
)

// UpstreamError is a terminal failure from a collaborator: extractor, search
// provider, refresh fetcher or model.
type UpstreamError struct {
	Stage  Stage
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Stage, e.Source, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// SchemaViolationError means the model answered but its output did not match
// the declared shape, even after corrective retries.
type SchemaViolationError struct {
	Schema   string
	Raw      string
	Attempts int
	Err      error
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("model output does not match %s schema after %d attempt(s): %v", e.Schema, e.Attempts, e.Err)
}

func (e *SchemaViolationError) Unwrap() error {
	return e.Err
}

func upstream(stage Stage, source string, err error) error {
	var existing *UpstreamError
	if errors.As(err, &existing) {
		return err
	}
	return &UpstreamError{Stage: stage, Source: source, Err: err}
}
