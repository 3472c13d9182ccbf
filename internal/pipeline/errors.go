package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResult indicates a collaborator returned nothing usable.
	ErrEmptyResult = errors.New("collaborator returned an empty result")

	// ErrAborted indicates the pipeline stopped before running every stage.
	ErrAborted = errors.New("pipeline aborted")
)

// ExtractionError reports an upstream collaborator that failed or returned
// nothing.
type ExtractionError struct {
	Stage string
	Path  string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StageError attributes a non-extraction failure to a stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsExtractionError returns true if err is or wraps an ExtractionError.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}
