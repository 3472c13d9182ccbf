package citation

import (
	"errors"
	"fmt"
)

// Common errors returned while normalizing and linking citations.
var (
	// ErrMalformedMarker indicates a marker matched a citation pattern but
	// could not be normalized.
	ErrMalformedMarker = errors.New("malformed citation marker")

	// ErrUnresolvedKey indicates a normalized key is absent from the reference list.
	ErrUnresolvedKey = errors.New("citation key not in reference list")
)

// PatternError reports a marker that matched a pattern but failed normalization,
// for example a descending range such as [5-3].
type PatternError struct {
	Text   string // raw marker
	Offset int    // byte offset in the markdown
	Reason string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern error at offset %d: %q: %s", e.Offset, e.Text, e.Reason)
}

func (e *PatternError) Unwrap() error { return ErrMalformedMarker }

// LinkingError reports one citation key with no matching reference.
type LinkingError struct {
	Key    string
	Text   string // raw marker the key came from
	Offset int
}

func (e *LinkingError) Error() string {
	return fmt.Sprintf("linking error at offset %d: %s from %q has no reference", e.Offset, e.Key, e.Text)
}

func (e *LinkingError) Unwrap() error { return ErrUnresolvedKey }

// IsPatternError returns true if err is or wraps a PatternError.
func IsPatternError(err error) bool {
	var pe *PatternError
	return errors.As(err, &pe)
}

// IsLinkingError returns true if err is or wraps a LinkingError.
func IsLinkingError(err error) bool {
	var le *LinkingError
	return errors.As(err, &le)
}
