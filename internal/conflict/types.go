// Package conflict resolves git merge conflicts in documents.jsonl. Records
// on both sides of a conflict are matched by fingerprint; since every record
// is derived from its document, one side's record is kept whole rather than
// merged field by field.
package conflict

import (
	"fmt"

	"github.com/matsen/citegraph/internal/metadata"
)

// Region is one conflict region of a JSONL file.
type Region struct {
	// Line numbers in the original file (1-indexed)
	StartLine int // Line of <<<<<<< marker
	EndLine   int // Line of >>>>>>> marker

	Ours   []metadata.DocumentMetadata
	Theirs []metadata.DocumentMetadata
}

// Segment is either a run of clean records or a single conflict region,
// in file order.
type Segment struct {
	Clean  []metadata.DocumentMetadata
	Region *Region
}

// ParseResult contains the result of parsing a conflicted file.
type ParseResult struct {
	Segments []Segment
}

// Action indicates how one record was resolved.
type Action string

const (
	ActionIdentical  Action = "identical"   // Both sides agree
	ActionKeepOurs   Action = "keep_ours"   // Ours is at least as complete
	ActionKeepTheirs Action = "keep_theirs" // Theirs is more complete
	ActionAddOurs    Action = "add_ours"    // Record only in ours
	ActionAddTheirs  Action = "add_theirs"  // Record only in theirs
)

// Decision records the resolution of one fingerprint.
type Decision struct {
	Fingerprint string `json:"fingerprint"`
	FilePath    string `json:"file_path"`
	Action      Action `json:"action"`
	Reason      string `json:"reason,omitempty"`
}

// ParseError represents an error while parsing conflict markers or JSONL.
type ParseError struct {
	Line    int    // Line number where error occurred (1-indexed)
	Message string // Description of the error
	Context string // Surrounding content for debugging
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}
