package conflict

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/storage"
)

type parserState int

const (
	stateNormal parserState = iota
	stateInOurs
	stateInTheirs
)

// Conflict marker prefixes
const (
	oursMarker      = "<<<<<<<"
	separatorMarker = "======="
	theirsMarker    = ">>>>>>>"
)

// Parse reads a conflicted JSONL file into clean runs and conflict regions.
func Parse(r io.Reader) (*ParseResult, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, storage.MaxJSONLLineCapacity)

	result := &ParseResult{}
	state := stateNormal
	lineNum := 0
	var region *Region
	var clean []metadata.DocumentMetadata
	oursStart, theirsStart := 0, 0
	var oursLines, theirsLines []string

	flushClean := func() {
		if len(clean) > 0 {
			result.Segments = append(result.Segments, Segment{Clean: clean})
			clean = nil
		}
	}

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		switch state {
		case stateNormal:
			switch {
			case strings.HasPrefix(line, oursMarker):
				flushClean()
				region = &Region{StartLine: lineNum}
				oursLines, theirsLines = nil, nil
				oursStart = lineNum + 1
				state = stateInOurs
			case strings.HasPrefix(line, separatorMarker):
				return nil, ParseError{Line: lineNum, Message: "unexpected separator marker outside conflict region", Context: line}
			case strings.HasPrefix(line, theirsMarker):
				return nil, ParseError{Line: lineNum, Message: "unexpected end marker outside conflict region", Context: line}
			default:
				doc, ok, err := parseLine(line, lineNum)
				if err != nil {
					return nil, err
				}
				if ok {
					clean = append(clean, doc)
				}
			}

		case stateInOurs:
			switch {
			case strings.HasPrefix(line, oursMarker):
				return nil, ParseError{Line: lineNum, Message: "nested conflict markers not allowed", Context: line}
			case strings.HasPrefix(line, separatorMarker):
				theirsStart = lineNum + 1
				state = stateInTheirs
			case strings.HasPrefix(line, theirsMarker):
				return nil, ParseError{Line: lineNum, Message: "unexpected end marker before separator", Context: line}
			default:
				oursLines = append(oursLines, line)
			}

		case stateInTheirs:
			switch {
			case strings.HasPrefix(line, oursMarker):
				return nil, ParseError{Line: lineNum, Message: "nested conflict markers not allowed", Context: line}
			case strings.HasPrefix(line, separatorMarker):
				return nil, ParseError{Line: lineNum, Message: "duplicate separator marker in conflict region", Context: line}
			case strings.HasPrefix(line, theirsMarker):
				region.EndLine = lineNum
				var err error
				if region.Ours, err = parseLines(oursLines, oursStart); err != nil {
					return nil, err
				}
				if region.Theirs, err = parseLines(theirsLines, theirsStart); err != nil {
					return nil, err
				}
				result.Segments = append(result.Segments, Segment{Region: region})
				region = nil
				state = stateNormal
			default:
				theirsLines = append(theirsLines, line)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if state != stateNormal {
		return nil, ParseError{Line: lineNum, Message: "unterminated conflict region at end of file"}
	}
	flushClean()
	return result, nil
}

func parseLines(lines []string, startLine int) ([]metadata.DocumentMetadata, error) {
	var docs []metadata.DocumentMetadata
	for i, line := range lines {
		doc, ok, err := parseLine(line, startLine+i)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func parseLine(line string, lineNum int) (metadata.DocumentMetadata, bool, error) {
	var doc metadata.DocumentMetadata
	line = strings.TrimSpace(line)
	if line == "" {
		return doc, false, nil
	}
	if err := json.Unmarshal([]byte(line), &doc); err != nil {
		return doc, false, ParseError{Line: lineNum, Message: "invalid JSON: " + err.Error(), Context: truncate(line, 50)}
	}
	return doc, true, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// ParseString is a convenience function that parses from a string.
func ParseString(content string) (*ParseResult, error) {
	return Parse(strings.NewReader(content))
}

// HasConflicts returns true if the parse result contains any conflict regions.
func (r *ParseResult) HasConflicts() bool {
	for _, s := range r.Segments {
		if s.Region != nil {
			return true
		}
	}
	return false
}
