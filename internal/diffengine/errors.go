package diffengine

import "fmt"

// ParseError reports a malformed diff: input the underlying diff parser
// rejects, a non-monotonic or negative hunk header, or a content line with
// an unknown prefix. A file block with no hunk is not an error; ParseDiff
// emits a zero-line hunk for it. spec.md §4.1 requires these to hard-abort rather than recover, so
// ParseError is never partially populated with a best-effort result.
type ParseError struct {
	FilePath string
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("diff parse error in %s: %s", e.FilePath, e.Reason)
	}
	return fmt.Sprintf("diff parse error: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(filePath, reason string, err error) *ParseError {
	return &ParseError{FilePath: filePath, Reason: reason, Err: err}
}
