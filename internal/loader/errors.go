package loader

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error code constants.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // File read error
	ErrCodeBadFormat   = "E003" // Unsupported file extension
	ErrCodeParseFailed = "E004" // YAML or CUE syntax error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE evaluation error

	// Schema errors
	ErrCodeTable    = "E101" // Missing or duplicate table
	ErrCodeColumn   = "E102" // Unknown or malformed column reference
	ErrCodeJoin     = "E103" // Invalid join declaration
	ErrCodeComputed = "E104" // Invalid computed column

	// Query document errors
	ErrCodeQuery     = "E201" // Invalid query document
	ErrCodeOperator  = "E202" // Invalid operator, direction or operand
	ErrCodeUnion     = "E203" // Unknown union sibling
	ErrCodeDuplicate = "E204" // Duplicate query name
)

// LoadError reports a problem in a schema or query document.
type LoadError struct {
	Code    string
	Message string
	Path    string    // document path, e.g. "tables[1].computed[0]"
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newLoadError(code, path, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(code string, err error) *LoadError {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}

	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
