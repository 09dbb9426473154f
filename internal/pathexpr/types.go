package pathexpr

import "fmt"

// PathNotFoundError is returned when a path step does not exist in the data
type PathNotFoundError struct {
	Path   string // Full expression being evaluated
	Token  string // Step that could not be resolved
	Reason string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path not found: %s: %s at %q", e.Path, e.Reason, e.Token)
}

// SyntaxError is returned when an expression cannot be parsed
type SyntaxError struct {
	Expression string
	Offset     int
	Reason     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid path expression %q at offset %d: %s", e.Expression, e.Offset, e.Reason)
}
