package contextargs

import "fmt"

// MissingFieldError is returned when a required key is absent
type MissingFieldError struct {
	Parent string // Containing key, e.g. "awsClientIn"; empty for the context root
	Field  string
	Caller string
}

func (e *MissingFieldError) Error() string {
	if e.Parent == "" {
		return fmt.Sprintf("context[%q] doesn't exist. It must exist for %s", e.Field, e.Caller)
	}
	return fmt.Sprintf("%s missing required key for %s: %s", e.Parent, e.Caller, e.Field)
}

// EmptyValueError is returned when a required key is present but nil, empty
// or all whitespace
type EmptyValueError struct {
	Parent string
	Field  string
	Caller string
}

func (e *EmptyValueError) Error() string {
	if e.Parent == "" {
		return fmt.Sprintf("context[%q] must have a value for %s", e.Field, e.Caller)
	}
	return fmt.Sprintf("%s required in %s for %s", e.Field, e.Parent, e.Caller)
}

// FormatError is returned when a template cannot be substituted against the
// context
type FormatError struct {
	Template string
	Err      error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("failed to format %q: %v", e.Template, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
