package invoke

import (
	"context"
	"fmt"

	"github.com/jarrod-lowe/aws-client-steps/internal/service"
)

// Call describes one operation invocation
type Call struct {
	Name string         // Operation name, boto style ("describe_table") or Go style ("DescribeTable")
	Args map[string]any // Keyword args for the operation; nil means no args
}

// Invoker invokes a named operation on a named service
type Invoker interface {
	Invoke(ctx context.Context, desc service.Descriptor, call Call) (any, error)
}

// UnknownOperationError is returned when the resolved client has no operation
// with the requested name
type UnknownOperationError struct {
	Service   string
	Operation string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("service %q has no operation %q", e.Service, e.Operation)
}

// OperationExecutionError wraps a failure raised by the operation itself,
// including argument validation failures
type OperationExecutionError struct {
	Service   string
	Operation string
	Err       error
}

func (e *OperationExecutionError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Operation, e.Err)
}

func (e *OperationExecutionError) Unwrap() error {
	return e.Err
}
