package invoke

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jarrod-lowe/aws-client-steps/internal/service"
)

// ClientInvoker resolves a fresh service client per call and invokes the
// named operation on it by reflection
type ClientInvoker struct {
	resolver service.CapabilityResolver
	logger   *slog.Logger
}

// NewClientInvoker creates an invoker. A nil logger discards output.
func NewClientInvoker(resolver service.CapabilityResolver, logger *slog.Logger) *ClientInvoker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ClientInvoker{resolver: resolver, logger: logger}
}

// Invoke calls call.Name on the service described by desc with call.Args as
// keyword arguments and returns the response as a generic value. The response
// may be nil.
func (i *ClientInvoker) Invoke(ctx context.Context, desc service.Descriptor, call Call) (any, error) {
	capability, err := i.resolver.Resolve(ctx, desc)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(call.Name)
	op, ok := LookupOperation(capability.Client(), name)
	if !ok {
		return nil, &UnknownOperationError{Service: capability.Name(), Operation: name}
	}

	output, err := op.Call(ctx, call.Args)
	if err != nil {
		return nil, &OperationExecutionError{
			Service:   capability.Name(),
			Operation: op.Name,
			Err:       err,
		}
	}

	i.logger.DebugContext(ctx, "Executed operation",
		slog.String("service", capability.Name()),
		slog.String("operation", op.Name))

	return ToResponseValue(output), nil
}
