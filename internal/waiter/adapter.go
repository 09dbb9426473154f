// Package waiter delegates waiting to the pre-built waiters that ship with
// the AWS SDK clients. The polling loop belongs to the SDK waiter.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jarrod-lowe/aws-client-steps/internal/service"
)

// Request is one native wait
type Request struct {
	Service    string
	Waiter     string
	ClientArgs map[string]any // Construction args for the client the waiter runs on
	WaiterArgs map[string]any // Waiter settings, e.g. Delay and MaxAttempts
	WaitArgs   map[string]any // Input to the waiter's operation
}

// NativeWaitError wraps a failure raised by the SDK waiter
type NativeWaitError struct {
	Service string
	Waiter  string
	Err     error
}

func (e *NativeWaitError) Error() string {
	return fmt.Sprintf("aws %s waiter %s failed: %v", e.Service, e.Waiter, e.Err)
}

func (e *NativeWaitError) Unwrap() error {
	return e.Err
}

// Adapter resolves a service client and runs one of its named waiters
type Adapter struct {
	resolver service.CapabilityResolver
	logger   *slog.Logger
}

// NewAdapter creates an Adapter. A nil logger discards output.
func NewAdapter(resolver service.CapabilityResolver, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{resolver: resolver, logger: logger}
}

// WaitNative blocks until the named waiter succeeds. Resolution and argument
// errors are returned as-is; anything the waiter itself returns is wrapped in
// a NativeWaitError.
func (a *Adapter) WaitNative(ctx context.Context, req Request) error {
	serviceName := strings.TrimSpace(req.Service)
	waiterName := strings.TrimSpace(req.Waiter)

	capability, err := a.resolver.Resolve(ctx, service.Descriptor{
		Name:             serviceName,
		ConstructionArgs: req.ClientArgs,
	})
	if err != nil {
		return err
	}

	w, err := capability.Waiter(waiterName, req.WaiterArgs)
	if err != nil {
		return err
	}

	if len(req.WaiterArgs) == 0 {
		a.logger.DebugContext(ctx, "Got waiter with no waiter args",
			slog.String("service", serviceName),
			slog.String("waiter", waiterName))
	} else {
		a.logger.DebugContext(ctx, "Got waiter with waiter args",
			slog.String("service", serviceName),
			slog.String("waiter", waiterName))
	}

	if err := w.Wait(ctx, req.WaitArgs); err != nil {
		var argErr *service.ArgumentError
		if errors.As(err, &argErr) {
			return err
		}
		return &NativeWaitError{Service: serviceName, Waiter: waiterName, Err: err}
	}

	a.logger.InfoContext(ctx, "Waiter finished",
		slog.String("service", serviceName),
		slog.String("waiter", waiterName))
	return nil
}
