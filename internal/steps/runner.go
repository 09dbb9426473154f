// Package steps implements the pipeline steps that drive the invoker, the
// wait poller and the native waiter from a shared key-value context.
package steps

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jarrod-lowe/jmap-service-libs/tracing"

	"github.com/jarrod-lowe/aws-client-steps/internal/contextargs"
	"github.com/jarrod-lowe/aws-client-steps/internal/invoke"
	"github.com/jarrod-lowe/aws-client-steps/internal/metrics"
	"github.com/jarrod-lowe/aws-client-steps/internal/poll"
	"github.com/jarrod-lowe/aws-client-steps/internal/steptrace"
	"github.com/jarrod-lowe/aws-client-steps/internal/waiter"
	"github.com/jarrod-lowe/aws-client-steps/pkg/stepcontract"
)

// Poller runs a field-matching wait loop
type Poller interface {
	PollUntil(ctx context.Context, req poll.Request) (*poll.Result, error)
}

// NativeWaiter runs a pre-built SDK waiter
type NativeWaiter interface {
	WaitNative(ctx context.Context, req waiter.Request) error
}

// UnknownStepError is returned when a step name is not recognised
type UnknownStepError struct {
	Step string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step %q", e.Step)
}

// Runner runs steps against a context
type Runner struct {
	invoker invoke.Invoker
	poller  Poller
	waiter  NativeWaiter
	metrics metrics.Publisher
	logger  *slog.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithMetrics publishes wait metrics
func WithMetrics(publisher metrics.Publisher) Option {
	return func(r *Runner) {
		r.metrics = publisher
	}
}

// WithLogger sets the runner's logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner
func NewRunner(invoker invoke.Invoker, poller Poller, nativeWaiter NativeWaiter, opts ...Option) *Runner {
	r := &Runner{
		invoker: invoker,
		poller:  poller,
		waiter:  nativeWaiter,
		metrics: metrics.Noop{},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run dispatches to the named step inside a step span
func (r *Runner) Run(ctx context.Context, step string, c contextargs.Context) error {
	name := strings.ToLower(strings.TrimSpace(step))

	ctx, span := steptrace.StartStepSpan(ctx, name)
	defer span.End()

	var err error
	switch name {
	case stepcontract.StepClient:
		err = r.Client(ctx, c)
	case stepcontract.StepWaitFor:
		_, err = r.WaitFor(ctx, c)
	case stepcontract.StepWait:
		err = r.Wait(ctx, c)
	case stepcontract.StepS3FetchJSON:
		err = r.S3FetchJSON(ctx, c)
	case stepcontract.StepS3FetchYAML:
		err = r.S3FetchYAML(ctx, c)
	case stepcontract.StepS3JSONFetch:
		err = r.S3JSONFetch(ctx, c)
	case stepcontract.StepECSTaskWait:
		err = r.ECSTaskWait(ctx, c)
	default:
		err = &UnknownStepError{Step: step}
	}

	if err != nil {
		tracing.RecordError(span, err)
	}
	return err
}

// nestedMap reads parent[field] as a required mapping
func nestedMap(parent map[string]any, parentName, field, caller string) (map[string]any, error) {
	value, ok := parent[field]
	if !ok {
		return nil, &contextargs.MissingFieldError{Parent: parentName, Field: field, Caller: caller}
	}
	if value == nil {
		return nil, &contextargs.EmptyValueError{Parent: parentName, Field: field, Caller: caller}
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s in %s must be a mapping for %s, got %T", field, parentName, caller, value)
	}
	return m, nil
}
