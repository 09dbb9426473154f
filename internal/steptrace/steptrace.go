// Package steptrace adds the step and AWS call attributes and spans used by
// the step runner on top of the shared tracing package.
package steptrace

import (
	"context"

	"github.com/jarrod-lowe/jmap-service-libs/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jarrod-lowe/aws-client-steps"

// Step is the step being run
func Step(name string) attribute.KeyValue {
	return attribute.String("step", name)
}

// Service is the AWS service name
func Service(name string) attribute.KeyValue {
	return attribute.String("aws.service", name)
}

// Operation is the AWS operation name
func Operation(name string) attribute.KeyValue {
	return attribute.String("aws.operation", name)
}

// Waiter is the native waiter name
func Waiter(name string) attribute.KeyValue {
	return attribute.String("aws.waiter", name)
}

// Attempt is the 1-based poll attempt number
func Attempt(n int) attribute.KeyValue {
	return attribute.Int("poll.attempt", n)
}

// StartStepSpan starts a span for a single step.
// Caller must end the span.
func StartStepSpan(ctx context.Context, step string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{Step(step)}, attrs...)
	return tracing.Tracer(tracerName).Start(ctx, "Step", trace.WithAttributes(attrs...))
}

// AddEvent records an event on the span in ctx, if there is one
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
