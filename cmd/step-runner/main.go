package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/google/uuid"
	"github.com/jarrod-lowe/jmap-service-libs/awsinit"
	"github.com/jarrod-lowe/jmap-service-libs/logging"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"

	"github.com/jarrod-lowe/aws-client-steps/internal/config"
	"github.com/jarrod-lowe/aws-client-steps/internal/contextargs"
	"github.com/jarrod-lowe/aws-client-steps/internal/invoke"
	"github.com/jarrod-lowe/aws-client-steps/internal/metrics"
	"github.com/jarrod-lowe/aws-client-steps/internal/pathexpr"
	"github.com/jarrod-lowe/aws-client-steps/internal/poll"
	"github.com/jarrod-lowe/aws-client-steps/internal/service"
	"github.com/jarrod-lowe/aws-client-steps/internal/steps"
	"github.com/jarrod-lowe/aws-client-steps/internal/steptrace"
	"github.com/jarrod-lowe/aws-client-steps/internal/waiter"
	"github.com/jarrod-lowe/aws-client-steps/pkg/stepcontract"
)

var logger = logging.New()

// StepRunner runs a named step against a context
type StepRunner interface {
	Run(ctx context.Context, step string, c contextargs.Context) error
}

// IDGenerator generates request IDs
type IDGenerator interface {
	Generate() string
}

// Dependencies for handler (injectable for testing)
type Dependencies struct {
	Runner      StepRunner
	IDGenerator IDGenerator
}

var deps *Dependencies

// handler is the Lambda entry point. Step failures are reported in the
// response rather than as a Lambda error, so the caller always gets the
// context back.
func handler(ctx context.Context, request stepcontract.StepRequest) (stepcontract.StepResponse, error) {
	requestID := resolveRequestID(ctx, request.RequestID)

	ctx, span := tracing.StartHandlerSpan(ctx, "StepRunnerHandler",
		tracing.Function("step-runner"),
		tracing.RequestID(requestID),
		steptrace.Step(request.Step),
	)
	defer span.End()

	c := contextargs.Context(request.Context)
	if c == nil {
		c = contextargs.Context{}
	}

	response := stepcontract.StepResponse{
		RequestID: requestID,
		Context:   c,
	}

	if err := deps.Runner.Run(ctx, request.Step, c); err != nil {
		errorType := classifyError(err)
		tracing.RecordError(span, err)
		logger.ErrorContext(ctx, "Step failed",
			slog.String("request_id", requestID),
			slog.String("step", request.Step),
			slog.String("error_type", errorType),
			slog.String("error", err.Error()),
		)
		response.Error = &stepcontract.StepError{
			Type:    errorType,
			Message: err.Error(),
		}
		return response, nil
	}

	logger.InfoContext(ctx, "Step completed",
		slog.String("request_id", requestID),
		slog.String("step", request.Step),
	)
	return response, nil
}

// resolveRequestID prefers the caller's ID, then the Lambda request ID, then
// a generated one
func resolveRequestID(ctx context.Context, requested string) string {
	if requested != "" {
		return requested
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return deps.IDGenerator.Generate()
}

// classifyError maps a step error to a StepError type. More specific errors
// are checked first: an ArgumentError may be wrapped in an
// OperationExecutionError.
func classifyError(err error) string {
	var (
		missingField   *contextargs.MissingFieldError
		emptyValue     *contextargs.EmptyValueError
		formatErr      *contextargs.FormatError
		unknownService *service.UnknownServiceError
		unknownWaiter  *service.UnknownWaiterError
		argumentErr    *service.ArgumentError
		unknownOp      *invoke.UnknownOperationError
		execErr        *invoke.OperationExecutionError
		pathNotFound   *pathexpr.PathNotFoundError
		syntaxErr      *pathexpr.SyntaxError
		timeoutErr     *poll.WaitTimeoutError
		nativeErr      *waiter.NativeWaitError
		unknownStep    *steps.UnknownStepError
	)

	switch {
	case errors.As(err, &unknownStep):
		return "unknownStep"
	case errors.As(err, &missingField):
		return "missingField"
	case errors.As(err, &emptyValue):
		return "emptyValue"
	case errors.As(err, &formatErr):
		return "invalidTemplate"
	case errors.As(err, &unknownService):
		return "unknownService"
	case errors.As(err, &unknownWaiter):
		return "unknownWaiter"
	case errors.As(err, &argumentErr):
		return "invalidArguments"
	case errors.As(err, &unknownOp):
		return "unknownOperation"
	case errors.As(err, &execErr):
		return "operationFailed"
	case errors.As(err, &pathNotFound):
		return "pathNotFound"
	case errors.As(err, &syntaxErr):
		return "invalidPath"
	case errors.As(err, &timeoutErr):
		return "waitTimeout"
	case errors.As(err, &nativeErr):
		return "waiterFailed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return "serverFail"
}

// =============================================================================
// Real implementations
// =============================================================================

// UUIDGenerator implements IDGenerator using UUID v4
type UUIDGenerator struct{}

// Generate generates a new UUID v4
func (UUIDGenerator) Generate() string {
	return uuid.New().String()
}

// regionLoader applies a default region before any per-call load options, so
// a region in construction args still wins
func regionLoader(region string) service.ConfigLoader {
	return func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		opts := append([]func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}, optFns...)
		return service.DefaultConfigLoader(ctx, opts...)
	}
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("FATAL: Failed to load configuration",
			slog.String("error", err.Error()),
		)
		panic(err)
	}
	logger = logging.New(logging.WithLevel(cfg.Level()))

	result, err := awsinit.Init(ctx, awsinit.WithFunctionName("step-runner"))
	if err != nil {
		logger.Error("FATAL: Failed to initialize",
			slog.String("error", err.Error()),
		)
		panic(err)
	}
	defer result.Cleanup()

	// Create cold start span - all init AWS calls become children
	ctx, coldStartSpan := tracing.StartColdStartSpan(result.Ctx, "step-runner")

	// Clients used by steps load their own config per call, since construction
	// args may change region or credentials
	resolverOpts := []service.ResolverOption{service.WithLogger(logger)}
	if cfg.Region != "" {
		resolverOpts = append(resolverOpts, service.WithConfigLoader(regionLoader(cfg.Region)))
	}
	registry := service.DefaultRegistry()
	resolver := service.NewResolver(registry, resolverOpts...)

	var publisher metrics.Publisher = metrics.Noop{}
	if cfg.MetricsEnabled() {
		publisher = metrics.NewCloudWatchPublisher(cloudwatch.NewFromConfig(result.Config), cfg.MetricNamespace)
	}

	invoker := invoke.NewClientInvoker(resolver, logger)
	deps = &Dependencies{
		Runner: steps.NewRunner(
			invoker,
			poll.New(invoker, poll.WithLogger(logger)),
			waiter.NewAdapter(resolver, logger),
			steps.WithMetrics(publisher),
			steps.WithLogger(logger),
		),
		IDGenerator: UUIDGenerator{},
	}

	logger.InfoContext(ctx, "Step runner initialised",
		slog.Any("services", registry.Names()),
	)
	coldStartSpan.End()

	result.Start(handler)
}
