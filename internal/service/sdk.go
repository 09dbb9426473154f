package service

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/cast"
)

// DefaultRegistry returns the catalog of AWS SDK clients and their waiters
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(Service{
		Name: "s3",
		New:  sdkClient(s3.NewFromConfig),
		Waiters: map[string]WaiterFactory{
			"BucketExists":    sdkWaiter[s3.HeadBucketInput](s3.NewBucketExistsWaiter),
			"BucketNotExists": sdkWaiter[s3.HeadBucketInput](s3.NewBucketNotExistsWaiter),
			"ObjectExists":    sdkWaiter[s3.HeadObjectInput](s3.NewObjectExistsWaiter),
			"ObjectNotExists": sdkWaiter[s3.HeadObjectInput](s3.NewObjectNotExistsWaiter),
		},
	})

	r.Register(Service{
		Name: "dynamodb",
		New:  sdkClient(dynamodb.NewFromConfig),
		Waiters: map[string]WaiterFactory{
			"TableExists":    sdkWaiter[dynamodb.DescribeTableInput](dynamodb.NewTableExistsWaiter),
			"TableNotExists": sdkWaiter[dynamodb.DescribeTableInput](dynamodb.NewTableNotExistsWaiter),
		},
	})

	r.Register(Service{
		Name: "lambda",
		New:  sdkClient(lambda.NewFromConfig),
		Waiters: map[string]WaiterFactory{
			"FunctionActive":         sdkWaiter[lambda.GetFunctionConfigurationInput](lambda.NewFunctionActiveWaiter),
			"FunctionUpdated":        sdkWaiter[lambda.GetFunctionConfigurationInput](lambda.NewFunctionUpdatedWaiter),
			"PublishedVersionActive": sdkWaiter[lambda.GetFunctionConfigurationInput](lambda.NewPublishedVersionActiveWaiter),
			"FunctionActiveV2":       sdkWaiter[lambda.GetFunctionInput](lambda.NewFunctionActiveV2Waiter),
			"FunctionExists":         sdkWaiter[lambda.GetFunctionInput](lambda.NewFunctionExistsWaiter),
			"FunctionUpdatedV2":      sdkWaiter[lambda.GetFunctionInput](lambda.NewFunctionUpdatedV2Waiter),
		},
	})

	r.Register(Service{
		Name: "cloudwatch",
		New:  sdkClient(cloudwatch.NewFromConfig),
		Waiters: map[string]WaiterFactory{
			"AlarmExists":          sdkWaiter[cloudwatch.DescribeAlarmsInput](cloudwatch.NewAlarmExistsWaiter),
			"CompositeAlarmExists": sdkWaiter[cloudwatch.DescribeAlarmsInput](cloudwatch.NewCompositeAlarmExistsWaiter),
		},
	})

	r.Register(Service{
		Name: "ssm",
		New:  sdkClient(ssm.NewFromConfig),
		Waiters: map[string]WaiterFactory{
			"CommandExecuted": sdkWaiter[ssm.GetCommandInvocationInput](ssm.NewCommandExecutedWaiter),
		},
	})

	r.Register(Service{
		Name: "ecs",
		New:  sdkClient(ecs.NewFromConfig),
		Waiters: map[string]WaiterFactory{
			"TasksRunning":     sdkWaiter[ecs.DescribeTasksInput](ecs.NewTasksRunningWaiter),
			"TasksStopped":     sdkWaiter[ecs.DescribeTasksInput](ecs.NewTasksStoppedWaiter),
			"ServicesStable":   sdkWaiter[ecs.DescribeServicesInput](ecs.NewServicesStableWaiter),
			"ServicesInactive": sdkWaiter[ecs.DescribeServicesInput](ecs.NewServicesInactiveWaiter),
		},
	})

	r.Register(Service{Name: "sqs", New: sdkClient(sqs.NewFromConfig)})
	r.Register(Service{Name: "secretsmanager", New: sdkClient(secretsmanager.NewFromConfig)})
	r.Register(Service{Name: "cognito-idp", New: sdkClient(cognitoidentityprovider.NewFromConfig)})

	return r
}

// sdkClient adapts an SDK NewFromConfig function. Construction args are
// decoded onto the service Options before the client is returned.
func sdkClient[O any, C any](newFn func(aws.Config, ...func(*O)) C) Constructor {
	return func(cfg aws.Config, args map[string]any) (any, error) {
		// Decode once up front so bad args surface as an error rather than
		// being lost inside the option function.
		var check O
		if err := DecodeArgs(args, &check); err != nil {
			return nil, &ArgumentError{Target: "client options", Err: err}
		}

		client := newFn(cfg, func(o *O) {
			_ = DecodeArgs(args, o)
		})
		return client, nil
	}
}

// waitable is the shape shared by every generated SDK waiter
type waitable[I any, O any] interface {
	Wait(ctx context.Context, params *I, maxWaitDur time.Duration, optFns ...func(*O)) error
}

// sdkWaiter adapts a generated SDK waiter constructor. Waiter args accept
// Delay (seconds between polls) and MaxAttempts; any other keys are decoded
// onto the waiter options struct.
func sdkWaiter[I any, C any, O any, W waitable[I, O]](newFn func(C, ...func(*O)) W) WaiterFactory {
	return func(client any, args map[string]any) (Waiter, error) {
		api, ok := client.(C)
		if !ok {
			return nil, fmt.Errorf("client %T does not support this waiter", client)
		}

		settings, rest, err := splitWaiterSettings(args, defaultWaiterSettings())
		if err != nil {
			return nil, err
		}

		var check O
		if err := DecodeArgs(rest, &check); err != nil {
			return nil, &ArgumentError{Target: "waiter options", Err: err}
		}

		w := newFn(api, func(o *O) {
			_ = DecodeArgs(rest, o)
		})

		return &sdkWaiterAdapter[I, O]{waiter: w, settings: settings}, nil
	}
}

// waiterSettings mirrors the boto WaiterConfig
type waiterSettings struct {
	Delay       time.Duration
	MaxAttempts int
}

func defaultWaiterSettings() waiterSettings {
	return waiterSettings{
		Delay:       DefaultWaiterDelay,
		MaxAttempts: DefaultWaiterMaxAttempts,
	}
}

func (s waiterSettings) maxWait() time.Duration {
	return s.Delay * time.Duration(s.MaxAttempts)
}

// splitWaiterSettings pulls Delay and MaxAttempts out of args and returns the
// remaining keys untouched
func splitWaiterSettings(args map[string]any, settings waiterSettings) (waiterSettings, map[string]any, error) {
	rest := make(map[string]any, len(args))
	for key, value := range args {
		switch {
		case MatchName(key, "Delay"):
			seconds, err := cast.ToFloat64E(value)
			if err != nil || seconds <= 0 {
				return settings, nil, &ArgumentError{Target: "waiter Delay", Err: fmt.Errorf("must be a positive number of seconds, got %v", value)}
			}
			settings.Delay = time.Duration(seconds * float64(time.Second))
		case MatchName(key, "MaxAttempts"):
			attempts, err := cast.ToIntE(value)
			if err != nil || attempts <= 0 {
				return settings, nil, &ArgumentError{Target: "waiter MaxAttempts", Err: fmt.Errorf("must be a positive integer, got %v", value)}
			}
			settings.MaxAttempts = attempts
		default:
			rest[key] = value
		}
	}
	return settings, rest, nil
}

// sdkWaiterAdapter runs an SDK waiter with keyword-style wait args
type sdkWaiterAdapter[I any, O any] struct {
	waiter   waitable[I, O]
	settings waiterSettings
}

// Wait decodes args onto the waiter's input struct and blocks until the
// waiter succeeds, fails, or runs out of attempts. A WaiterConfig key in args
// overrides the delay and attempt budget for this call.
func (a *sdkWaiterAdapter[I, O]) Wait(ctx context.Context, args map[string]any) error {
	settings := a.settings
	params := maps.Clone(args)
	if params == nil {
		params = map[string]any{}
	}

	for key, value := range params {
		if !MatchName(key, "WaiterConfig") {
			continue
		}
		cfg, ok := value.(map[string]any)
		if !ok {
			return &ArgumentError{Target: "WaiterConfig", Err: fmt.Errorf("must be a mapping, got %T", value)}
		}
		var err error
		var unknown map[string]any
		settings, unknown, err = splitWaiterSettings(cfg, settings)
		if err != nil {
			return err
		}
		if len(unknown) > 0 {
			return &ArgumentError{Target: "WaiterConfig", Err: fmt.Errorf("unknown keys %v", sortedKeys(unknown))}
		}
		delete(params, key)
	}

	input := new(I)
	if err := DecodeArgs(params, input); err != nil {
		return &ArgumentError{Target: "waiter input", Err: err}
	}

	delay := map[string]any{"MinDelay": settings.Delay, "MaxDelay": settings.Delay}
	return a.waiter.Wait(ctx, input, settings.maxWait(), func(o *O) {
		_ = DecodeArgs(delay, o)
	})
}
