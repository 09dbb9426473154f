package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jarrod-lowe/aws-client-steps/internal/contextargs"
	"github.com/jarrod-lowe/aws-client-steps/internal/metrics"
	"github.com/jarrod-lowe/aws-client-steps/internal/poll"
)

const (
	waitForStepName = "steps.waitfor"

	// WaitForKey holds the custom wait configuration
	WaitForKey = "awsWaitFor"
	// WaitForTimedOutKey receives whether the custom wait ran out of attempts
	WaitForTimedOutKey = "awsWaitForTimedOut"
)

// WaitFor polls the operation in awsWaitFor.awsClientIn until waitForField
// equals toBe. Every value under awsWaitFor is substituted against the
// context except waitForField, which is evaluated against each response.
//
// awsWaitForTimedOut is set to false on a match and true when attempts run
// out, whether or not errorOnWaitTimeout makes that an error.
func (r *Runner) WaitFor(ctx context.Context, c contextargs.Context) (*poll.Result, error) {
	waitFor, err := c.GetMap(WaitForKey, waitForStepName)
	if err != nil {
		return nil, err
	}

	clientIn, err := nestedMap(waitFor, WaitForKey, contextargs.ClientInKey, waitForStepName)
	if err != nil {
		return nil, err
	}

	prepared, err := contextargs.PrepareCall(clientIn, c, waitForStepName)
	if err != nil {
		return nil, err
	}

	req, err := pollRequest(waitFor, c)
	if err != nil {
		return nil, err
	}
	req.Service = prepared.Descriptor()
	req.Call = prepared.Call()

	result, err := r.poller.PollUntil(ctx, req)
	if result != nil {
		c[WaitForTimedOutKey] = result.Outcome.TimedOut()
		r.publishWaitMetrics(ctx, prepared, result)
	}
	if err != nil {
		return result, err
	}

	if result.Outcome == poll.Matched {
		r.logger.InfoContext(ctx, "Wait condition reached, pipeline will now continue",
			slog.String("service", prepared.ServiceName),
			slog.String("operation", prepared.OperationName),
		)
	}
	return result, nil
}

// pollRequest reads the poll settings from awsWaitFor
func pollRequest(waitFor map[string]any, c contextargs.Context) (poll.Request, error) {
	var req poll.Request

	field, ok := waitFor["waitForField"]
	if !ok {
		return req, &contextargs.MissingFieldError{Parent: WaitForKey, Field: "waitForField", Caller: waitForStepName}
	}
	path, ok := field.(string)
	if !ok || path == "" {
		return req, &contextargs.EmptyValueError{Parent: WaitForKey, Field: "waitForField", Caller: waitForStepName}
	}
	req.Path = path

	toBe, ok := waitFor["toBe"]
	if !ok {
		return req, &contextargs.MissingFieldError{Parent: WaitForKey, Field: "toBe", Caller: waitForStepName}
	}
	if s, isString := toBe.(string); isString {
		formatted, err := c.Format(s)
		if err != nil {
			return req, err
		}
		toBe = formatted
	}
	req.Expected = toBe

	policy := poll.DefaultPolicy()

	if v, ok := waitFor["pollInterval"]; ok {
		seconds, err := c.GetFormattedAsFloat(v)
		if err != nil {
			return req, fmt.Errorf("pollInterval: %w", err)
		}
		policy.Interval = time.Duration(seconds * float64(time.Second))
	}
	if v, ok := waitFor["maxAttempts"]; ok {
		attempts, err := c.GetFormattedAsInt(v)
		if err != nil {
			return req, fmt.Errorf("maxAttempts: %w", err)
		}
		policy.MaxAttempts = attempts
	}
	if v, ok := waitFor["errorOnWaitTimeout"]; ok {
		failOnTimeout, err := c.GetFormattedAsBool(v)
		if err != nil {
			return req, fmt.Errorf("errorOnWaitTimeout: %w", err)
		}
		policy.FailOnTimeout = failOnTimeout
	}

	req.Policy = policy
	return req, nil
}

func (r *Runner) publishWaitMetrics(ctx context.Context, prepared *contextargs.PreparedCall, result *poll.Result) {
	dimensions := map[string]string{
		"Service":   prepared.ServiceName,
		"Operation": prepared.OperationName,
	}

	timedOut := 0.0
	if result.Outcome.TimedOut() {
		timedOut = 1
	}

	err := errors.Join(
		r.metrics.PublishMetric(ctx, metrics.WaitForAttempts, float64(result.Attempts), dimensions),
		r.metrics.PublishMetric(ctx, metrics.WaitForTimedOut, timedOut, dimensions),
	)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to publish wait metrics",
			slog.String("error", err.Error()))
	}
}
