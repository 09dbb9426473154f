package steps

import (
	"context"
	"log/slog"

	"github.com/jarrod-lowe/aws-client-steps/internal/contextargs"
	"github.com/jarrod-lowe/aws-client-steps/internal/metrics"
	"github.com/jarrod-lowe/aws-client-steps/internal/waiter"
)

const waitStepName = "steps.wait"

// Wait runs the SDK waiter described by awsWaitIn. Defaults are a 6 second
// delay and 100 attempts; waiterArgs Delay and MaxAttempts override them.
func (r *Runner) Wait(ctx context.Context, c contextargs.Context) error {
	waitIn, err := c.GetMap(contextargs.WaitInKey, waitStepName)
	if err != nil {
		return err
	}

	prepared, err := contextargs.PrepareWait(waitIn, c, waitStepName)
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Waiting on aws service",
		slog.String("service", prepared.ServiceName),
		slog.String("waiter", prepared.WaiterName),
	)

	err = r.waiter.WaitNative(ctx, waiter.Request{
		Service:    prepared.ServiceName,
		Waiter:     prepared.WaiterName,
		ClientArgs: prepared.ConstructionArgs,
		WaiterArgs: prepared.WaiterArgs,
		WaitArgs:   prepared.WaitArgs,
	})
	if err != nil {
		dimensions := map[string]string{"Service": prepared.ServiceName, "Waiter": prepared.WaiterName}
		if pubErr := r.metrics.PublishMetric(ctx, metrics.NativeWaitFails, 1, dimensions); pubErr != nil {
			r.logger.WarnContext(ctx, "Failed to publish wait metrics",
				slog.String("error", pubErr.Error()))
		}
		return err
	}
	return nil
}
