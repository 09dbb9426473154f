package steps

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cast"

	"github.com/jarrod-lowe/aws-client-steps/internal/contextargs"
	"github.com/jarrod-lowe/aws-client-steps/internal/metrics"
	"github.com/jarrod-lowe/aws-client-steps/internal/waiter"
)

const (
	ecsTaskWaitStepName = "steps.ecstaskwait"

	// ECSClusterKey names the cluster hosting the tasks
	ECSClusterKey = "ecsCluster"
	// ECSTaskArnsKey holds the task IDs or ARNs to wait on
	ECSTaskArnsKey = "ecsTaskArns"
	// ECSTaskWaitDelayKey overrides the seconds between polls
	ECSTaskWaitDelayKey = "ecsTaskWaitDelay"
	// ECSTaskWaitMaxAttemptsKey overrides the attempt budget
	ECSTaskWaitMaxAttemptsKey = "ecsTaskWaitMaxAttempts"

	defaultECSTaskWaitDelay       = 6
	defaultECSTaskWaitMaxAttempts = 100
)

// ECSTaskWait blocks until every task in ecsTaskArns on ecsCluster has
// stopped, using the ecs tasks_stopped waiter
func (r *Runner) ECSTaskWait(ctx context.Context, c contextargs.Context) error {
	if err := c.AssertKeyHasValue(ECSClusterKey, ecsTaskWaitStepName); err != nil {
		return err
	}
	if err := c.AssertKeyHasValue(ECSTaskArnsKey, ecsTaskWaitStepName); err != nil {
		return err
	}

	rawCluster, ok := c[ECSClusterKey].(string)
	if !ok {
		return fmt.Errorf("%s must be a string for %s, got %T", ECSClusterKey, ecsTaskWaitStepName, c[ECSClusterKey])
	}
	cluster, err := c.Format(rawCluster)
	if err != nil {
		return err
	}

	formattedArns, err := c.FormatIterable(c[ECSTaskArnsKey])
	if err != nil {
		return err
	}
	arns, err := cast.ToStringSliceE(formattedArns)
	if err != nil || len(arns) == 0 {
		return fmt.Errorf("%s must be a non-empty list of task ids or arns for %s", ECSTaskArnsKey, ecsTaskWaitStepName)
	}

	delay := float64(defaultECSTaskWaitDelay)
	if raw, ok := c[ECSTaskWaitDelayKey]; ok && raw != nil {
		if delay, err = c.GetFormattedAsFloat(raw); err != nil {
			return fmt.Errorf("%s must be a number of seconds: %w", ECSTaskWaitDelayKey, err)
		}
	}

	maxAttempts := defaultECSTaskWaitMaxAttempts
	if raw, ok := c[ECSTaskWaitMaxAttemptsKey]; ok && raw != nil {
		if maxAttempts, err = c.GetFormattedAsInt(raw); err != nil {
			return fmt.Errorf("%s must be an integer: %w", ECSTaskWaitMaxAttemptsKey, err)
		}
	}

	r.logger.InfoContext(ctx, "Waiting on ecs tasks",
		slog.String("cluster", cluster),
		slog.Any("tasks", arns),
		slog.Float64("delay", delay),
		slog.Int("maxAttempts", maxAttempts),
	)

	err = r.waiter.WaitNative(ctx, waiter.Request{
		Service:    "ecs",
		Waiter:     "tasks_stopped",
		WaiterArgs: map[string]any{"Delay": delay, "MaxAttempts": maxAttempts},
		WaitArgs:   map[string]any{"cluster": cluster, "tasks": arns},
	})
	if err != nil {
		dimensions := map[string]string{"Service": "ecs", "Waiter": "tasks_stopped"}
		if pubErr := r.metrics.PublishMetric(ctx, metrics.NativeWaitFails, 1, dimensions); pubErr != nil {
			r.logger.WarnContext(ctx, "Failed to publish wait metrics",
				slog.String("error", pubErr.Error()))
		}
		return err
	}

	r.logger.InfoContext(ctx, "ecs tasks complete", slog.Any("tasks", arns))
	return nil
}
