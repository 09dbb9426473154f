package steps

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jarrod-lowe/aws-client-steps/internal/contextargs"
)

const (
	clientStepName = "steps.client"

	// ClientOutKey receives the operation response
	ClientOutKey = "awsClientOut"
)

// Client runs any service operation described by awsClientIn and writes the
// response to awsClientOut. The response may be nil. A streamed Body, as from
// s3 get_object, is read into bytes and closed before it is stored.
func (r *Runner) Client(ctx context.Context, c contextargs.Context) error {
	clientIn, err := c.GetMap(contextargs.ClientInKey, clientStepName)
	if err != nil {
		return err
	}

	prepared, err := contextargs.PrepareCall(clientIn, c, clientStepName)
	if err != nil {
		return err
	}

	response, err := r.invoker.Invoke(ctx, prepared.Descriptor(), prepared.Call())
	if err != nil {
		return err
	}

	if err := drainStreamingBody(response); err != nil {
		return err
	}

	c[ClientOutKey] = response

	r.logger.InfoContext(ctx, "Executed operation",
		slog.String("service", prepared.ServiceName),
		slog.String("operation", prepared.OperationName),
	)
	return nil
}

// drainStreamingBody replaces a streamed Body in the response with its bytes
func drainStreamingBody(response any) error {
	out, ok := response.(map[string]any)
	if !ok {
		return nil
	}
	if _, ok := out["Body"].(io.Reader); !ok {
		return nil
	}
	body, _, err := readBody(out["Body"])
	if err != nil {
		return fmt.Errorf("failed to read response Body: %w", err)
	}
	out["Body"] = body
	return nil
}
