// Package poll repeatedly invokes a service operation until a field in the
// response reaches an expected value or the attempt budget runs out.
package poll

import (
	"context"
	"log/slog"
	"time"

	"github.com/jarrod-lowe/aws-client-steps/internal/invoke"
	"github.com/jarrod-lowe/aws-client-steps/internal/pathexpr"
	"github.com/jarrod-lowe/aws-client-steps/internal/steptrace"
)

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poller runs field-matching wait loops. It holds no per-loop state, so one
// Poller may run many loops concurrently.
type Poller struct {
	invoker invoke.Invoker
	sleep   Sleeper
	logger  *slog.Logger
}

// Option configures a Poller
type Option func(*Poller)

// WithSleeper replaces the sleep between attempts
func WithSleeper(sleep Sleeper) Option {
	return func(p *Poller) {
		p.sleep = sleep
	}
}

// WithLogger sets the poller's logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

// New creates a Poller over invoker
func New(invoker invoke.Invoker, opts ...Option) *Poller {
	p := &Poller{
		invoker: invoker,
		sleep:   SleepContext,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PollUntil invokes req.Call until the value at req.Path, rendered to text,
// equals req.Expected rendered the same way.
//
// The first attempt runs immediately and the poller sleeps only between
// attempts. Invocation and path errors end the loop at once and are not
// counted as attempts. When attempts run out the Result says whether the
// timeout was tolerated; a failing timeout also returns a WaitTimeoutError.
func (p *Poller) PollUntil(ctx context.Context, req Request) (*Result, error) {
	if err := req.Policy.Validate(); err != nil {
		return nil, err
	}

	expr, err := pathexpr.Compile(req.Path)
	if err != nil {
		return nil, err
	}

	expected := pathexpr.Render(req.Expected)
	result := &Result{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		response, err := p.invoker.Invoke(ctx, req.Service, req.Call)
		if err != nil {
			return nil, err
		}

		actual, err := expr.Evaluate(response)
		if err != nil {
			return nil, err
		}

		result.Attempts++
		result.LastValue = actual

		p.logger.InfoContext(ctx, "Polled field value",
			slog.String("service", req.Service.Name),
			slog.String("operation", req.Call.Name),
			slog.String("field", req.Path),
			slog.String("value", actual),
			slog.Int("attempt", result.Attempts),
		)
		steptrace.AddEvent(ctx, "poll.attempt",
			steptrace.Attempt(result.Attempts),
			steptrace.Service(req.Service.Name),
			steptrace.Operation(req.Call.Name),
		)

		if actual == expected {
			result.Outcome = Matched
			p.logger.InfoContext(ctx, "Required value reached",
				slog.String("service", req.Service.Name),
				slog.String("operation", req.Call.Name),
				slog.String("expected", expected),
				slog.Int("attempts", result.Attempts),
			)
			return result, nil
		}

		if result.Attempts >= req.Policy.MaxAttempts {
			break
		}

		p.logger.DebugContext(ctx, "Required value not reached, waiting",
			slog.Duration("interval", req.Policy.Interval))

		if err := p.sleep(ctx, req.Policy.Interval); err != nil {
			return nil, err
		}
	}

	if !req.Policy.FailOnTimeout {
		result.Outcome = TimedOutTolerated
		p.logger.WarnContext(ctx, "Required value not reached, continuing because errorOnWaitTimeout is false",
			slog.String("service", req.Service.Name),
			slog.String("operation", req.Call.Name),
			slog.String("expected", expected),
			slog.Int("attempts", result.Attempts),
		)
		return result, nil
	}

	result.Outcome = TimedOutFailed
	p.logger.ErrorContext(ctx, "Required value not reached within attempt budget",
		slog.String("service", req.Service.Name),
		slog.String("operation", req.Call.Name),
		slog.String("expected", expected),
		slog.Int("attempts", result.Attempts),
	)
	return result, &WaitTimeoutError{
		Service:   req.Service.Name,
		Operation: req.Call.Name,
		Path:      req.Path,
		Expected:  expected,
		LastValue: result.LastValue,
		Attempts:  result.Attempts,
	}
}
