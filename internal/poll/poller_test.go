package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jarrod-lowe/aws-client-steps/internal/invoke"
	"github.com/jarrod-lowe/aws-client-steps/internal/pathexpr"
	"github.com/jarrod-lowe/aws-client-steps/internal/service"
)

// mockInvoker returns queued responses in order, repeating the last one
type mockInvoker struct {
	responses []any
	invokeErr error
	calls     int
}

func (m *mockInvoker) Invoke(ctx context.Context, desc service.Descriptor, call invoke.Call) (any, error) {
	m.calls++
	if m.invokeErr != nil {
		return nil, m.invokeErr
	}
	if len(m.responses) == 0 {
		return nil, nil
	}
	i := m.calls - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

// recordingSleeper records requested sleeps without blocking
type recordingSleeper struct {
	sleeps []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return nil
}

func statusResponse(status string) map[string]any {
	return map[string]any{"Table": map[string]any{"TableStatus": status}}
}

func newRequest(path string, expected any, policy Policy) Request {
	return Request{
		Service:  service.Descriptor{Name: "dynamodb"},
		Call:     invoke.Call{Name: "describe_table", Args: map[string]any{"TableName": "accounts"}},
		Path:     path,
		Expected: expected,
		Policy:   policy,
	}
}

func TestPollUntil_MatchesOnNthResponse(t *testing.T) {
	invoker := &mockInvoker{responses: []any{
		statusResponse("CREATING"),
		statusResponse("CREATING"),
		statusResponse("ACTIVE"),
	}}
	sleeper := &recordingSleeper{}
	poller := New(invoker, WithSleeper(sleeper.sleep))

	policy := Policy{Interval: 5 * time.Second, MaxAttempts: 10, FailOnTimeout: true}
	result, err := poller.PollUntil(context.Background(), newRequest("{Table[TableStatus]}", "ACTIVE", policy))
	if err != nil {
		t.Fatalf("PollUntil returned error: %v", err)
	}

	if result.Outcome != Matched {
		t.Errorf("expected Matched, got %v", result.Outcome)
	}
	if invoker.calls != 3 {
		t.Errorf("expected 3 invocations, got %d", invoker.calls)
	}
	if result.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", result.Attempts)
	}
	if len(sleeper.sleeps) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(sleeper.sleeps))
	}
	for _, d := range sleeper.sleeps {
		if d != 5*time.Second {
			t.Errorf("expected 5s sleep, got %v", d)
		}
	}
}

func TestPollUntil_TimeoutFails(t *testing.T) {
	invoker := &mockInvoker{responses: []any{statusResponse("CREATING")}}
	sleeper := &recordingSleeper{}
	poller := New(invoker, WithSleeper(sleeper.sleep))

	policy := Policy{Interval: time.Second, MaxAttempts: 10, FailOnTimeout: true}
	result, err := poller.PollUntil(context.Background(), newRequest("{Table[TableStatus]}", "ACTIVE", policy))

	var timeoutErr *WaitTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected WaitTimeoutError, got %v", err)
	}
	if timeoutErr.Attempts != 10 {
		t.Errorf("expected 10 attempts in error, got %d", timeoutErr.Attempts)
	}
	if timeoutErr.Service != "dynamodb" || timeoutErr.Operation != "describe_table" || timeoutErr.Expected != "ACTIVE" {
		t.Errorf("unexpected error context: %+v", timeoutErr)
	}
	if timeoutErr.LastValue != "CREATING" {
		t.Errorf("expected last value 'CREATING', got '%s'", timeoutErr.LastValue)
	}
	if result == nil || result.Outcome != TimedOutFailed {
		t.Errorf("expected TimedOutFailed result, got %+v", result)
	}
	if invoker.calls != 10 {
		t.Errorf("expected 10 invocations, got %d", invoker.calls)
	}
	if len(sleeper.sleeps) != 9 {
		t.Errorf("expected 9 sleeps, got %d", len(sleeper.sleeps))
	}
}

func TestPollUntil_TimeoutTolerated(t *testing.T) {
	invoker := &mockInvoker{responses: []any{statusResponse("CREATING")}}
	sleeper := &recordingSleeper{}
	poller := New(invoker, WithSleeper(sleeper.sleep))

	policy := Policy{Interval: time.Second, MaxAttempts: 10, FailOnTimeout: false}
	result, err := poller.PollUntil(context.Background(), newRequest("{Table[TableStatus]}", "ACTIVE", policy))
	if err != nil {
		t.Fatalf("PollUntil returned error: %v", err)
	}

	if result.Outcome != TimedOutTolerated {
		t.Errorf("expected TimedOutTolerated, got %v", result.Outcome)
	}
	if !result.Outcome.TimedOut() {
		t.Error("expected TimedOut to be true")
	}
	if invoker.calls != 10 {
		t.Errorf("expected 10 invocations, got %d", invoker.calls)
	}
	if len(sleeper.sleeps) != 9 {
		t.Errorf("expected 9 sleeps, got %d", len(sleeper.sleeps))
	}
}

func TestPollUntil_BooleanMatchOnFirstAttempt(t *testing.T) {
	invoker := &mockInvoker{responses: []any{map[string]any{"rk2": false}}}
	sleeper := &recordingSleeper{}
	poller := New(invoker, WithSleeper(sleeper.sleep))

	policy := Policy{Interval: 99 * time.Second, MaxAttempts: 1, FailOnTimeout: false}
	result, err := poller.PollUntil(context.Background(), newRequest("{rk2}", false, policy))
	if err != nil {
		t.Fatalf("PollUntil returned error: %v", err)
	}

	if result.Outcome != Matched {
		t.Errorf("expected Matched, got %v", result.Outcome)
	}
	if invoker.calls != 1 {
		t.Errorf("expected 1 invocation, got %d", invoker.calls)
	}
	if len(sleeper.sleeps) != 0 {
		t.Errorf("expected no sleeps, got %d", len(sleeper.sleeps))
	}
}

func TestPollUntil_TextualComparison(t *testing.T) {
	cases := []struct {
		response any
		expected any
	}{
		{map[string]any{"v": 123}, "123"},
		{map[string]any{"v": "123"}, 123},
		{map[string]any{"v": 123.4}, "123.4"},
		{map[string]any{"v": "false"}, false},
		{map[string]any{"v": int32(7)}, 7.0},
	}

	for _, c := range cases {
		invoker := &mockInvoker{responses: []any{c.response}}
		poller := New(invoker, WithSleeper((&recordingSleeper{}).sleep))

		policy := Policy{Interval: time.Second, MaxAttempts: 1, FailOnTimeout: true}
		result, err := poller.PollUntil(context.Background(), newRequest("{v}", c.expected, policy))
		if err != nil {
			t.Errorf("response %v expected %v: unexpected error %v", c.response, c.expected, err)
			continue
		}
		if result.Outcome != Matched {
			t.Errorf("response %v expected %v: got %v", c.response, c.expected, result.Outcome)
		}
	}
}

func TestPollUntil_InvocationErrorNotRetried(t *testing.T) {
	invokeErr := &invoke.OperationExecutionError{Service: "dynamodb", Operation: "DescribeTable", Err: errors.New("ResourceNotFoundException")}
	invoker := &mockInvoker{invokeErr: invokeErr}
	sleeper := &recordingSleeper{}
	poller := New(invoker, WithSleeper(sleeper.sleep))

	_, err := poller.PollUntil(context.Background(), newRequest("{Table[TableStatus]}", "ACTIVE", DefaultPolicy()))

	if !errors.Is(err, invokeErr) {
		t.Fatalf("expected invocation error, got %v", err)
	}
	if invoker.calls != 1 {
		t.Errorf("expected 1 invocation, got %d", invoker.calls)
	}
	if len(sleeper.sleeps) != 0 {
		t.Errorf("expected no sleeps, got %d", len(sleeper.sleeps))
	}
}

func TestPollUntil_MissingFieldFailsFast(t *testing.T) {
	invoker := &mockInvoker{responses: []any{map[string]any{"Other": "x"}}}
	sleeper := &recordingSleeper{}
	poller := New(invoker, WithSleeper(sleeper.sleep))

	_, err := poller.PollUntil(context.Background(), newRequest("{Table[TableStatus]}", "ACTIVE", DefaultPolicy()))

	var notFound *pathexpr.PathNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected PathNotFoundError, got %v", err)
	}
	if invoker.calls != 1 {
		t.Errorf("expected 1 invocation, got %d", invoker.calls)
	}
	if len(sleeper.sleeps) != 0 {
		t.Errorf("expected no sleeps, got %d", len(sleeper.sleeps))
	}
}

func TestPollUntil_EmptyResponseIsPathError(t *testing.T) {
	invoker := &mockInvoker{}
	poller := New(invoker, WithSleeper((&recordingSleeper{}).sleep))

	_, err := poller.PollUntil(context.Background(), newRequest("{Table[TableStatus]}", "ACTIVE", DefaultPolicy()))

	var notFound *pathexpr.PathNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected PathNotFoundError, got %v", err)
	}
}

func TestPollUntil_InvalidPath_ReturnsSyntaxError(t *testing.T) {
	invoker := &mockInvoker{responses: []any{statusResponse("ACTIVE")}}
	poller := New(invoker, WithSleeper((&recordingSleeper{}).sleep))

	_, err := poller.PollUntil(context.Background(), newRequest("TableStatus", "ACTIVE", DefaultPolicy()))

	var syntaxErr *pathexpr.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
	if invoker.calls != 0 {
		t.Errorf("expected no invocations, got %d", invoker.calls)
	}
}

func TestPollUntil_InvalidPolicy(t *testing.T) {
	invoker := &mockInvoker{responses: []any{statusResponse("ACTIVE")}}
	poller := New(invoker, WithSleeper((&recordingSleeper{}).sleep))

	policy := Policy{Interval: time.Second, MaxAttempts: 0, FailOnTimeout: true}
	if _, err := poller.PollUntil(context.Background(), newRequest("{Table[TableStatus]}", "ACTIVE", policy)); err == nil {
		t.Fatal("expected error for zero maxAttempts, got nil")
	}
	if invoker.calls != 0 {
		t.Errorf("expected no invocations, got %d", invoker.calls)
	}
}

func TestPolicy_Validate_RejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		policy := Policy{Interval: interval, MaxAttempts: 3}
		if err := policy.Validate(); err == nil {
			t.Errorf("expected error for interval %v, got nil", interval)
		}
	}

	if err := (Policy{Interval: time.Millisecond, MaxAttempts: 1}).Validate(); err != nil {
		t.Errorf("expected small positive interval to be valid, got %v", err)
	}
}

func TestPollUntil_ZeroIntervalMakesNoCalls(t *testing.T) {
	invoker := &mockInvoker{responses: []any{statusResponse("CREATING")}}
	poller := New(invoker, WithSleeper((&recordingSleeper{}).sleep))

	policy := Policy{Interval: 0, MaxAttempts: 5, FailOnTimeout: true}
	if _, err := poller.PollUntil(context.Background(), newRequest("{Table[TableStatus]}", "ACTIVE", policy)); err == nil {
		t.Fatal("expected error for zero pollInterval, got nil")
	}
	if invoker.calls != 0 {
		t.Errorf("expected no invocations, got %d", invoker.calls)
	}
}

func TestPollUntil_CancelledContextStopsLoop(t *testing.T) {
	invoker := &mockInvoker{responses: []any{statusResponse("CREATING")}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleeps := 0
	sleeper := func(ctx context.Context, d time.Duration) error {
		sleeps++
		if sleeps == 2 {
			cancel()
		}
		return nil
	}
	poller := New(invoker, WithSleeper(sleeper))

	_, err := poller.PollUntil(ctx, newRequest("{Table[TableStatus]}", "ACTIVE", DefaultPolicy()))

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if invoker.calls != 2 {
		t.Errorf("expected 2 invocations before cancellation, got %d", invoker.calls)
	}
}

func TestSleepContext_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SleepContext(ctx, time.Hour)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("expected SleepContext to return promptly")
	}
}

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()

	if policy.Interval != 30*time.Second || policy.MaxAttempts != 10 || !policy.FailOnTimeout {
		t.Errorf("unexpected default policy: %+v", policy)
	}
}

func TestOutcome_String(t *testing.T) {
	if Matched.String() != "matched" {
		t.Errorf("unexpected Matched string %q", Matched.String())
	}
	if TimedOutTolerated.String() != "timed out (tolerated)" {
		t.Errorf("unexpected TimedOutTolerated string %q", TimedOutTolerated.String())
	}
}
