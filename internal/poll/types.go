package poll

import (
	"fmt"
	"time"

	"github.com/jarrod-lowe/aws-client-steps/internal/invoke"
	"github.com/jarrod-lowe/aws-client-steps/internal/service"
)

// Default custom polling settings
const (
	DefaultInterval    = 30 * time.Second
	DefaultMaxAttempts = 10
)

// Policy governs one polling loop
type Policy struct {
	Interval      time.Duration // Sleep between attempts
	MaxAttempts   int           // Number of comparisons before giving up
	FailOnTimeout bool          // Return WaitTimeoutError when attempts run out
}

// DefaultPolicy polls every 30 seconds, 10 times, failing on timeout
func DefaultPolicy() Policy {
	return Policy{
		Interval:      DefaultInterval,
		MaxAttempts:   DefaultMaxAttempts,
		FailOnTimeout: true,
	}
}

// Validate checks the policy can drive a loop
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("maxAttempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.Interval <= 0 {
		return fmt.Errorf("pollInterval must be positive, got %v", p.Interval)
	}
	return nil
}

// Outcome is how a polling loop finished
type Outcome int

const (
	// Matched means the field reached the expected value
	Matched Outcome = iota
	// TimedOutFailed means attempts ran out and the policy fails on timeout
	TimedOutFailed
	// TimedOutTolerated means attempts ran out and the policy tolerates it
	TimedOutTolerated
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case TimedOutFailed:
		return "timed out (failed)"
	case TimedOutTolerated:
		return "timed out (tolerated)"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// TimedOut reports whether the loop ran out of attempts
func (o Outcome) TimedOut() bool {
	return o == TimedOutFailed || o == TimedOutTolerated
}

// Request is one polling loop
type Request struct {
	Service  service.Descriptor
	Call     invoke.Call
	Path     string // Path expression selecting the field to compare
	Expected any    // Rendered to its canonical text before comparing
	Policy   Policy
}

// Result describes a finished polling loop
type Result struct {
	Outcome   Outcome
	Attempts  int
	LastValue string // Rendered value from the final attempt
}

// WaitTimeoutError is returned when attempts run out and the policy fails on
// timeout
type WaitTimeoutError struct {
	Service   string
	Operation string
	Path      string
	Expected  string
	LastValue string
	Attempts  int
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("aws %s %s did not return %s within %d retries (%s was %q)",
		e.Service, e.Operation, e.Expected, e.Attempts, e.Path, e.LastValue)
}
