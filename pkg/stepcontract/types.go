// Package stepcontract defines the payloads exchanged with the step-runner
// Lambda. Callers (a state machine or another service) send a StepRequest
// and receive a StepResponse.
package stepcontract

// Step names accepted by the step runner
const (
	StepClient      = "client"
	StepWaitFor     = "waitfor"
	StepWait        = "wait"
	StepS3FetchJSON = "s3fetchjson"
	StepS3FetchYAML = "s3fetchyaml"
	StepS3JSONFetch = "s3jsonfetch"
	StepECSTaskWait = "ecstaskwait"
)

// StepRequest asks the runner to run one step against a context
type StepRequest struct {
	RequestID string         `json:"requestId,omitempty"` // Optional caller correlation ID
	Step      string         `json:"step"`
	Context   map[string]any `json:"context"`
}

// StepResponse is the context after the step ran. On failure Context holds
// whatever the step wrote before failing.
type StepResponse struct {
	RequestID string         `json:"requestId"`
	Context   map[string]any `json:"context"`
	Error     *StepError     `json:"error,omitempty"`
}

// StepError describes a failed step
type StepError struct {
	Type    string `json:"type"`    // Error category, e.g. "waitTimeout", "unknownOperation"
	Message string `json:"message"` // Human-readable detail
}
