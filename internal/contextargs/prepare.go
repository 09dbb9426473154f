package contextargs

import (
	"fmt"
	"strings"

	"github.com/jarrod-lowe/aws-client-steps/internal/invoke"
	"github.com/jarrod-lowe/aws-client-steps/internal/service"
)

// Keys read from step configuration
const (
	ClientInKey = "awsClientIn"
	ServiceName = "serviceName"
	MethodName  = "methodName"
	ClientArgs  = "clientArgs"
	MethodArgs  = "methodArgs"
	WaitInKey   = "awsWaitIn"
	WaiterName  = "waiterName"
	WaiterArgs  = "waiterArgs"
	WaitArgs    = "waitArgs"
)

// PreparedCall is a validated, substituted service call
type PreparedCall struct {
	ServiceName      string
	OperationName    string
	ConstructionArgs map[string]any
	CallArgs         map[string]any
}

// Descriptor returns the service half of the call
func (p *PreparedCall) Descriptor() service.Descriptor {
	return service.Descriptor{Name: p.ServiceName, ConstructionArgs: p.ConstructionArgs}
}

// Call returns the operation half of the call
func (p *PreparedCall) Call() invoke.Call {
	return invoke.Call{Name: p.OperationName, Args: p.CallArgs}
}

// PrepareCall validates an awsClientIn mapping and substitutes its values
// against source. serviceName and methodName must be present and non-blank;
// they are checked before any substitution happens. clientIn is not modified.
func PrepareCall(clientIn map[string]any, source Context, caller string) (*PreparedCall, error) {
	serviceName, err := requireString(clientIn, ClientInKey, ServiceName, caller)
	if err != nil {
		return nil, err
	}
	methodName, err := requireString(clientIn, ClientInKey, MethodName, caller)
	if err != nil {
		return nil, err
	}

	prepared := &PreparedCall{}
	if prepared.ServiceName, err = formatName(source, serviceName, ClientInKey, ServiceName, caller); err != nil {
		return nil, err
	}
	if prepared.OperationName, err = formatName(source, methodName, ClientInKey, MethodName, caller); err != nil {
		return nil, err
	}
	if prepared.ConstructionArgs, err = formattedMapping(source, clientIn, ClientArgs); err != nil {
		return nil, err
	}
	if prepared.CallArgs, err = formattedMapping(source, clientIn, MethodArgs); err != nil {
		return nil, err
	}

	return prepared, nil
}

// PreparedWait is a validated, substituted native waiter request
type PreparedWait struct {
	ServiceName      string
	WaiterName       string
	ConstructionArgs map[string]any
	WaiterArgs       map[string]any
	WaitArgs         map[string]any
}

// PrepareWait validates an awsWaitIn mapping and substitutes its values
// against source. clientArgs is optional and configures the client the
// waiter runs on.
func PrepareWait(waitIn map[string]any, source Context, caller string) (*PreparedWait, error) {
	serviceName, err := requireString(waitIn, WaitInKey, ServiceName, caller)
	if err != nil {
		return nil, err
	}
	waiterName, err := requireString(waitIn, WaitInKey, WaiterName, caller)
	if err != nil {
		return nil, err
	}

	prepared := &PreparedWait{}
	if prepared.ServiceName, err = formatName(source, serviceName, WaitInKey, ServiceName, caller); err != nil {
		return nil, err
	}
	if prepared.WaiterName, err = formatName(source, waiterName, WaitInKey, WaiterName, caller); err != nil {
		return nil, err
	}
	if prepared.ConstructionArgs, err = formattedMapping(source, waitIn, ClientArgs); err != nil {
		return nil, err
	}
	if prepared.WaiterArgs, err = formattedMapping(source, waitIn, WaiterArgs); err != nil {
		return nil, err
	}
	if prepared.WaitArgs, err = formattedMapping(source, waitIn, WaitArgs); err != nil {
		return nil, err
	}

	return prepared, nil
}

// requireString returns parent[field] as a string. Absent keys give
// MissingFieldError; nil, non-string or blank values give EmptyValueError.
func requireString(parent map[string]any, parentName, field, caller string) (string, error) {
	value, ok := parent[field]
	if !ok {
		return "", &MissingFieldError{Parent: parentName, Field: field, Caller: caller}
	}
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", &EmptyValueError{Parent: parentName, Field: field, Caller: caller}
	}
	return s, nil
}

func formatName(source Context, name, parentName, field, caller string) (string, error) {
	formatted, err := source.Format(name)
	if err != nil {
		return "", err
	}
	formatted = strings.TrimSpace(formatted)
	if formatted == "" {
		return "", &EmptyValueError{Parent: parentName, Field: field, Caller: caller}
	}
	return formatted, nil
}

func formattedMapping(source Context, parent map[string]any, field string) (map[string]any, error) {
	value, ok := parent[field]
	if !ok || value == nil {
		return nil, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping, got %T", field, value)
	}
	return source.FormatMap(m)
}
