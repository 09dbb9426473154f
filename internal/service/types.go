package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// Descriptor identifies how to acquire a service client
type Descriptor struct {
	Name             string         // Service name, e.g. "s3", "dynamodb", "cognito-idp"
	ConstructionArgs map[string]any // Optional client construction parameters
}

// Constructor builds a service client from an AWS config and the construction
// args left over after the config-level keys were applied
type Constructor func(cfg aws.Config, args map[string]any) (any, error)

// Waiter is a pre-built polling routine owned by the service's client library
type Waiter interface {
	Wait(ctx context.Context, args map[string]any) error
}

// WaiterFactory builds a named waiter for a client
type WaiterFactory func(client any, args map[string]any) (Waiter, error)

// Service is a registry entry
type Service struct {
	Name    string
	New     Constructor
	Waiters map[string]WaiterFactory // Keyed by canonical waiter name, e.g. "BucketExists"
}

// Default native waiter polling settings
const (
	DefaultWaiterDelay       = 6 * time.Second
	DefaultWaiterMaxAttempts = 100
)

// UnknownServiceError is returned when a service name has no registry entry
type UnknownServiceError struct {
	Service string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q", e.Service)
}

// UnknownWaiterError is returned when a waiter name does not exist on a service
type UnknownWaiterError struct {
	Service string
	Waiter  string
}

func (e *UnknownWaiterError) Error() string {
	return fmt.Sprintf("service %q has no waiter %q", e.Service, e.Waiter)
}

// ArgumentError is returned when keyword args cannot be applied to a target struct
type ArgumentError struct {
	Target string // What the args were being applied to
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Target, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}
