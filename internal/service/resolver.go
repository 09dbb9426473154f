package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// CapabilityResolver turns a service descriptor into a live client capability
type CapabilityResolver interface {
	Resolve(ctx context.Context, desc Descriptor) (*Capability, error)
}

// ConfigLoader loads an AWS config. It has the signature of
// config.LoadDefaultConfig.
type ConfigLoader func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error)

// DefaultConfigLoader loads the default AWS config chain and instruments it
// for OpenTelemetry
func DefaultConfigLoader(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, err
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions)
	return cfg, nil
}

// Resolver builds a new client for every request. Nothing is cached between
// calls because each request may carry different construction args.
type Resolver struct {
	registry   *Registry
	loadConfig ConfigLoader
	logger     *slog.Logger
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithConfigLoader replaces the AWS config loader
func WithConfigLoader(loader ConfigLoader) ResolverOption {
	return func(r *Resolver) {
		r.loadConfig = loader
	}
}

// WithLogger sets the resolver's logger
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver over a registry. A nil registry means the
// default SDK catalog.
func NewResolver(registry *Registry, opts ...ResolverOption) *Resolver {
	if registry == nil {
		registry = DefaultRegistry()
	}
	r := &Resolver{
		registry:   registry,
		loadConfig: DefaultConfigLoader,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks up the named service, loads a fresh AWS config and constructs
// the client. Construction args that configure the session (region,
// credentials, endpoint, profile) are applied to the AWS config; the rest are
// decoded onto the client's Options struct.
func (r *Resolver) Resolve(ctx context.Context, desc Descriptor) (*Capability, error) {
	name := strings.TrimSpace(desc.Name)
	svc, ok := r.registry.Lookup(name)
	if !ok {
		return nil, &UnknownServiceError{Service: name}
	}

	session, rest, err := splitSessionArgs(desc.ConstructionArgs)
	if err != nil {
		return nil, err
	}

	cfg, err := r.loadConfig(ctx, session.loadOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if session.endpoint != "" {
		cfg.BaseEndpoint = aws.String(session.endpoint)
	}

	client, err := svc.New(cfg, rest)
	if err != nil {
		return nil, err
	}

	if len(desc.ConstructionArgs) == 0 {
		r.logger.DebugContext(ctx, "Client instantiated with no constructor args",
			slog.String("service", svc.Name))
	} else {
		r.logger.DebugContext(ctx, "Client instantiated with constructor args",
			slog.String("service", svc.Name))
	}

	return &Capability{service: svc, client: client}, nil
}

// sessionArgs are the construction args that belong to the AWS config rather
// than to a single client
type sessionArgs struct {
	region       string
	profile      string
	endpoint     string
	accessKeyID  string
	secretKey    string
	sessionToken string
}

func splitSessionArgs(args map[string]any) (sessionArgs, map[string]any, error) {
	var s sessionArgs
	rest := make(map[string]any, len(args))

	for key, value := range args {
		var dest *string
		switch {
		case MatchName(key, "RegionName"), MatchName(key, "Region"):
			dest = &s.region
		case MatchName(key, "ProfileName"):
			dest = &s.profile
		case MatchName(key, "EndpointURL"):
			dest = &s.endpoint
		case MatchName(key, "AWSAccessKeyID"):
			dest = &s.accessKeyID
		case MatchName(key, "AWSSecretAccessKey"):
			dest = &s.secretKey
		case MatchName(key, "AWSSessionToken"):
			dest = &s.sessionToken
		default:
			rest[key] = value
			continue
		}

		str, ok := value.(string)
		if !ok {
			return s, nil, &ArgumentError{Target: "client construction", Err: fmt.Errorf("%s must be a string, got %T", key, value)}
		}
		*dest = strings.TrimSpace(str)
	}

	if (s.accessKeyID == "") != (s.secretKey == "") {
		return s, nil, &ArgumentError{
			Target: "client construction",
			Err:    fmt.Errorf("aws_access_key_id and aws_secret_access_key must be given together"),
		}
	}

	return s, rest, nil
}

func (s sessionArgs) loadOptions() []func(*config.LoadOptions) error {
	var opts []func(*config.LoadOptions) error
	if s.region != "" {
		opts = append(opts, config.WithRegion(s.region))
	}
	if s.profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(s.profile))
	}
	if s.accessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.accessKeyID, s.secretKey, s.sessionToken),
		))
	}
	return opts
}

// Capability is a constructed client together with its waiter catalog
type Capability struct {
	service Service
	client  any
}

// NewCapability wraps an existing client. Used where the client was built
// outside a Resolver.
func NewCapability(svc Service, client any) *Capability {
	return &Capability{service: svc, client: client}
}

// Name returns the registry name of the service
func (c *Capability) Name() string {
	return c.service.Name
}

// Client returns the underlying SDK client
func (c *Capability) Client() any {
	return c.client
}

// Waiter builds the named pre-built waiter. Names may be given in boto style
// ("bucket_exists") or Go style ("BucketExists").
func (c *Capability) Waiter(name string, args map[string]any) (Waiter, error) {
	factory, ok := c.service.lookupWaiter(name)
	if !ok {
		return nil, &UnknownWaiterError{Service: c.service.Name, Waiter: name}
	}
	return factory(c.client, args)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
