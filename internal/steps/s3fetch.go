package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/jarrod-lowe/aws-client-steps/internal/contextargs"
	"github.com/jarrod-lowe/aws-client-steps/internal/invoke"
	"github.com/jarrod-lowe/aws-client-steps/internal/service"
)

const (
	s3FetchStepName = "steps.s3fetch"

	// S3FetchKey holds the object to fetch
	S3FetchKey = "s3Fetch"

	s3JSONFetchStepName = "steps.s3jsonfetch"

	// S3BucketKey and S3KeyKey name the object for the flat s3jsonfetch step
	S3BucketKey = "s3bucket"
	S3KeyKey    = "s3key"
)

// S3FetchJSON loads a JSON object from S3 into the context. With outKey the
// parsed document is written to that key; without it the document must be an
// object and is merged into the context root, overwriting existing keys.
func (r *Runner) S3FetchJSON(ctx context.Context, c contextargs.Context) error {
	return r.s3Fetch(ctx, c, "json", func(body []byte) (any, error) {
		var payload any
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
		return payload, nil
	})
}

// S3JSONFetch is the flat form of S3FetchJSON. It reads the bucket and key
// from s3bucket and s3key at the context root and merges the JSON object into
// the context.
func (r *Runner) S3JSONFetch(ctx context.Context, c contextargs.Context) error {
	args := make(map[string]any, 2)
	for field, key := range map[string]string{"Bucket": S3BucketKey, "Key": S3KeyKey} {
		if err := c.AssertKeyHasValue(key, s3JSONFetchStepName); err != nil {
			return err
		}
		raw, ok := c[key].(string)
		if !ok {
			return fmt.Errorf("%s must be a string for %s, got %T", key, s3JSONFetchStepName, c[key])
		}
		formatted, err := c.Format(raw)
		if err != nil {
			return err
		}
		args[field] = formatted
	}

	r.logger.InfoContext(ctx, "Retrieving s3 file", slog.Any("key", args["Key"]))

	body, err := r.getObjectBody(ctx, nil, args)
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("failed to parse json object: %w", err)
	}
	for k, v := range doc {
		c[k] = v
	}

	r.logger.InfoContext(ctx, "Loaded s3 document into context root", slog.String("format", "json"))
	return nil
}

// S3FetchYAML loads a YAML document from S3 into the context, following the
// same outKey rules as S3FetchJSON
func (r *Runner) S3FetchYAML(ctx context.Context, c contextargs.Context) error {
	return r.s3Fetch(ctx, c, "yaml", func(body []byte) (any, error) {
		var payload any
		if err := yaml.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
		return payload, nil
	})
}

func (r *Runner) s3Fetch(ctx context.Context, c contextargs.Context, format string, parse func([]byte) (any, error)) error {
	fetch, err := c.GetMap(S3FetchKey, s3FetchStepName)
	if err != nil {
		return err
	}

	methodArgs, err := nestedMap(fetch, S3FetchKey, contextargs.MethodArgs, s3FetchStepName)
	if err != nil {
		return err
	}
	methodArgs, err = c.FormatMap(methodArgs)
	if err != nil {
		return err
	}

	var clientArgs map[string]any
	if raw, ok := fetch[contextargs.ClientArgs]; ok && raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("%s in %s must be a mapping, got %T", contextargs.ClientArgs, S3FetchKey, raw)
		}
		if clientArgs, err = c.FormatMap(m); err != nil {
			return err
		}
	}

	body, err := r.getObjectBody(ctx, clientArgs, methodArgs)
	if err != nil {
		return err
	}

	payload, err := parse(body)
	if err != nil {
		return err
	}

	outKey, err := formattedOutKey(fetch, c)
	if err != nil {
		return err
	}

	if outKey != "" {
		c[outKey] = payload
		r.logger.InfoContext(ctx, "Loaded s3 document into context",
			slog.String("format", format),
			slog.String("key", outKey))
		return nil
	}

	doc, ok := payload.(map[string]any)
	if !ok {
		return fmt.Errorf("%s input should describe an object at the top level when outKey isn't specified, got %T", format, payload)
	}
	for k, v := range doc {
		c[k] = v
	}
	r.logger.InfoContext(ctx, "Loaded s3 document into context root",
		slog.String("format", format))
	return nil
}

// getObjectBody invokes s3 get_object and reads the streamed body
func (r *Runner) getObjectBody(ctx context.Context, clientArgs, methodArgs map[string]any) ([]byte, error) {
	response, err := r.invoker.Invoke(ctx,
		service.Descriptor{Name: "s3", ConstructionArgs: clientArgs},
		invoke.Call{Name: "get_object", Args: methodArgs},
	)
	if err != nil {
		return nil, err
	}

	out, ok := response.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("get_object returned no response")
	}

	body, ok, err := readBody(out["Body"])
	if err != nil {
		return nil, fmt.Errorf("failed to read get_object Body: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("get_object response has no readable Body")
	}
	return body, nil
}

// readBody drains a streamed response body, closing it when it can be closed
func readBody(v any) ([]byte, bool, error) {
	switch body := v.(type) {
	case io.ReadCloser:
		defer body.Close()
		data, err := io.ReadAll(body)
		return data, true, err
	case io.Reader:
		data, err := io.ReadAll(body)
		return data, true, err
	case []byte:
		return bytes.Clone(body), true, nil
	case string:
		return []byte(body), true, nil
	}
	return nil, false, nil
}

func formattedOutKey(fetch map[string]any, c contextargs.Context) (string, error) {
	raw, ok := fetch["outKey"]
	if !ok || raw == nil {
		return "", nil
	}
	key, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("outKey in %s must be a string, got %T", S3FetchKey, raw)
	}
	return c.Format(key)
}
