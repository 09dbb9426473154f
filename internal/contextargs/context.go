// Package contextargs is the key-value configuration source that steps read
// from, and the argument preparation that turns step configuration into
// service calls.
package contextargs

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/jarrod-lowe/aws-client-steps/internal/pathexpr"
)

// Context is the mutable key-value state shared by steps. String values may
// contain {key} references that are substituted against the context.
type Context map[string]any

// Format substitutes every {field} in s against the context. Substitution is
// single pass: substituted text is not scanned again.
func (c Context) Format(s string) (string, error) {
	if !strings.ContainsAny(s, "{}") {
		return s, nil
	}

	tmpl, err := pathexpr.Parse(s)
	if err != nil {
		return "", &FormatError{Template: s, Err: err}
	}

	out, err := tmpl.Execute(map[string]any(c))
	if err != nil {
		return "", &FormatError{Template: s, Err: err}
	}
	return out, nil
}

// FormatIterable walks v and formats every string leaf, including mapping
// keys. Non-string scalars pass through unchanged. v is never modified; the
// result is a copy.
func (c Context) FormatIterable(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return c.Format(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, value := range t {
			formattedKey, err := c.Format(key)
			if err != nil {
				return nil, err
			}
			formattedValue, err := c.FormatIterable(value)
			if err != nil {
				return nil, err
			}
			out[formattedKey] = formattedValue
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			formatted, err := c.FormatIterable(item)
			if err != nil {
				return nil, err
			}
			out[i] = formatted
		}
		return out, nil
	case []string:
		out := make([]string, len(t))
		for i, item := range t {
			formatted, err := c.Format(item)
			if err != nil {
				return nil, err
			}
			out[i] = formatted
		}
		return out, nil
	}
	return v, nil
}

// FormatMap formats a mapping. A nil input gives a nil result.
func (c Context) FormatMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	formatted, err := c.FormatIterable(m)
	if err != nil {
		return nil, err
	}
	return formatted.(map[string]any), nil
}

// GetFormattedAsFloat formats v if it is a string, then converts it
func (c Context) GetFormattedAsFloat(v any) (float64, error) {
	formatted, err := c.formatScalar(v)
	if err != nil {
		return 0, err
	}
	return cast.ToFloat64E(formatted)
}

// GetFormattedAsInt formats v if it is a string, then converts it
func (c Context) GetFormattedAsInt(v any) (int, error) {
	formatted, err := c.formatScalar(v)
	if err != nil {
		return 0, err
	}
	if s, ok := formatted.(string); ok {
		formatted = strings.TrimSpace(s)
	}
	return cast.ToIntE(formatted)
}

// GetFormattedAsBool formats v if it is a string, then converts it. Accepts
// the usual spellings: true/false, True/False, 1/0, t/f.
func (c Context) GetFormattedAsBool(v any) (bool, error) {
	formatted, err := c.formatScalar(v)
	if err != nil {
		return false, err
	}
	if s, ok := formatted.(string); ok {
		formatted = strings.TrimSpace(s)
	}
	return cast.ToBoolE(formatted)
}

func (c Context) formatScalar(v any) (any, error) {
	if s, ok := v.(string); ok {
		return c.Format(s)
	}
	return v, nil
}

// AssertKeyHasValue checks key exists at the context root and is not nil
func (c Context) AssertKeyHasValue(key, caller string) error {
	value, ok := c[key]
	if !ok {
		return &MissingFieldError{Field: key, Caller: caller}
	}
	if value == nil {
		return &EmptyValueError{Field: key, Caller: caller}
	}
	return nil
}

// GetMap returns the mapping stored at key
func (c Context) GetMap(key, caller string) (map[string]any, error) {
	if err := c.AssertKeyHasValue(key, caller); err != nil {
		return nil, err
	}
	m, ok := c[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("context[%q] must be a mapping for %s, got %T", key, caller, c[key])
	}
	return m, nil
}
