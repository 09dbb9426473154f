package pathexpr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/qri-io/jsonpointer"
)

// Lookup walks data one token at a time.
// Mappings are indexed by string key, sequences by non-negative integer index.
func Lookup(data any, tokens []string) (any, error) {
	current := data
	for _, tok := range tokens {
		next, err := step(current, tok)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// step resolves a single token against current
func step(current any, tok string) (any, error) {
	switch v := current.(type) {
	case map[string]any:
		value, ok := v[tok]
		if !ok {
			return nil, &PathNotFoundError{Token: tok, Reason: "key not found"}
		}
		return value, nil
	case []any:
		return evaluateArrayIndex(v, tok)
	case nil:
		return nil, &PathNotFoundError{Token: tok, Reason: "cannot index into null"}
	}

	// Typed containers (map[string]string, []string, ...) built in Go code
	rv := reflect.ValueOf(current)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &PathNotFoundError{Token: tok, Reason: fmt.Sprintf("cannot index %T by string key", current)}
		}
		value := rv.MapIndex(reflect.ValueOf(tok).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil, &PathNotFoundError{Token: tok, Reason: "key not found"}
		}
		return value.Interface(), nil
	case reflect.Slice, reflect.Array:
		idx, err := parseIndex(tok)
		if err != nil {
			return nil, err
		}
		if idx >= rv.Len() {
			return nil, &PathNotFoundError{Token: tok, Reason: fmt.Sprintf("index out of range for length %d", rv.Len())}
		}
		return rv.Index(idx).Interface(), nil
	}

	return nil, &PathNotFoundError{Token: tok, Reason: fmt.Sprintf("cannot index into %T", current)}
}

// evaluateArrayIndex evaluates a numeric array index
func evaluateArrayIndex(arr []any, tok string) (any, error) {
	idx, err := parseIndex(tok)
	if err != nil {
		return nil, err
	}

	if idx >= len(arr) {
		return nil, &PathNotFoundError{Token: tok, Reason: fmt.Sprintf("index out of range for length %d", len(arr))}
	}

	return arr[idx], nil
}

func parseIndex(tok string) (int, error) {
	idx, err := strconv.Atoi(tok)
	if err != nil || idx < 0 {
		return 0, &PathNotFoundError{Token: tok, Reason: "sequence index must be a non-negative integer"}
	}
	return idx, nil
}

// pointerTokens parses an RFC 6901 JSON Pointer into lookup tokens
func pointerTokens(path string) ([]string, error) {
	ptr, err := jsonpointer.Parse(path)
	if err != nil {
		return nil, &SyntaxError{Expression: path, Reason: fmt.Sprintf("invalid JSON Pointer: %v", err)}
	}
	return []string(ptr), nil
}

// IsPointer reports whether expr uses JSON Pointer syntax rather than a format field
func IsPointer(expr string) bool {
	return strings.HasPrefix(expr, "/")
}
