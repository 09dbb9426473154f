package service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

var (
	readerType         = reflect.TypeOf((*io.Reader)(nil)).Elem()
	bytesType          = reflect.TypeOf([]byte(nil))
	durationType       = reflect.TypeOf(time.Duration(0))
	attributeValueType = reflect.TypeOf((*types.AttributeValue)(nil)).Elem()
	attributeMapType   = reflect.TypeOf(map[string]types.AttributeValue(nil))
)

// DecodeArgs applies keyword-style args onto target, which must be a pointer
// to a struct. Keys match exported field names ignoring case and underscores.
// Keys that match no field are an error. Fields not named in args are left
// untouched.
func DecodeArgs(args map[string]any, target any) error {
	if len(args) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		MatchName:        MatchName,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			attributeValueHook,
			readerHook,
			bytesHook,
			secondsToDurationHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	return decoder.Decode(args)
}

// readerHook turns text, bytes or structured values into an io.Reader body
func readerHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != readerType {
		return data, nil
	}
	switch v := data.(type) {
	case io.Reader:
		return v, nil
	case string:
		return strings.NewReader(v), nil
	case []byte:
		return bytes.NewReader(v), nil
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		return bytes.NewReader(b), nil
	}
	return data, nil
}

// bytesHook marshals structured values to JSON for []byte payload fields
func bytesHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != bytesType {
		return data, nil
	}
	switch v := data.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		return b, nil
	case string:
		return []byte(v), nil
	}
	return data, nil
}

// secondsToDurationHook reads plain numbers as seconds
func secondsToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from == nil || to != durationType || from == durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		seconds, err := cast.ToFloat64E(data)
		if err != nil {
			return nil, err
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}
	return data, nil
}

// attributeValueHook converts plain or boto-typed ({"S": "x"}) values into
// DynamoDB attribute values
func attributeValueHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to {
	case attributeValueType:
		return ToAttributeValue(data)
	case attributeMapType:
		if _, ok := data.(map[string]types.AttributeValue); ok {
			return data, nil
		}
		m, ok := data.(map[string]any)
		if !ok {
			return data, nil
		}
		out := make(map[string]types.AttributeValue, len(m))
		for k, v := range m {
			av, err := ToAttributeValue(v)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", k, err)
			}
			out[k] = av
		}
		return out, nil
	}
	return data, nil
}

// ToAttributeValue converts a value to a DynamoDB attribute value. A mapping
// with exactly one DynamoDB type descriptor key (S, N, B, SS, NS, BS, M, L,
// NULL, BOOL) is read in the low-level typed form; anything else is marshalled
// with attributevalue.Marshal.
func ToAttributeValue(v any) (types.AttributeValue, error) {
	if av, ok := v.(types.AttributeValue); ok {
		return av, nil
	}

	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		for typ, inner := range m {
			if av, handled, err := typedAttributeValue(typ, inner); handled {
				return av, err
			}
		}
	}

	return attributevalue.Marshal(v)
}

func typedAttributeValue(typ string, inner any) (types.AttributeValue, bool, error) {
	switch typ {
	case "S":
		s, err := cast.ToStringE(inner)
		return &types.AttributeValueMemberS{Value: s}, true, err
	case "N":
		s, err := cast.ToStringE(inner)
		return &types.AttributeValueMemberN{Value: s}, true, err
	case "B":
		b, err := toBytes(inner)
		return &types.AttributeValueMemberB{Value: b}, true, err
	case "BOOL":
		b, err := cast.ToBoolE(inner)
		return &types.AttributeValueMemberBOOL{Value: b}, true, err
	case "NULL":
		b, err := cast.ToBoolE(inner)
		return &types.AttributeValueMemberNULL{Value: b}, true, err
	case "SS":
		ss, err := cast.ToStringSliceE(inner)
		return &types.AttributeValueMemberSS{Value: ss}, true, err
	case "NS":
		items, err := cast.ToSliceE(inner)
		if err != nil {
			return nil, true, err
		}
		ns := make([]string, 0, len(items))
		for _, item := range items {
			s, err := cast.ToStringE(item)
			if err != nil {
				return nil, true, err
			}
			ns = append(ns, s)
		}
		return &types.AttributeValueMemberNS{Value: ns}, true, nil
	case "BS":
		items, err := cast.ToSliceE(inner)
		if err != nil {
			return nil, true, err
		}
		bs := make([][]byte, 0, len(items))
		for _, item := range items {
			b, err := toBytes(item)
			if err != nil {
				return nil, true, err
			}
			bs = append(bs, b)
		}
		return &types.AttributeValueMemberBS{Value: bs}, true, nil
	case "M":
		m, ok := inner.(map[string]any)
		if !ok {
			return nil, true, fmt.Errorf("M attribute must be a mapping, got %T", inner)
		}
		out := make(map[string]types.AttributeValue, len(m))
		for k, item := range m {
			av, err := ToAttributeValue(item)
			if err != nil {
				return nil, true, err
			}
			out[k] = av
		}
		return &types.AttributeValueMemberM{Value: out}, true, nil
	case "L":
		items, err := cast.ToSliceE(inner)
		if err != nil {
			return nil, true, err
		}
		out := make([]types.AttributeValue, 0, len(items))
		for _, item := range items {
			av, err := ToAttributeValue(item)
			if err != nil {
				return nil, true, err
			}
			out = append(out, av)
		}
		return &types.AttributeValueMemberL{Value: out}, true, nil
	}
	return nil, false, nil
}

// toBytes accepts raw bytes or base64 text
func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		decoded, err := base64.StdEncoding.DecodeString(b)
		if err != nil {
			return nil, fmt.Errorf("binary attribute must be base64: %w", err)
		}
		return decoded, nil
	}
	return nil, fmt.Errorf("binary attribute must be bytes or base64 text, got %T", v)
}
