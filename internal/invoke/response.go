package invoke

import (
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// resultMetadataField is the SDK middleware metadata carried on every output
const resultMetadataField = "ResultMetadata"

// ToResponseValue converts an SDK output into a generic response of nested
// map[string]any, []any and scalars, keyed by the API member names.
//
// Pointers are dereferenced, absent (nil) members are omitted, enum types
// become plain strings, time.Time and streaming bodies (io.Reader) are kept
// as-is, and DynamoDB attribute values use the typed {"S": "..."} form.
func ToResponseValue(output any) any {
	return convert(reflect.ValueOf(output))
}

func convert(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil
		}
	}

	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case time.Time:
			return x
		case types.AttributeValue:
			return attributeValueToResponse(x)
		case io.Reader:
			return x
		case []byte:
			return x
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return convert(v.Elem())
	case reflect.Struct:
		return convertStruct(v)
	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			out[i] = convert(v.Index(i))
		}
		return out
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = convert(iter.Value())
		}
		return out
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}

	if v.CanInterface() {
		return v.Interface()
	}
	return nil
}

func convertStruct(v reflect.Value) map[string]any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous || field.Name == resultMetadataField {
			continue
		}
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			if fv.IsNil() {
				continue
			}
		case reflect.String:
			// SDK enums are named string types; the zero value means unset
			if fv.Type().PkgPath() != "" && fv.Len() == 0 {
				continue
			}
		}
		out[field.Name] = convert(fv)
	}
	return out
}

func attributeValueToResponse(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return map[string]any{"S": v.Value}
	case *types.AttributeValueMemberN:
		return map[string]any{"N": v.Value}
	case *types.AttributeValueMemberB:
		return map[string]any{"B": v.Value}
	case *types.AttributeValueMemberBOOL:
		return map[string]any{"BOOL": v.Value}
	case *types.AttributeValueMemberNULL:
		return map[string]any{"NULL": v.Value}
	case *types.AttributeValueMemberSS:
		return map[string]any{"SS": toAnySlice(v.Value)}
	case *types.AttributeValueMemberNS:
		return map[string]any{"NS": toAnySlice(v.Value)}
	case *types.AttributeValueMemberBS:
		items := make([]any, len(v.Value))
		for i, b := range v.Value {
			items[i] = b
		}
		return map[string]any{"BS": items}
	case *types.AttributeValueMemberM:
		m := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			m[k] = attributeValueToResponse(item)
		}
		return map[string]any{"M": m}
	case *types.AttributeValueMemberL:
		items := make([]any, len(v.Value))
		for i, item := range v.Value {
			items[i] = attributeValueToResponse(item)
		}
		return map[string]any{"L": items}
	}
	return nil
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, s := range values {
		out[i] = s
	}
	return out
}
