package invoke

import (
	"context"
	"reflect"

	"github.com/jarrod-lowe/aws-client-steps/internal/service"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Operation is a client method with the SDK operation shape:
//
//	func(ctx context.Context, params *Input, optFns ...func(*Options)) (*Output, error)
type Operation struct {
	Name      string
	method    reflect.Value
	inputType reflect.Type
}

// LookupOperation finds the named operation on client. The name may be given
// in boto style or Go style. Methods that do not have the operation shape are
// never matched.
func LookupOperation(client any, name string) (*Operation, bool) {
	if client == nil {
		return nil, false
	}
	v := reflect.ValueOf(client)
	t := v.Type()

	if m, ok := t.MethodByName(service.CanonicalName(name)); ok {
		if op, ok := newOperation(m.Name, v.Method(m.Index)); ok {
			return op, true
		}
	}

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !service.MatchName(name, m.Name) {
			continue
		}
		if op, ok := newOperation(m.Name, v.Method(i)); ok {
			return op, true
		}
	}

	return nil, false
}

func newOperation(name string, method reflect.Value) (*Operation, bool) {
	mt := method.Type()
	if !mt.IsVariadic() || mt.NumIn() != 3 || mt.NumOut() != 2 {
		return nil, false
	}
	if mt.In(0) != contextType || mt.Out(1) != errorType {
		return nil, false
	}
	in := mt.In(1)
	if in.Kind() != reflect.Pointer || in.Elem().Kind() != reflect.Struct {
		return nil, false
	}
	if mt.Out(0).Kind() != reflect.Pointer {
		return nil, false
	}
	return &Operation{Name: name, method: method, inputType: in.Elem()}, true
}

// Call decodes args onto a fresh input struct and calls the operation. A nil
// output pointer is returned as a nil value.
func (o *Operation) Call(ctx context.Context, args map[string]any) (any, error) {
	input := reflect.New(o.inputType)
	if err := service.DecodeArgs(args, input.Interface()); err != nil {
		return nil, &service.ArgumentError{Target: o.Name + " input", Err: err}
	}

	results := o.method.Call([]reflect.Value{reflect.ValueOf(ctx), input})

	if errValue := results[1]; !errValue.IsNil() {
		return nil, errValue.Interface().(error)
	}
	if results[0].IsNil() {
		return nil, nil
	}
	return results[0].Interface(), nil
}
