package contextargs

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jarrod-lowe/aws-client-steps/internal/pathexpr"
)

const testCaller = "contextargs_test"

func TestPrepareCall_SubstitutesKeysAndValues(t *testing.T) {
	source := Context{"k1": "a", "k2": "b"}
	clientIn := map[string]any{
		"serviceName": "s3",
		"methodName":  "list_buckets",
		"clientArgs":  map[string]any{"{k1}": "{k2}"},
	}

	prepared, err := PrepareCall(clientIn, source, testCaller)
	if err != nil {
		t.Fatalf("PrepareCall returned error: %v", err)
	}

	if !reflect.DeepEqual(prepared.ConstructionArgs, map[string]any{"a": "b"}) {
		t.Errorf("expected {a: b}, got %v", prepared.ConstructionArgs)
	}
	if prepared.CallArgs != nil {
		t.Errorf("expected nil call args, got %v", prepared.CallArgs)
	}
}

func TestPrepareCall_FormatsNamesAndNestedArgs(t *testing.T) {
	source := Context{
		"svc":    "dynamodb",
		"op":     "describe_table",
		"table":  "accounts",
		"limit":  5,
		"region": "ap-southeast-2",
	}
	clientIn := map[string]any{
		"serviceName": "{svc}",
		"methodName":  "{op}",
		"clientArgs":  map[string]any{"region_name": "{region}"},
		"methodArgs": map[string]any{
			"TableName": "{table}",
			"Limit":     10,
			"Filters":   []any{"{table}-1", true, map[string]any{"n": "{limit}"}},
		},
	}

	prepared, err := PrepareCall(clientIn, source, testCaller)
	if err != nil {
		t.Fatalf("PrepareCall returned error: %v", err)
	}

	if prepared.ServiceName != "dynamodb" {
		t.Errorf("expected service 'dynamodb', got '%s'", prepared.ServiceName)
	}
	if prepared.OperationName != "describe_table" {
		t.Errorf("expected operation 'describe_table', got '%s'", prepared.OperationName)
	}

	expected := map[string]any{
		"TableName": "accounts",
		"Limit":     10,
		"Filters":   []any{"accounts-1", true, map[string]any{"n": "5"}},
	}
	if !reflect.DeepEqual(prepared.CallArgs, expected) {
		t.Errorf("unexpected call args:\n got: %#v\nwant: %#v", prepared.CallArgs, expected)
	}

	desc := prepared.Descriptor()
	if desc.Name != "dynamodb" || desc.ConstructionArgs["region_name"] != "ap-southeast-2" {
		t.Errorf("unexpected descriptor: %+v", desc)
	}
	call := prepared.Call()
	if call.Name != "describe_table" || call.Args["TableName"] != "accounts" {
		t.Errorf("unexpected call: %+v", call)
	}
}

func TestPrepareCall_DoesNotMutateInput(t *testing.T) {
	source := Context{"k": "v"}
	methodArgs := map[string]any{"A": "{k}", "B": []any{"{k}"}}
	clientIn := map[string]any{
		"serviceName": "s3",
		"methodName":  "list_buckets",
		"methodArgs":  methodArgs,
	}

	if _, err := PrepareCall(clientIn, source, testCaller); err != nil {
		t.Fatalf("PrepareCall returned error: %v", err)
	}

	if methodArgs["A"] != "{k}" {
		t.Errorf("expected original value untouched, got %v", methodArgs["A"])
	}
	if methodArgs["B"].([]any)[0] != "{k}" {
		t.Errorf("expected original sequence untouched, got %v", methodArgs["B"])
	}
}

func TestPrepareCall_SubstitutionIsSinglePass(t *testing.T) {
	source := Context{"outer": "{inner}", "inner": "boom"}
	clientIn := map[string]any{
		"serviceName": "s3",
		"methodName":  "list_buckets",
		"methodArgs":  map[string]any{"Prefix": "{outer}"},
	}

	prepared, err := PrepareCall(clientIn, source, testCaller)
	if err != nil {
		t.Fatalf("PrepareCall returned error: %v", err)
	}

	if prepared.CallArgs["Prefix"] != "{inner}" {
		t.Errorf("expected '{inner}', got %v", prepared.CallArgs["Prefix"])
	}
}

func TestPrepareCall_MissingFields_ReturnMissingFieldError(t *testing.T) {
	cases := []map[string]any{
		{"methodName": "list_buckets"},
		{"serviceName": "s3"},
		{},
	}

	for _, clientIn := range cases {
		_, err := PrepareCall(clientIn, Context{}, testCaller)

		var missing *MissingFieldError
		if !errors.As(err, &missing) {
			t.Errorf("PrepareCall(%v): expected MissingFieldError, got %v", clientIn, err)
			continue
		}
		if missing.Parent != ClientInKey {
			t.Errorf("expected parent %s, got %s", ClientInKey, missing.Parent)
		}
	}
}

func TestPrepareCall_EmptyValues_ReturnEmptyValueError(t *testing.T) {
	cases := []map[string]any{
		{"serviceName": "", "methodName": "list_buckets"},
		{"serviceName": "   ", "methodName": "list_buckets"},
		{"serviceName": nil, "methodName": "list_buckets"},
		{"serviceName": "s3", "methodName": "\t"},
		{"serviceName": "s3", "methodName": ""},
	}

	for _, clientIn := range cases {
		_, err := PrepareCall(clientIn, Context{}, testCaller)

		var empty *EmptyValueError
		if !errors.As(err, &empty) {
			t.Errorf("PrepareCall(%v): expected EmptyValueError, got %v", clientIn, err)
		}
	}
}

func TestPrepareCall_ValidatesBeforeSubstituting(t *testing.T) {
	// methodArgs references a missing key, but the missing methodName wins
	clientIn := map[string]any{
		"serviceName": "s3",
		"methodArgs":  map[string]any{"Bucket": "{nope}"},
	}

	_, err := PrepareCall(clientIn, Context{}, testCaller)

	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
}

func TestPrepareCall_UnknownKey_ReturnsFormatError(t *testing.T) {
	clientIn := map[string]any{
		"serviceName": "s3",
		"methodName":  "get_object",
		"methodArgs":  map[string]any{"Bucket": "{nope}"},
	}

	_, err := PrepareCall(clientIn, Context{}, testCaller)

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	var notFound *pathexpr.PathNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected PathNotFoundError cause, got %v", formatErr.Err)
	}
}

func TestPrepareCall_FormattedNameBlank_ReturnsEmptyValueError(t *testing.T) {
	clientIn := map[string]any{
		"serviceName": "{svc}",
		"methodName":  "list_buckets",
	}

	_, err := PrepareCall(clientIn, Context{"svc": "  "}, testCaller)

	var empty *EmptyValueError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyValueError, got %v", err)
	}
}

func TestPrepareWait_ReadsAllSections(t *testing.T) {
	source := Context{"bucket": "my-bucket"}
	waitIn := map[string]any{
		"serviceName": "s3",
		"waiterName":  "bucket_exists",
		"waiterArgs":  map[string]any{"Delay": 1},
		"waitArgs":    map[string]any{"Bucket": "{bucket}"},
	}

	prepared, err := PrepareWait(waitIn, source, testCaller)
	if err != nil {
		t.Fatalf("PrepareWait returned error: %v", err)
	}

	if prepared.ServiceName != "s3" || prepared.WaiterName != "bucket_exists" {
		t.Errorf("unexpected names: %+v", prepared)
	}
	if prepared.WaiterArgs["Delay"] != 1 {
		t.Errorf("expected Delay 1, got %v", prepared.WaiterArgs["Delay"])
	}
	if prepared.WaitArgs["Bucket"] != "my-bucket" {
		t.Errorf("expected Bucket 'my-bucket', got %v", prepared.WaitArgs["Bucket"])
	}
	if prepared.ConstructionArgs != nil {
		t.Errorf("expected nil construction args, got %v", prepared.ConstructionArgs)
	}
}

func TestPrepareWait_MissingWaiterName_ReturnsMissingFieldError(t *testing.T) {
	_, err := PrepareWait(map[string]any{"serviceName": "s3"}, Context{}, testCaller)

	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if missing.Field != WaiterName || missing.Parent != WaitInKey {
		t.Errorf("unexpected error fields: %+v", missing)
	}
}

func TestFormat_NestedAccessAndEscapes(t *testing.T) {
	source := Context{
		"table": map[string]any{"names": []any{"a", "b"}},
	}

	got, err := source.Format("{{literal}} {table[names][1]}")
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	if got != "{literal} b" {
		t.Errorf("expected '{literal} b', got '%s'", got)
	}
}

func TestFormatIterable_LeavesNonStringsAlone(t *testing.T) {
	source := Context{"k": "v"}

	got, err := source.FormatIterable([]any{1, 2.5, false, nil, "{k}"})
	if err != nil {
		t.Fatalf("FormatIterable returned error: %v", err)
	}

	expected := []any{1, 2.5, false, nil, "v"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestGetFormattedAs_Conversions(t *testing.T) {
	source := Context{"interval": "2.5", "attempts": "4", "strict": "False"}

	interval, err := source.GetFormattedAsFloat("{interval}")
	if err != nil || interval != 2.5 {
		t.Errorf("expected 2.5, got %v (err %v)", interval, err)
	}

	attempts, err := source.GetFormattedAsInt("{attempts}")
	if err != nil || attempts != 4 {
		t.Errorf("expected 4, got %v (err %v)", attempts, err)
	}

	strict, err := source.GetFormattedAsBool("{strict}")
	if err != nil || strict {
		t.Errorf("expected false, got %v (err %v)", strict, err)
	}

	direct, err := source.GetFormattedAsInt(10)
	if err != nil || direct != 10 {
		t.Errorf("expected 10, got %v (err %v)", direct, err)
	}

	if _, err := source.GetFormattedAsBool("maybe"); err == nil {
		t.Error("expected error converting 'maybe' to bool")
	}
}

func TestAssertKeyHasValue(t *testing.T) {
	source := Context{"present": "x", "empty": nil}

	if err := source.AssertKeyHasValue("present", testCaller); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	var missing *MissingFieldError
	if err := source.AssertKeyHasValue("absent", testCaller); !errors.As(err, &missing) {
		t.Errorf("expected MissingFieldError, got %v", err)
	}

	var empty *EmptyValueError
	if err := source.AssertKeyHasValue("empty", testCaller); !errors.As(err, &empty) {
		t.Errorf("expected EmptyValueError, got %v", err)
	}
}
