package datadog

import (
	"fmt"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/resource"
)

func asRecord(value resource.Value) (resource.Record, error) {
	record, ok := value.(map[string]any)
	if !ok {
		return nil, faults.NewValidationError(fmt.Sprintf("expected an object response, got %T", value), nil)
	}
	return record, nil
}

// unwrapRecord returns the object held in field, taking the first element
// when field holds a list.
func unwrapRecord(value resource.Value, field string) (resource.Record, error) {
	object, err := asRecord(value)
	if err != nil {
		return nil, err
	}

	switch typed := object[field].(type) {
	case map[string]any:
		return typed, nil
	case []any:
		if len(typed) == 0 {
			return nil, faults.NewValidationError(fmt.Sprintf("response field %q is empty", field), nil)
		}
		return asRecord(typed[0])
	default:
		return nil, faults.NewValidationError(fmt.Sprintf("response has no %q object", field), nil)
	}
}

// withoutPointers returns a copy of record without the given pointers.
func withoutPointers(record resource.Record, pointers ...string) resource.Record {
	copied := resource.CopyRecord(record)
	if copied == nil {
		copied = resource.Record{}
	}
	for _, pointer := range pointers {
		tokens, err := resource.ParsePointer(pointer)
		if err != nil || len(tokens) == 0 {
			continue
		}
		resource.DeletePointer(copied, tokens)
	}
	return copied
}

func stringAt(record resource.Record, pointer string) string {
	value, _ := resource.LookupString(record, pointer)
	return value
}
