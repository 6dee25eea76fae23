package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"

	"github.com/crmarques/orgsync/faults"
)

// Normalize converts decoded payloads into the canonical Value shapes so that
// records read from disk and records returned by the API compare equal.
func Normalize(value Value) (Value, error) {
	return normalizeValue(value)
}

// DecodeJSON decodes data with number preservation and normalizes the result.
// Empty input decodes to nil.
func DecodeJSON(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	return normalizeValue(value)
}

func normalizeValue(value any) (any, error) {
	switch typed := value.(type) {
	case nil, bool, string, int64:
		return typed, nil
	case float32:
		return normalizeFloat(float64(typed))
	case float64:
		return normalizeFloat(typed)
	case int:
		return int64(typed), nil
	case int8:
		return int64(typed), nil
	case int16:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case uint:
		return normalizeUint(uint64(typed))
	case uint8:
		return normalizeUint(uint64(typed))
	case uint16:
		return normalizeUint(uint64(typed))
	case uint32:
		return normalizeUint(uint64(typed))
	case uint64:
		return normalizeUint(typed)
	case json.Number:
		return normalizeJSONNumber(typed)
	case []any:
		normalized := make([]any, len(typed))
		for idx, item := range typed {
			itemValue, err := normalizeValue(item)
			if err != nil {
				return nil, err
			}
			normalized[idx] = itemValue
		}
		return normalized, nil
	case map[string]any:
		normalized := make(map[string]any, len(typed))
		for key, item := range typed {
			itemValue, err := normalizeValue(item)
			if err != nil {
				return nil, err
			}
			normalized[key] = itemValue
		}
		return normalized, nil
	}

	return normalizeReflectValue(value)
}

func normalizeFloat(value float64) (any, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, faults.NewValidationError("payload contains non-finite float", nil)
	}
	// Whole floats collapse to int64 so a value decoded from YAML or a Go
	// literal equals the same value decoded from JSON.
	if value == math.Trunc(value) && math.Abs(value) < 1<<53 {
		return int64(value), nil
	}
	return value, nil
}

func normalizeUint(value uint64) (int64, error) {
	if value > math.MaxInt64 {
		return 0, faults.NewValidationError("payload contains integer out of range", nil)
	}
	return int64(value), nil
}

func normalizeJSONNumber(value json.Number) (any, error) {
	if asInt, err := value.Int64(); err == nil {
		return asInt, nil
	}
	if asBig, ok := new(big.Int).SetString(value.String(), 10); ok {
		if asBig.IsInt64() {
			return asBig.Int64(), nil
		}
		return nil, faults.NewValidationError("payload contains integer out of range", nil)
	}

	asFloat, err := value.Float64()
	if err != nil {
		return nil, faults.NewValidationError("payload contains invalid number", err)
	}
	return normalizeFloat(asFloat)
}

func normalizeReflectValue(value any) (any, error) {
	reflectValue := reflect.ValueOf(value)
	switch reflectValue.Kind() {
	case reflect.Map:
		if reflectValue.Type().Key().Kind() != reflect.String {
			return nil, faults.NewValidationError("payload map keys must be strings", nil)
		}
		normalized := make(map[string]any, reflectValue.Len())
		iter := reflectValue.MapRange()
		for iter.Next() {
			item, err := normalizeValue(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			normalized[iter.Key().String()] = item
		}
		return normalized, nil
	case reflect.Slice, reflect.Array:
		length := reflectValue.Len()
		normalized := make([]any, length)
		for idx := range length {
			item, err := normalizeValue(reflectValue.Index(idx).Interface())
			if err != nil {
				return nil, err
			}
			normalized[idx] = item
		}
		return normalized, nil
	default:
		return nil, faults.NewValidationError(fmt.Sprintf("unsupported payload type %T", value), nil)
	}
}
