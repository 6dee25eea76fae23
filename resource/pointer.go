package resource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/crmarques/orgsync/faults"
)

// ParsePointer splits an RFC 6901 JSON pointer into unescaped tokens.
// "" and "/" address the root and yield no tokens.
func ParsePointer(pointer string) ([]string, error) {
	trimmed := strings.TrimSpace(pointer)
	if trimmed == "" || trimmed == "/" {
		return nil, nil
	}
	if !strings.HasPrefix(trimmed, "/") {
		return nil, faults.NewValidationError(fmt.Sprintf("invalid JSON pointer %q", pointer), nil)
	}

	rawTokens := strings.Split(trimmed[1:], "/")
	tokens := make([]string, len(rawTokens))
	for idx, token := range rawTokens {
		tokens[idx] = UnescapePointerToken(token)
	}
	return tokens, nil
}

func EscapePointerToken(value string) string {
	escaped := strings.ReplaceAll(value, "~", "~0")
	return strings.ReplaceAll(escaped, "/", "~1")
}

func UnescapePointerToken(value string) string {
	unescaped := strings.ReplaceAll(value, "~1", "/")
	return strings.ReplaceAll(unescaped, "~0", "~")
}

// Lookup resolves pointer against value without copying.
func Lookup(value Value, pointer string) (Value, bool) {
	tokens, err := ParsePointer(pointer)
	if err != nil {
		return nil, false
	}

	current := value
	for _, token := range tokens {
		switch typed := current.(type) {
		case map[string]any:
			item, found := typed[token]
			if !found {
				return nil, false
			}
			current = item
		case []any:
			index, ok := parseArrayIndex(token)
			if !ok || index >= len(typed) {
				return nil, false
			}
			current = typed[index]
		default:
			return nil, false
		}
	}
	return current, true
}

// LookupString resolves pointer and renders scalar results as strings.
func LookupString(value Value, pointer string) (string, bool) {
	found, ok := Lookup(value, pointer)
	if !ok {
		return "", false
	}
	return ScalarString(found)
}

// ScalarString renders string and integer scalars. IDs arrive as either
// depending on the endpoint, so keys are always compared in string form.
func ScalarString(value Value) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, typed != ""
	case int64:
		return strconv.FormatInt(typed, 10), true
	case int:
		return strconv.Itoa(typed), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	default:
		return "", false
	}
}

// DeletePointer removes the value addressed by tokens. Missing segments are
// ignored. The root is returned because array removals reallocate.
func DeletePointer(root Value, tokens []string) Value {
	if len(tokens) == 0 {
		return nil
	}

	head := tokens[0]
	tail := tokens[1:]

	switch typed := root.(type) {
	case map[string]any:
		if len(tail) == 0 {
			delete(typed, head)
			return typed
		}
		child, found := typed[head]
		if !found {
			return typed
		}
		typed[head] = DeletePointer(child, tail)
		return typed
	case []any:
		index, ok := parseArrayIndex(head)
		if !ok || index >= len(typed) {
			return typed
		}
		if len(tail) == 0 {
			return append(typed[:index], typed[index+1:]...)
		}
		typed[index] = DeletePointer(typed[index], tail)
		return typed
	default:
		return root
	}
}

func parseArrayIndex(value string) (int, bool) {
	if value == "" {
		return 0, false
	}
	for _, char := range value {
		if char < '0' || char > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return index, true
}

// DeepCopy clones maps and slices recursively; scalars are shared.
func DeepCopy(value Value) Value {
	switch typed := value.(type) {
	case map[string]any:
		copied := make(map[string]any, len(typed))
		for key, item := range typed {
			copied[key] = DeepCopy(item)
		}
		return copied
	case []any:
		copied := make([]any, len(typed))
		for idx := range typed {
			copied[idx] = DeepCopy(typed[idx])
		}
		return copied
	default:
		return typed
	}
}

func CopyRecord(record Record) Record {
	if record == nil {
		return nil
	}
	return DeepCopy(record).(map[string]any)
}
