package resourcetype

import (
	"reflect"
	"regexp"
	"strconv"

	"github.com/crmarques/orgsync/resource"
)

// StripExcluded returns a copy of record without the attributes c ignores
// when comparing.
func (c Config) StripExcluded(record resource.Record) resource.Value {
	if record == nil {
		return nil
	}

	working := resource.DeepCopy(record)
	for _, pointer := range c.ExcludedAttributes {
		tokens, err := resource.ParsePointer(pointer)
		if err != nil || len(tokens) == 0 {
			continue
		}
		working = resource.DeletePointer(working, tokens)
	}

	if len(c.ExcludedAttributesRE) == 0 {
		return working
	}
	return pruneMatchingPointers(working, "", c.ExcludedAttributesRE)
}

// Equivalent reports whether a and b only differ in excluded attributes.
func (c Config) Equivalent(a resource.Record, b resource.Record) bool {
	return reflect.DeepEqual(c.StripExcluded(a), c.StripExcluded(b))
}

// pruneMatchingPointers drops every field whose JSON pointer matches one of
// patterns. value must be a private copy.
func pruneMatchingPointers(value resource.Value, pointer string, patterns []*regexp.Regexp) resource.Value {
	switch typed := value.(type) {
	case map[string]any:
		for key, child := range typed {
			childPointer := pointer + "/" + resource.EscapePointerToken(key)
			if matchesAny(childPointer, patterns) {
				delete(typed, key)
				continue
			}
			typed[key] = pruneMatchingPointers(child, childPointer, patterns)
		}
		return typed
	case []any:
		kept := make([]any, 0, len(typed))
		for idx, child := range typed {
			childPointer := pointer + "/" + strconv.Itoa(idx)
			if matchesAny(childPointer, patterns) {
				continue
			}
			kept = append(kept, pruneMatchingPointers(child, childPointer, patterns))
		}
		return kept
	default:
		return value
	}
}

func matchesAny(pointer string, patterns []*regexp.Regexp) bool {
	for _, pattern := range patterns {
		if pattern != nil && pattern.MatchString(pointer) {
			return true
		}
	}
	return false
}
