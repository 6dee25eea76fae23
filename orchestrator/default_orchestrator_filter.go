package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/resource"
)

var filterScopePattern = regexp.MustCompile(`^([a-z][a-z0-9_]*):(.*)$`)

type recordFilter struct {
	scope      string
	expression string
	code       *gojq.Code
}

// compileFilters parses "[type:]<jq expr>" expressions. Scopes must name a
// registered type.
func compileFilters(raw []string, known func(string) bool) ([]recordFilter, error) {
	filters := make([]recordFilter, 0, len(raw))
	for _, item := range raw {
		text := strings.TrimSpace(item)
		if text == "" {
			continue
		}

		scope := ""
		expression := text
		if match := filterScopePattern.FindStringSubmatch(text); match != nil {
			if !known(match[1]) {
				return nil, faults.NewValidationError(fmt.Sprintf("filter %q targets unknown resource type %q", text, match[1]), nil)
			}
			scope = match[1]
			expression = strings.TrimSpace(match[2])
		}
		if expression == "" {
			return nil, faults.NewValidationError(fmt.Sprintf("filter %q has an empty expression", text), nil)
		}

		query, err := gojq.Parse(expression)
		if err != nil {
			return nil, faults.NewValidationError(fmt.Sprintf("invalid filter expression %q", expression), err)
		}
		code, err := gojq.Compile(query)
		if err != nil {
			return nil, faults.NewValidationError(fmt.Sprintf("invalid filter expression %q", expression), err)
		}

		filters = append(filters, recordFilter{scope: scope, expression: expression, code: code})
	}
	return filters, nil
}

// keepRecord reports whether record passes every filter that applies to
// typeName. A filter keeps a record when its first result is truthy.
func keepRecord(filters []recordFilter, typeName string, record resource.Record) (bool, error) {
	var input any
	for _, filter := range filters {
		if filter.scope != "" && filter.scope != typeName {
			continue
		}
		if input == nil {
			input = jqValue(record)
		}

		iter := filter.code.Run(input)
		value, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if err, isErr := value.(error); isErr {
			return false, faults.NewValidationError(fmt.Sprintf("filter %q failed", filter.expression), err)
		}
		if value == nil || value == false {
			return false, nil
		}
	}
	return true, nil
}

// jqValue converts normalized int64 values to int, the integer type gojq
// operates on.
func jqValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		converted := make(map[string]any, len(typed))
		for key, item := range typed {
			converted[key] = jqValue(item)
		}
		return converted
	case []any:
		converted := make([]any, len(typed))
		for idx, item := range typed {
			converted[idx] = jqValue(item)
		}
		return converted
	case int64:
		return int(typed)
	default:
		return typed
	}
}
