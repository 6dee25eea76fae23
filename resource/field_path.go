package resource

import "strings"

// FieldRef points at one scalar found while walking a dotted field path.
// Set replaces the scalar in its parent container.
type FieldRef struct {
	Value Value
	Set   func(Value)
}

// WalkField visits every scalar reachable through a dotted path such as
// "widgets.definition.alert_id". Arrays met along the way (or at the end of
// the path) are traversed element by element.
func WalkField(root Value, path string, visit func(FieldRef)) {
	segments := splitFieldPath(path)
	if len(segments) == 0 {
		return
	}
	walkField(root, segments, visit)
}

func walkField(current Value, segments []string, visit func(FieldRef)) {
	switch typed := current.(type) {
	case []any:
		for _, item := range typed {
			walkField(item, segments, visit)
		}
	case map[string]any:
		head := segments[0]
		child, found := typed[head]
		if !found || child == nil {
			return
		}
		if len(segments) > 1 {
			walkField(child, segments[1:], visit)
			return
		}
		visitLeaf(child, func(value Value) { typed[head] = value }, visit)
	}
}

func visitLeaf(value Value, set func(Value), visit func(FieldRef)) {
	items, isList := value.([]any)
	if !isList {
		switch value.(type) {
		case map[string]any:
			return
		}
		visit(FieldRef{Value: value, Set: set})
		return
	}

	for idx := range items {
		switch items[idx].(type) {
		case map[string]any, []any, nil:
			continue
		}
		position := idx
		visit(FieldRef{Value: items[idx], Set: func(next Value) { items[position] = next }})
	}
}

func splitFieldPath(path string) []string {
	trimmed := strings.Trim(strings.TrimSpace(path), ".")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, ".")
}
