package resourcetype

import (
	"fmt"
	"strings"

	"github.com/crmarques/orgsync/faults"
)

// Registry is the ordered list of resource types. A type may only connect
// to types registered before it.
type Registry struct {
	types  []ResourceType
	byName map[string]int
}

func NewRegistry(types ...ResourceType) (*Registry, error) {
	registry := &Registry{
		types:  make([]ResourceType, 0, len(types)),
		byName: make(map[string]int, len(types)),
	}

	for _, item := range types {
		if item == nil {
			return nil, faults.NewValidationError("resource type must not be nil", nil)
		}
		name := item.Name()
		if strings.TrimSpace(name) == "" {
			return nil, faults.NewValidationError("resource type name is required", nil)
		}
		if _, exists := registry.byName[name]; exists {
			return nil, faults.NewValidationError(fmt.Sprintf("resource type %q registered twice", name), nil)
		}
		for _, connection := range item.Config().Connections {
			if _, known := registry.byName[connection.Type]; !known {
				return nil, faults.NewValidationError(
					fmt.Sprintf("resource type %q connects %q to %q which is not registered before it", name, connection.Field, connection.Type),
					nil,
				)
			}
		}

		registry.byName[name] = len(registry.types)
		registry.types = append(registry.types, item)
	}

	return registry, nil
}

func (r *Registry) All() []ResourceType {
	return append([]ResourceType(nil), r.types...)
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.types))
	for idx, item := range r.types {
		names[idx] = item.Name()
	}
	return names
}

func (r *Registry) Lookup(name string) (ResourceType, bool) {
	idx, found := r.byName[name]
	if !found {
		return nil, false
	}
	return r.types[idx], true
}

// Select returns the named types in registry order. An empty selection
// returns every type.
func (r *Registry) Select(names []string) ([]ResourceType, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	wanted := make(map[string]struct{}, len(names))
	unknown := make([]string, 0)
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, found := r.byName[name]; !found {
			unknown = append(unknown, name)
			continue
		}
		wanted[name] = struct{}{}
	}
	if len(unknown) > 0 {
		return nil, faults.NewValidationError(
			fmt.Sprintf("unknown resource types: %s (available: %s)", strings.Join(unknown, ", "), strings.Join(r.Names(), ", ")),
			nil,
		)
	}
	if len(wanted) == 0 {
		return r.All(), nil
	}

	selected := make([]ResourceType, 0, len(wanted))
	for _, item := range r.types {
		if _, ok := wanted[item.Name()]; ok {
			selected = append(selected, item)
		}
	}
	return selected, nil
}
