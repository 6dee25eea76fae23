package datadog

import (
	"context"
	"net/http"
	"sync"

	"github.com/crmarques/orgsync/logging"
	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/transport"
)

const permissionsPath = "/api/v2/permissions"

// roles adopts destination roles with the same name and translates
// permission IDs by permission name when the orgs live on different hosts.
type roles struct {
	*restType
	source transport.Client

	mu                  sync.RWMutex
	destinationByName   map[string]resource.Record
	sourcePermissions   map[string]string
	destinationPermIDs  map[string]string
	permissionsResolved bool
}

func newRoles(source transport.Client, destination transport.Client) *roles {
	return &roles{
		source: source,
		restType: &restType{
			name:         "roles",
			destination:  destination,
			paginated:    true,
			itemsField:   "data",
			envelope:     true,
			updateMethod: http.MethodPatch,
			readOnly:     []string{"/id", "/attributes/created_at", "/attributes/modified_at", "/attributes/user_count"},
			config: resourcetype.Config{
				BasePath: "/api/v2/roles",
				ExcludedAttributes: []string{
					"/id",
					"/attributes/created_at",
					"/attributes/modified_at",
					"/attributes/user_count",
				},
				DedupeBy: "/attributes/name",
			},
		},
	}
}

func (t *roles) PreApplyHook(ctx context.Context, _ map[string]resource.Record) (map[string]resource.Record, error) {
	existing, err := t.FetchAll(ctx, t.destination)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]resource.Record, len(existing))
	for _, role := range existing {
		if name := stringAt(role, t.config.DedupeBy); name != "" {
			byName[name] = role
		}
	}

	t.mu.Lock()
	t.destinationByName = byName
	t.mu.Unlock()

	if t.source == nil || t.source.Host() == t.destination.Host() {
		return nil, nil
	}
	return nil, t.loadPermissions(ctx)
}

func (t *roles) loadPermissions(ctx context.Context) error {
	t.mu.RLock()
	resolved := t.permissionsResolved
	t.mu.RUnlock()
	if resolved {
		return nil
	}

	sourceList, err := t.listPermissions(ctx, t.source)
	if err != nil {
		return err
	}
	destinationList, err := t.listPermissions(ctx, t.destination)
	if err != nil {
		return err
	}

	sourceNames := make(map[string]string, len(sourceList))
	for _, permission := range sourceList {
		sourceNames[stringAt(permission, "/id")] = stringAt(permission, "/attributes/name")
	}
	destinationIDs := make(map[string]string, len(destinationList))
	for _, permission := range destinationList {
		destinationIDs[stringAt(permission, "/attributes/name")] = stringAt(permission, "/id")
	}

	t.mu.Lock()
	t.sourcePermissions = sourceNames
	t.destinationPermIDs = destinationIDs
	t.permissionsResolved = true
	t.mu.Unlock()
	return nil
}

func (t *roles) listPermissions(ctx context.Context, client transport.Client) ([]resource.Record, error) {
	response, err := client.Get(ctx, permissionsPath, nil)
	if err != nil {
		return nil, err
	}
	return transport.ExtractItems(response, "data")
}

// PreActionHook rewrites permission IDs to the destination org's IDs.
func (t *roles) PreActionHook(ctx context.Context, key string, record resource.Record) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.permissionsResolved {
		return nil
	}

	resource.WalkField(record, "relationships.permissions.data.id", func(ref resource.FieldRef) {
		sourceID, ok := resource.ScalarString(ref.Value)
		if !ok {
			return
		}
		name, found := t.sourcePermissions[sourceID]
		if !found {
			return
		}
		destinationID, found := t.destinationPermIDs[name]
		if !found {
			logging.Debug(ctx, "Permission missing in destination", "key", key, "permission", name)
			return
		}
		ref.Set(destinationID)
	})
	return nil
}

// Create updates a destination role of the same name instead of creating
// a duplicate.
func (t *roles) Create(ctx context.Context, key string, record resource.Record) (resource.Record, error) {
	t.mu.RLock()
	existing, found := t.destinationByName[stringAt(record, t.config.DedupeBy)]
	t.mu.RUnlock()

	if found {
		logging.Debug(ctx, "Adopting existing destination role", "key", key)
		return t.restType.adopt(ctx, key, record, existing)
	}
	return t.restType.Create(ctx, key, record)
}
