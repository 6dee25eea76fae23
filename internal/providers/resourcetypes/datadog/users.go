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

// users adopts destination users with the same handle. Deleting a user
// disables it.
type users struct {
	*restType

	mu                sync.RWMutex
	destinationByName map[string]resource.Record
}

func newUsers(destination transport.Client) *users {
	return &users{
		restType: &restType{
			name:         "users",
			destination:  destination,
			paginated:    true,
			itemsField:   "data",
			envelope:     true,
			updateMethod: http.MethodPatch,
			readOnly: []string{
				"/id",
				"/attributes/created_at",
				"/attributes/modified_at",
				"/attributes/status",
				"/attributes/verified",
				"/attributes/service_account",
				"/attributes/handle",
				"/attributes/icon",
				"/attributes/mfa_enabled",
				"/attributes/allowed_login_methods",
				"/relationships/org",
			},
			ignore: func(record resource.Record) bool {
				disabled, _ := resource.Lookup(record, "/attributes/disabled")
				return disabled == true
			},
			config: resourcetype.Config{
				BasePath: "/api/v2/users",
				ExcludedAttributes: []string{
					"/id",
					"/attributes/created_at",
					"/attributes/modified_at",
					"/attributes/status",
					"/attributes/verified",
					"/attributes/service_account",
					"/attributes/icon",
					"/attributes/mfa_enabled",
					"/attributes/allowed_login_methods",
					"/relationships/org",
				},
				Connections: []resourcetype.Connection{
					{Field: "relationships.roles.data.id", Type: "roles"},
				},
				DedupeBy: "/attributes/handle",
			},
		},
	}
}

func (t *users) PreApplyHook(ctx context.Context, _ map[string]resource.Record) (map[string]resource.Record, error) {
	existing, err := t.FetchAll(ctx, t.destination)
	if err != nil {
		return nil, err
	}

	byHandle := make(map[string]resource.Record, len(existing))
	for _, user := range existing {
		if handle := stringAt(user, t.config.DedupeBy); handle != "" {
			byHandle[handle] = user
		}
	}

	t.mu.Lock()
	t.destinationByName = byHandle
	t.mu.Unlock()
	return nil, nil
}

func (t *users) Create(ctx context.Context, key string, record resource.Record) (resource.Record, error) {
	t.mu.RLock()
	existing, found := t.destinationByName[stringAt(record, t.config.DedupeBy)]
	t.mu.RUnlock()

	if found {
		logging.Debug(ctx, "Adopting existing destination user", "key", key)
		return t.restType.adopt(ctx, key, record, existing)
	}
	return t.restType.Create(ctx, key, record)
}
