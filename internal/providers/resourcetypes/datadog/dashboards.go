package datadog

import (
	"context"
	"net/url"

	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/transport"
)

const dashboardListItemsPath = "/api/v2/dashboard/lists/manual/"

// dashboards lists summaries and reads every dashboard in full.
type dashboards struct {
	*restType
}

func newDashboards(destination transport.Client) *dashboards {
	return &dashboards{
		restType: &restType{
			name:        "dashboards",
			destination: destination,
			itemsField:  "dashboards",
			readOnly:    []string{"/id", "/author_handle", "/author_name", "/url", "/created_at", "/modified_at"},
			config: resourcetype.Config{
				BasePath:           "/api/v1/dashboard",
				ExcludedAttributes: []string{"/id", "/author_handle", "/author_name", "/url", "/created_at", "/modified_at"},
				Connections: []resourcetype.Connection{
					{Field: "widgets.definition.alert_id", Type: "monitors"},
					{Field: "widgets.definition.widgets.definition.alert_id", Type: "monitors"},
					{Field: "widgets.definition.slo_id", Type: "service_level_objectives"},
					{Field: "widgets.definition.widgets.definition.slo_id", Type: "service_level_objectives"},
				},
			},
		},
	}
}

func (t *dashboards) FetchAll(ctx context.Context, client transport.Client) ([]resource.Record, error) {
	summaries, err := t.restType.FetchAll(ctx, client)
	if err != nil {
		return nil, err
	}

	records := make([]resource.Record, 0, len(summaries))
	for _, summary := range summaries {
		id := stringAt(summary, "/id")
		if id == "" {
			continue
		}
		detail, err := client.Get(ctx, t.config.BasePath+"/"+url.PathEscape(id), nil)
		if err != nil {
			return nil, err
		}
		record, err := asRecord(detail)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// dashboardLists carry their member dashboards under "dashboards", which
// are read and written through the v2 items endpoint.
type dashboardLists struct {
	*restType
}

func newDashboardLists(destination transport.Client) *dashboardLists {
	return &dashboardLists{
		restType: &restType{
			name:        "dashboard_lists",
			destination: destination,
			itemsField:  "dashboard_lists",
			config: resourcetype.Config{
				BasePath:           "/api/v1/dashboard/lists/manual",
				ExcludedAttributes: []string{"/id", "/author", "/created", "/modified", "/dashboard_count", "/is_favorite", "/type"},
				Connections: []resourcetype.Connection{
					{Field: "dashboards.id", Type: "dashboards"},
				},
			},
		},
	}
}

func (t *dashboardLists) FetchAll(ctx context.Context, client transport.Client) ([]resource.Record, error) {
	lists, err := t.restType.FetchAll(ctx, client)
	if err != nil {
		return nil, err
	}

	for _, list := range lists {
		items, err := t.listItems(ctx, client, stringAt(list, "/id"))
		if err != nil {
			return nil, err
		}
		list["dashboards"] = items
	}
	return lists, nil
}

func (t *dashboardLists) listItems(ctx context.Context, client transport.Client, id string) ([]any, error) {
	response, err := client.Get(ctx, dashboardListItemsPath+url.PathEscape(id)+"/dashboards", nil)
	if err != nil {
		return nil, err
	}
	entries, err := transport.ExtractItems(response, "dashboards")
	if err != nil {
		return nil, err
	}

	items := make([]any, 0, len(entries))
	for _, entry := range entries {
		items = append(items, map[string]any{"id": entry["id"], "type": entry["type"]})
	}
	return items, nil
}

func (t *dashboardLists) Create(ctx context.Context, key string, record resource.Record) (resource.Record, error) {
	response, err := t.destination.Post(ctx, t.config.BasePath, map[string]any{"name": record["name"]})
	if err != nil {
		return nil, err
	}
	created, err := asRecord(response)
	if err != nil {
		return nil, err
	}
	return t.replaceItems(ctx, created, record)
}

func (t *dashboardLists) Update(ctx context.Context, key string, record resource.Record, current resource.Record) (resource.Record, error) {
	objectPath, err := t.objectPath(current)
	if err != nil {
		return nil, err
	}
	response, err := t.destination.Put(ctx, objectPath, map[string]any{"name": record["name"]})
	if err != nil {
		return nil, err
	}
	updated, err := asRecord(response)
	if err != nil {
		return nil, err
	}
	return t.replaceItems(ctx, updated, record)
}

func (t *dashboardLists) replaceItems(ctx context.Context, list resource.Record, record resource.Record) (resource.Record, error) {
	items, _ := record["dashboards"].([]any)
	if items == nil {
		items = []any{}
	}

	id := stringAt(list, "/id")
	_, err := t.destination.Put(ctx, dashboardListItemsPath+url.PathEscape(id)+"/dashboards", map[string]any{"dashboards": items})
	if err != nil {
		return nil, err
	}

	stored := resource.CopyRecord(list)
	stored["dashboards"] = resource.DeepCopy(items)
	return stored, nil
}
