package datadog

import (
	"context"
	"net/url"
	"regexp"

	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/transport"
)

// Synthetics tests own their monitors; those follow the tests.
const syntheticsMonitorType = "synthetics alert"

func newMonitors(destination transport.Client) *restType {
	return &restType{
		name:        "monitors",
		destination: destination,
		readOnly: []string{
			"/id",
			"/matching_downtimes",
			"/creator",
			"/created",
			"/created_at",
			"/deleted",
			"/org_id",
			"/modified",
			"/overall_state",
			"/overall_state_modified",
			"/state",
			"/multi",
		},
		ignore: func(record resource.Record) bool {
			return stringAt(record, "/type") == syntheticsMonitorType
		},
		config: resourcetype.Config{
			BasePath: "/api/v1/monitor",
			ExcludedAttributes: []string{
				"/id",
				"/matching_downtimes",
				"/creator",
				"/created",
				"/created_at",
				"/deleted",
				"/org_id",
				"/modified",
				"/overall_state",
				"/overall_state_modified",
				"/state",
				"/multi",
			},
			Connections: []resourcetype.Connection{
				{Field: "restricted_roles", Type: "roles"},
			},
		},
	}
}

func newDowntimes(destination transport.Client) *restType {
	return &restType{
		name:        "downtimes",
		destination: destination,
		readOnly:    []string{"/id", "/creator_id", "/updater_id", "/created", "/modified", "/active", "/parent_id", "/child_id", "/downtime_type"},
		ignore: func(record resource.Record) bool {
			canceled, found := resource.Lookup(record, "/canceled")
			return found && canceled != nil
		},
		config: resourcetype.Config{
			BasePath:           "/api/v1/downtime",
			ExcludedAttributes: []string{"/id", "/creator_id", "/updater_id", "/created", "/modified", "/active", "/parent_id", "/child_id", "/downtime_type"},
			ExcludedAttributesRE: []*regexp.Regexp{
				regexp.MustCompile(`^/recurrence/until_occurrences$`),
			},
			Connections: []resourcetype.Connection{
				{Field: "monitor_id", Type: "monitors"},
			},
		},
	}
}

// serviceLevelObjectives answer creates and updates with {"data": [slo]}.
type serviceLevelObjectives struct {
	*restType
}

func newServiceLevelObjectives(destination transport.Client) *serviceLevelObjectives {
	return &serviceLevelObjectives{
		restType: &restType{
			name:        "service_level_objectives",
			destination: destination,
			itemsField:  "data",
			readOnly:    []string{"/id", "/creator", "/created_at", "/modified_at"},
			config: resourcetype.Config{
				BasePath:           "/api/v1/slo",
				ExcludedAttributes: []string{"/id", "/creator", "/created_at", "/modified_at"},
				Connections: []resourcetype.Connection{
					{Field: "monitor_ids", Type: "monitors"},
				},
			},
		},
	}
}

func (t *serviceLevelObjectives) Create(ctx context.Context, _ string, record resource.Record) (resource.Record, error) {
	response, err := t.destination.Post(ctx, t.config.BasePath, t.payload(record))
	if err != nil {
		return nil, err
	}
	return unwrapRecord(response, "data")
}

func (t *serviceLevelObjectives) Update(ctx context.Context, _ string, record resource.Record, current resource.Record) (resource.Record, error) {
	objectPath, err := t.objectPath(current)
	if err != nil {
		return nil, err
	}
	response, err := t.destination.Put(ctx, objectPath, t.payload(record))
	if err != nil {
		return nil, err
	}
	return unwrapRecord(response, "data")
}

// Delete forces removal of SLOs still referenced by dashboards.
func (t *serviceLevelObjectives) Delete(ctx context.Context, _ string, current resource.Record) error {
	objectPath, err := t.objectPath(current)
	if err != nil {
		return err
	}
	_, err = t.destination.Delete(ctx, objectPath+"?"+url.Values{"force": {"true"}}.Encode(), nil)
	return err
}
