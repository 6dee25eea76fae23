package datadog

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/logging"
	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/transport"
)

const (
	syntheticsLocationsPath       = "/api/v1/synthetics/locations"
	syntheticsTestsDeletePath     = "/api/v1/synthetics/tests/delete"
	syntheticsTestKeySeparator    = "#"
	syntheticsPrivateLocationType = "synthetics_private_locations"
	syntheticsTestsType           = "synthetics_tests"
)

var privateLocationPattern = regexp.MustCompile(`^pl:`)

// syntheticsPrivateLocations lists locations, keeps the private ones and
// reads each in full.
type syntheticsPrivateLocations struct {
	*restType
}

func newSyntheticsPrivateLocations(destination transport.Client) *syntheticsPrivateLocations {
	return &syntheticsPrivateLocations{
		restType: &restType{
			name:        syntheticsPrivateLocationType,
			destination: destination,
			readOnly:    []string{"/id", "/created_at", "/modified_at", "/createdAt", "/modifiedAt", "/config", "/secrets"},
			config: resourcetype.Config{
				BasePath:           "/api/v1/synthetics/private-locations",
				ExcludedAttributes: []string{"/id", "/created_at", "/modified_at", "/createdAt", "/modifiedAt", "/config", "/secrets", "/metadata"},
				ReferencePattern:   privateLocationPattern,
			},
		},
	}
}

func (t *syntheticsPrivateLocations) FetchAll(ctx context.Context, client transport.Client) ([]resource.Record, error) {
	response, err := client.Get(ctx, syntheticsLocationsPath, nil)
	if err != nil {
		return nil, err
	}
	locations, err := transport.ExtractItems(response, "locations")
	if err != nil {
		return nil, err
	}

	records := make([]resource.Record, 0, len(locations))
	for _, location := range locations {
		id := stringAt(location, "/id")
		if !privateLocationPattern.MatchString(id) {
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

// Create stores the private_location object of the creation response,
// which also carries the worker configuration.
func (t *syntheticsPrivateLocations) Create(ctx context.Context, _ string, record resource.Record) (resource.Record, error) {
	response, err := t.destination.Post(ctx, t.config.BasePath, t.payload(record))
	if err != nil {
		return nil, err
	}
	return unwrapRecord(response, "private_location")
}

// syntheticsTests are keyed by "public_id#monitor_id" and addressed by
// public_id.
type syntheticsTests struct {
	*restType
}

func newSyntheticsTests(destination transport.Client) *syntheticsTests {
	return &syntheticsTests{
		restType: &restType{
			name:        syntheticsTestsType,
			destination: destination,
			itemsField:  "tests",
			readOnly:    []string{"/deleted_at", "/org_id", "/public_id", "/monitor_id", "/modified_at", "/created_at", "/creator", "/created_by", "/modified_by"},
			config: resourcetype.Config{
				BasePath: "/api/v1/synthetics/tests",
				ExcludedAttributes: []string{
					"/deleted_at",
					"/org_id",
					"/public_id",
					"/monitor_id",
					"/modified_at",
					"/created_at",
					"/creator",
					"/created_by",
					"/modified_by",
				},
				ExcludedAttributesRE: []*regexp.Regexp{
					regexp.MustCompile(`updatedAt`),
					regexp.MustCompile(`notify_audit`),
					regexp.MustCompile(`locked`),
					regexp.MustCompile(`include_tags`),
					regexp.MustCompile(`new_host_delay`),
					regexp.MustCompile(`notify_no_data`),
				},
				Connections: []resourcetype.Connection{
					{Field: "locations", Type: syntheticsPrivateLocationType},
				},
				IDPointer: "/public_id",
			},
		},
	}
}

func (t *syntheticsTests) Import(record resource.Record) (string, error) {
	publicID := stringAt(record, "/public_id")
	monitorID := stringAt(record, "/monitor_id")
	if publicID == "" || monitorID == "" {
		return "", faults.NewValidationError("synthetics test has no public_id or monitor_id", nil)
	}
	return publicID + syntheticsTestKeySeparator + monitorID, nil
}

func (t *syntheticsTests) Delete(ctx context.Context, _ string, current resource.Record) error {
	publicID := stringAt(current, "/public_id")
	if publicID == "" {
		return faults.NewValidationError("synthetics test destination record has no public_id", nil)
	}
	_, err := t.destination.Post(ctx, syntheticsTestsDeletePath, map[string]any{"public_ids": []any{publicID}})
	return err
}

// syntheticsGlobalVariables adopts destination variables of the same name
// and resolves the test they are parsed from by public_id.
type syntheticsGlobalVariables struct {
	*restType

	mu                sync.RWMutex
	destinationByName map[string]resource.Record
}

func newSyntheticsGlobalVariables(destination transport.Client) *syntheticsGlobalVariables {
	return &syntheticsGlobalVariables{
		restType: &restType{
			name:        "synthetics_global_variables",
			destination: destination,
			itemsField:  "variables",
			readOnly:    []string{"/id", "/created_at", "/modified_at", "/created_by", "/modified_by"},
			config: resourcetype.Config{
				BasePath:           "/api/v1/synthetics/variables",
				ExcludedAttributes: []string{"/id", "/created_at", "/modified_at", "/created_by", "/modified_by", "/value/value"},
				Connections: []resourcetype.Connection{
					{Field: "parse_test_public_id", Type: syntheticsTestsType},
				},
				DedupeBy: "/name",
			},
		},
	}
}

func (t *syntheticsGlobalVariables) PreApplyHook(ctx context.Context, _ map[string]resource.Record) (map[string]resource.Record, error) {
	existing, err := t.FetchAll(ctx, t.destination)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]resource.Record, len(existing))
	for _, variable := range existing {
		if name := stringAt(variable, t.config.DedupeBy); name != "" {
			byName[name] = variable
		}
	}

	t.mu.Lock()
	t.destinationByName = byName
	t.mu.Unlock()
	return nil, nil
}

func (t *syntheticsGlobalVariables) Create(ctx context.Context, key string, record resource.Record) (resource.Record, error) {
	t.mu.RLock()
	existing, found := t.destinationByName[stringAt(record, t.config.DedupeBy)]
	t.mu.RUnlock()

	if found {
		logging.Debug(ctx, "Adopting existing destination global variable", "key", key)
		return t.restType.adopt(ctx, key, record, existing)
	}
	return t.restType.Create(ctx, key, record)
}

// ConnectID matches test keys by their public_id prefix since the variable
// only knows the public_id.
func (t *syntheticsGlobalVariables) ConnectID(field string, record resource.Record, target resourcetype.Target) error {
	if target.Type == nil || target.Type.Name() != syntheticsTestsType {
		return resourcetype.ConnectIDs(field, record, target)
	}

	targetConfig := target.Type.Config()
	missing := make([]string, 0)
	resource.WalkField(record, field, func(ref resource.FieldRef) {
		publicID, ok := resource.ScalarString(ref.Value)
		if !ok {
			return
		}
		for key, destination := range target.Destination {
			if !strings.HasPrefix(key, publicID+syntheticsTestKeySeparator) {
				continue
			}
			if id, found := targetConfig.DestinationID(destination); found {
				ref.Set(resourcetype.ReferenceValue(ref.Value, id))
				return
			}
		}
		missing = append(missing, publicID)
	})

	if len(missing) > 0 {
		return resourcetype.NewConnectionError(syntheticsTestsType, missing)
	}
	return nil
}
