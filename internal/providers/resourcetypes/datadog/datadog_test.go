package datadog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/crmarques/orgsync/faults"
	httptransport "github.com/crmarques/orgsync/internal/providers/transport/http"
	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   any
}

// fakeAPI answers "METHOD /path" routes with canned JSON and records every
// request it receives.
type fakeAPI struct {
	mu       sync.Mutex
	routes   map[string]string
	requests []recordedRequest
	server   *httptest.Server
}

func newFakeAPI(t *testing.T, routes map[string]string) *fakeAPI {
	t.Helper()

	api := &fakeAPI{routes: routes}
	api.server = httptest.NewServer(http.HandlerFunc(api.handle))
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	var body any
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}

	a.mu.Lock()
	a.requests = append(a.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
	response, found := a.routes[r.Method+" "+r.URL.Path]
	a.mu.Unlock()

	if !found {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, response)
}

func (a *fakeAPI) requestsFor(method string, path string) []recordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()

	matched := make([]recordedRequest, 0)
	for _, request := range a.requests {
		if request.Method == method && request.Path == path {
			matched = append(matched, request)
		}
	}
	return matched
}

func (a *fakeAPI) client(t *testing.T) *httptransport.Client {
	t.Helper()

	client, err := httptransport.NewClient(httptransport.Options{
		BaseURL: a.server.URL,
		APIKey:  "api",
		AppKey:  "app",
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestNewRegistryOrder(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(nil, nil)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}
	want := []string{
		"roles",
		"users",
		"synthetics_private_locations",
		"synthetics_tests",
		"synthetics_global_variables",
		"monitors",
		"downtimes",
		"service_level_objectives",
		"dashboards",
		"dashboard_lists",
		"logs_custom_pipelines",
		"integrations_aws",
	}
	if diff := cmp.Diff(want, registry.Names()); diff != "" {
		t.Fatalf("registry order mismatch (-want +got):\n%s", diff)
	}
}

func TestRolesAdoptExistingRoleAndRemapPermissions(t *testing.T) {
	t.Parallel()

	source := newFakeAPI(t, map[string]string{
		"GET /api/v2/permissions": `{"data":[{"id":"sp1","attributes":{"name":"logs_read"}}]}`,
	})
	destination := newFakeAPI(t, map[string]string{
		"GET /api/v2/permissions": `{"data":[{"id":"dp1","attributes":{"name":"logs_read"}}]}`,
		"GET /api/v2/roles":       `{"data":[{"id":"dr1","type":"roles","attributes":{"name":"Admin"}}]}`,
		"PATCH /api/v2/roles/dr1": `{"data":{"id":"dr1","type":"roles","attributes":{"name":"Admin"}}}`,
		"POST /api/v2/roles":      `{"data":{"id":"dr2","type":"roles","attributes":{"name":"Viewer"}}}`,
	})

	rt := newRoles(source.client(t), destination.client(t))
	ctx := context.Background()
	if _, err := rt.PreApplyHook(ctx, nil); err != nil {
		t.Fatalf("PreApplyHook returned error: %v", err)
	}

	admin := resource.Record{
		"id":   "sr1",
		"type": "roles",
		"attributes": map[string]any{
			"name":       "Admin",
			"created_at": "2020-01-01",
		},
		"relationships": map[string]any{
			"permissions": map[string]any{"data": []any{map[string]any{"id": "sp1", "type": "permissions"}}},
		},
	}
	if err := rt.PreActionHook(ctx, "sr1", admin); err != nil {
		t.Fatalf("PreActionHook returned error: %v", err)
	}
	if got, _ := resource.LookupString(admin, "/relationships/permissions/data/0/id"); got != "dp1" {
		t.Fatalf("expected remapped permission dp1, got %q", got)
	}

	created, err := rt.Create(ctx, "sr1", admin)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created["id"] != "dr1" {
		t.Fatalf("expected adopted role dr1, got %#v", created)
	}
	patches := destination.requestsFor(http.MethodPatch, "/api/v2/roles/dr1")
	if len(patches) != 1 {
		t.Fatalf("expected one PATCH, got %d", len(patches))
	}
	if got, _ := resource.LookupString(patches[0].Body, "/data/id"); got != "dr1" {
		t.Fatalf("expected payload data.id dr1, got %q", got)
	}
	if _, found := resource.Lookup(patches[0].Body, "/data/attributes/created_at"); found {
		t.Fatal("expected read-only attributes to be stripped from payload")
	}

	viewer := resource.Record{"id": "sr2", "type": "roles", "attributes": map[string]any{"name": "Viewer"}}
	created, err = rt.Create(ctx, "sr2", viewer)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created["id"] != "dr2" {
		t.Fatalf("expected new role dr2, got %#v", created)
	}
	posts := destination.requestsFor(http.MethodPost, "/api/v2/roles")
	if len(posts) != 1 {
		t.Fatalf("expected one POST, got %d", len(posts))
	}
	if _, found := resource.Lookup(posts[0].Body, "/data/id"); found {
		t.Fatal("expected source id to be stripped from create payload")
	}
}

func TestRolesSkipPermissionRemapOnSameHost(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, map[string]string{
		"GET /api/v2/roles": `{"data":[]}`,
	})
	client := api.client(t)
	rt := newRoles(client, client)
	if _, err := rt.PreApplyHook(context.Background(), nil); err != nil {
		t.Fatalf("PreApplyHook returned error: %v", err)
	}
	if got := len(api.requestsFor(http.MethodGet, "/api/v2/permissions")); got != 0 {
		t.Fatalf("expected no permission lookups, got %d", got)
	}
}

func TestUsersAdoptWithoutUpdateWhenUnchanged(t *testing.T) {
	t.Parallel()

	destination := newFakeAPI(t, map[string]string{
		"GET /api/v2/users":       `{"data":[{"id":"du1","type":"users","attributes":{"handle":"ann@example.com","name":"Ann","created_at":"2021-01-01"}}]}`,
		"PATCH /api/v2/users/du1": `{"data":{"id":"du1","type":"users","attributes":{"handle":"ann@example.com","name":"Ann Lee"}}}`,
	})

	rt := newUsers(destination.client(t))
	ctx := context.Background()
	if _, err := rt.PreApplyHook(ctx, nil); err != nil {
		t.Fatalf("PreApplyHook returned error: %v", err)
	}

	ann := resource.Record{
		"id":         "u1",
		"type":       "users",
		"attributes": map[string]any{"handle": "ann@example.com", "name": "Ann", "created_at": "2020-05-05"},
	}
	adopted, err := rt.Create(ctx, "u1", ann)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if adopted["id"] != "du1" {
		t.Fatalf("expected adopted user du1, got %#v", adopted)
	}
	if got := len(destination.requestsFor(http.MethodPatch, "/api/v2/users/du1")); got != 0 {
		t.Fatalf("expected no PATCH for an unchanged user, got %d", got)
	}
	if got := len(destination.requestsFor(http.MethodPost, "/api/v2/users")); got != 0 {
		t.Fatalf("expected no POST for an adopted user, got %d", got)
	}

	ann["attributes"].(map[string]any)["name"] = "Ann Lee"
	if _, err := rt.Create(ctx, "u1", ann); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if got := len(destination.requestsFor(http.MethodPatch, "/api/v2/users/du1")); got != 1 {
		t.Fatalf("expected one PATCH for a changed user, got %d", got)
	}
}

func TestSyntheticsTests(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, map[string]string{
		"GET /api/v1/synthetics/tests":         `{"tests":[{"public_id":"abc-def","monitor_id":123,"locations":["pl:src","aws:eu-west-1"]}]}`,
		"PUT /api/v1/synthetics/tests/xyz-uvw": `{"public_id":"xyz-uvw","monitor_id":789,"name":"updated"}`,
		"POST /api/v1/synthetics/tests/delete": `{"deleted_tests":[]}`,
	})
	rt := newSyntheticsTests(api.client(t))
	ctx := context.Background()

	records, err := rt.FetchAll(ctx, api.client(t))
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	key, err := rt.Import(records[0])
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if key != "abc-def#123" {
		t.Fatalf("expected composite key, got %q", key)
	}

	locations := targetOf(newSyntheticsPrivateLocations(nil), map[string]resource.Record{"pl:src": {"id": "pl:dst"}})
	if err := rt.ConnectID("locations", records[0], locations); err != nil {
		t.Fatalf("ConnectID returned error: %v", err)
	}
	if diff := cmp.Diff([]any{"pl:dst", "aws:eu-west-1"}, records[0]["locations"]); diff != "" {
		t.Fatalf("locations mismatch (-want +got):\n%s", diff)
	}

	current := resource.Record{"public_id": "xyz-uvw", "monitor_id": int64(789)}
	updated, err := rt.Update(ctx, key, records[0], current)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated["name"] != "updated" {
		t.Fatalf("unexpected update response %#v", updated)
	}
	puts := api.requestsFor(http.MethodPut, "/api/v1/synthetics/tests/xyz-uvw")
	if _, found := resource.Lookup(puts[0].Body, "/public_id"); found {
		t.Fatal("expected public_id to be stripped from update payload")
	}

	if err := rt.Delete(ctx, key, current); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	deletes := api.requestsFor(http.MethodPost, "/api/v1/synthetics/tests/delete")
	if diff := cmp.Diff(map[string]any{"public_ids": []any{"xyz-uvw"}}, deletes[0].Body); diff != "" {
		t.Fatalf("delete body mismatch (-want +got):\n%s", diff)
	}
}

func TestSyntheticsPrivateLocationsFetchOnlyPrivate(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, map[string]string{
		"GET /api/v1/synthetics/locations":                `{"locations":[{"id":"aws:us-east-1"},{"id":"pl:abc"}]}`,
		"GET /api/v1/synthetics/private-locations/pl:abc": `{"id":"pl:abc","name":"office"}`,
		"POST /api/v1/synthetics/private-locations":       `{"private_location":{"id":"pl:new","name":"office"},"config":{"secret":"x"}}`,
	})
	rt := newSyntheticsPrivateLocations(api.client(t))

	records, err := rt.FetchAll(context.Background(), api.client(t))
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if len(records) != 1 || records[0]["name"] != "office" {
		t.Fatalf("expected the private location only, got %#v", records)
	}

	created, err := rt.Create(context.Background(), "pl:abc", records[0])
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if diff := cmp.Diff(resource.Record{"id": "pl:new", "name": "office"}, created); diff != "" {
		t.Fatalf("created record mismatch (-want +got):\n%s", diff)
	}
}

func TestSyntheticsGlobalVariablesConnectByPublicID(t *testing.T) {
	t.Parallel()

	rt := newSyntheticsGlobalVariables(nil)
	tests := targetOf(newSyntheticsTests(nil), map[string]resource.Record{
		"abc-def#123": {"public_id": "xyz-uvw"},
	})

	record := resource.Record{"name": "TOKEN", "parse_test_public_id": "abc-def"}
	if err := rt.ConnectID("parse_test_public_id", record, tests); err != nil {
		t.Fatalf("ConnectID returned error: %v", err)
	}
	if record["parse_test_public_id"] != "xyz-uvw" {
		t.Fatalf("expected destination public id, got %#v", record["parse_test_public_id"])
	}

	missing := resource.Record{"name": "OTHER", "parse_test_public_id": "zzz"}
	err := rt.ConnectID("parse_test_public_id", missing, tests)
	if !faults.IsCategory(err, faults.ConnectionError) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestImportIgnoresUnsyncedRecords(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		rt     resourcetype.ResourceType
		record resource.Record
	}{
		{name: "synthetics_monitor", rt: newMonitors(nil), record: resource.Record{"id": int64(1), "type": "synthetics alert"}},
		{name: "read_only_pipeline", rt: newLogsCustomPipelines(nil), record: resource.Record{"id": "p1", "is_read_only": true}},
		{name: "canceled_downtime", rt: newDowntimes(nil), record: resource.Record{"id": int64(2), "canceled": int64(1700000000)}},
		{name: "disabled_user", rt: newUsers(nil), record: resource.Record{"id": "u1", "attributes": map[string]any{"disabled": true}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := tc.rt.Import(tc.record)
			if !errors.Is(err, resourcetype.ErrSkipImport) {
				t.Fatalf("expected ErrSkipImport, got %v", err)
			}
		})
	}

	key, err := newMonitors(nil).Import(resource.Record{"id": int64(7), "type": "metric alert"})
	if err != nil || key != "7" {
		t.Fatalf("expected key 7, got %q (%v)", key, err)
	}
}

func TestServiceLevelObjectivesUnwrapData(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, map[string]string{
		"POST /api/v1/slo":           `{"data":[{"id":"slo-dst","name":"availability"}]}`,
		"DELETE /api/v1/slo/slo-dst": `{"data":["slo-dst"]}`,
	})
	rt := newServiceLevelObjectives(api.client(t))

	created, err := rt.Create(context.Background(), "slo-src", resource.Record{"id": "slo-src", "name": "availability"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created["id"] != "slo-dst" {
		t.Fatalf("expected unwrapped SLO, got %#v", created)
	}

	if err := rt.Delete(context.Background(), "slo-src", created); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	deletes := api.requestsFor(http.MethodDelete, "/api/v1/slo/slo-dst")
	if len(deletes) != 1 || deletes[0].Query != "force=true" {
		t.Fatalf("expected forced delete, got %#v", deletes)
	}
}

func TestDashboardListsSyncItems(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, map[string]string{
		"GET /api/v1/dashboard/lists/manual":               `{"dashboard_lists":[{"id":11,"name":"team"}]}`,
		"GET /api/v2/dashboard/lists/manual/11/dashboards": `{"dashboards":[{"id":"abc-123","type":"custom_timeboard","title":"ignored"}]}`,
		"POST /api/v1/dashboard/lists/manual":              `{"id":22,"name":"team"}`,
		"PUT /api/v2/dashboard/lists/manual/22/dashboards": `{"added_dashboards_to_list":[]}`,
	})
	rt := newDashboardLists(api.client(t))
	ctx := context.Background()

	lists, err := rt.FetchAll(ctx, api.client(t))
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	wantItems := []any{map[string]any{"id": "abc-123", "type": "custom_timeboard"}}
	if diff := cmp.Diff(wantItems, lists[0]["dashboards"]); diff != "" {
		t.Fatalf("list items mismatch (-want +got):\n%s", diff)
	}

	created, err := rt.Create(ctx, "11", lists[0])
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created["id"] != int64(22) {
		t.Fatalf("expected destination list id 22, got %#v", created["id"])
	}
	puts := api.requestsFor(http.MethodPut, "/api/v2/dashboard/lists/manual/22/dashboards")
	if len(puts) != 1 {
		t.Fatalf("expected one items update, got %d", len(puts))
	}
	if diff := cmp.Diff(map[string]any{"dashboards": wantItems}, puts[0].Body); diff != "" {
		t.Fatalf("items payload mismatch (-want +got):\n%s", diff)
	}
}

func TestIntegrationsAWSAddressedByQuery(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, map[string]string{
		"POST /api/v1/integration/aws":   `{"external_id":"ext-1"}`,
		"PUT /api/v1/integration/aws":    `{}`,
		"DELETE /api/v1/integration/aws": `{}`,
	})
	rt := newIntegrationsAWS(api.client(t))
	ctx := context.Background()
	record := resource.Record{"account_id": "123456789012", "role_name": "DatadogRole", "external_id": "src-ext"}

	key, err := rt.Import(record)
	if err != nil || key != "123456789012" {
		t.Fatalf("expected account id key, got %q (%v)", key, err)
	}

	created, err := rt.Create(ctx, key, record)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created["external_id"] != "ext-1" {
		t.Fatalf("expected destination external id, got %#v", created)
	}

	if _, err := rt.Update(ctx, key, record, created); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	puts := api.requestsFor(http.MethodPut, "/api/v1/integration/aws")
	if len(puts) != 1 || puts[0].Query != "account_id=123456789012&role_name=DatadogRole" {
		t.Fatalf("expected update addressed by query, got %#v", puts)
	}

	if err := rt.Delete(ctx, key, created); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	deletes := api.requestsFor(http.MethodDelete, "/api/v1/integration/aws")
	want := map[string]any{"account_id": "123456789012", "role_name": "DatadogRole"}
	if diff := cmp.Diff(want, deletes[0].Body); diff != "" {
		t.Fatalf("delete body mismatch (-want +got):\n%s", diff)
	}
}

func TestDashboardsConnectWidgetReferences(t *testing.T) {
	t.Parallel()

	rt := newDashboards(nil)
	record := resource.Record{
		"widgets": []any{
			map[string]any{"definition": map[string]any{"type": "alert_graph", "alert_id": "100"}},
			map[string]any{"definition": map[string]any{
				"type": "group",
				"widgets": []any{
					map[string]any{"definition": map[string]any{"type": "slo", "slo_id": "slo-src"}},
				},
			}},
		},
	}
	monitors := targetOf(newMonitors(nil), map[string]resource.Record{"100": {"id": int64(900)}})
	slos := targetOf(newServiceLevelObjectives(nil), map[string]resource.Record{"slo-src": {"id": "slo-dst"}})
	targets := map[string]resourcetype.Target{"monitors": monitors, "service_level_objectives": slos}

	for _, connection := range rt.Config().Connections {
		if err := rt.ConnectID(connection.Field, record, targets[connection.Type]); err != nil {
			t.Fatalf("ConnectID(%s) returned error: %v", connection.Field, err)
		}
	}

	if got, _ := resource.LookupString(record, "/widgets/0/definition/alert_id"); got != "900" {
		t.Fatalf("expected alert_id 900, got %q", got)
	}
	if got, _ := resource.LookupString(record, "/widgets/1/definition/widgets/0/definition/slo_id"); got != "slo-dst" {
		t.Fatalf("expected nested slo_id slo-dst, got %q", got)
	}
}

func targetOf(rt resourcetype.ResourceType, destination map[string]resource.Record) resourcetype.Target {
	return resourcetype.Target{Type: rt, Destination: destination}
}
