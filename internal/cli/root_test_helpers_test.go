package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/crmarques/orgsync/config"
	"github.com/crmarques/orgsync/orchestrator"
	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/transport"
)

const widgetsPath = "/api/v1/widgets"

// fakeOrg serves a widgets collection and the key validation endpoint.
type fakeOrg struct {
	mu        sync.Mutex
	nextID    int64
	widgets   map[string]map[string]any
	rejectKey bool
	deletes   []string
	server    *httptest.Server
}

func newFakeOrg(t *testing.T, firstID int64, widgets ...map[string]any) *fakeOrg {
	t.Helper()

	org := &fakeOrg{nextID: firstID, widgets: map[string]map[string]any{}}
	for _, widget := range widgets {
		org.widgets[fmt.Sprint(widget["id"])] = widget
	}
	org.server = httptest.NewServer(http.HandlerFunc(org.handle))
	t.Cleanup(org.server.Close)
	return org
}

func (o *fakeOrg) handle(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	defer o.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.Header.Get("DD-API-KEY") == "" || o.rejectKey {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["Forbidden"]}`))
		return
	}

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, widgetsPath), "/")
	switch {
	case r.URL.Path == "/api/v1/validate":
		writeJSON(w, map[string]any{"valid": true})
	case r.Method == http.MethodGet && r.URL.Path == widgetsPath:
		keys := make([]string, 0, len(o.widgets))
		for key := range o.widgets {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		items := make([]any, 0, len(keys))
		for _, key := range keys {
			items = append(items, o.widgets[key])
		}
		writeJSON(w, map[string]any{"widgets": items})
	case r.Method == http.MethodPost && r.URL.Path == widgetsPath:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["id"] = o.nextID
		o.widgets[strconv.FormatInt(o.nextID, 10)] = body
		o.nextID++
		writeJSON(w, body)
	case r.Method == http.MethodPut && o.widgets[id] != nil:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["id"] = o.widgets[id]["id"]
		o.widgets[id] = body
		writeJSON(w, body)
	case r.Method == http.MethodDelete && o.widgets[id] != nil:
		delete(o.widgets, id)
		o.deletes = append(o.deletes, id)
		writeJSON(w, map[string]any{})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":["Not found"]}`))
	}
}

func (o *fakeOrg) snapshot() map[string]map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()

	copied := make(map[string]map[string]any, len(o.widgets))
	for key, value := range o.widgets {
		copied[key] = value
	}
	return copied
}

func (o *fakeOrg) reject() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejectKey = true
}

func (o *fakeOrg) remove(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.widgets, id)
}

func writeJSON(w http.ResponseWriter, value any) {
	_ = json.NewEncoder(w).Encode(value)
}

// widgetType syncs the fakeOrg widgets collection.
type widgetType struct {
	resourcetype.Base
	destination transport.Client
}

func (widgetType) Name() string {
	return "widgets"
}

func (widgetType) Config() resourcetype.Config {
	return resourcetype.Config{BasePath: widgetsPath, ExcludedAttributes: []string{"/id"}}
}

func (widgetType) FetchAll(ctx context.Context, client transport.Client) ([]resource.Record, error) {
	response, err := client.Get(ctx, widgetsPath, nil)
	if err != nil {
		return nil, err
	}
	return transport.ExtractItems(response, "widgets")
}

func (widgetType) Import(record resource.Record) (string, error) {
	key, found := resource.LookupString(record, "/id")
	if !found {
		return "", errors.New("widget has no id")
	}
	return key, nil
}

func (w widgetType) Create(ctx context.Context, _ string, record resource.Record) (resource.Record, error) {
	body := resource.CopyRecord(record)
	delete(body, "id")
	response, err := w.destination.Post(ctx, widgetsPath, body)
	if err != nil {
		return nil, err
	}
	created, _ := response.(map[string]any)
	return created, nil
}

func (w widgetType) Update(ctx context.Context, _ string, record resource.Record, current resource.Record) (resource.Record, error) {
	id, _ := resource.ScalarString(current["id"])
	body := resource.CopyRecord(record)
	delete(body, "id")
	response, err := w.destination.Put(ctx, widgetsPath+"/"+id, body)
	if err != nil {
		return nil, err
	}
	updated, _ := response.(map[string]any)
	return updated, nil
}

func (w widgetType) Delete(ctx context.Context, _ string, current resource.Record) error {
	id, _ := resource.ScalarString(current["id"])
	_, err := w.destination.Delete(ctx, widgetsPath+"/"+id, nil)
	return err
}

func widgetRegistry(_ transport.Client, destination transport.Client) (*resourcetype.Registry, error) {
	return resourcetype.NewRegistry(widgetType{destination: destination})
}

type cliEnv struct {
	source      *fakeOrg
	destination *fakeOrg
	stateDir    string
	env         map[string]string
	confirm     orchestrator.ConfirmFunc
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	return &cliEnv{
		source: newFakeOrg(t, 1,
			map[string]any{"id": 1, "name": "cpu", "threshold": 90},
			map[string]any{"id": 2, "name": "disk", "threshold": 80},
		),
		destination: newFakeOrg(t, 100),
		stateDir:    t.TempDir(),
		env:         map[string]string{},
	}
}

func (e *cliEnv) lookupEnv(name string) (string, bool) {
	value, ok := e.env[name]
	return value, ok
}

func (e *cliEnv) orgArgs() []string {
	return []string{
		"--source-api-key", "source-api",
		"--source-app-key", "source-app",
		"--source-api-url", e.source.server.URL,
		"--destination-api-key", "destination-api",
		"--destination-app-key", "destination-app",
		"--destination-api-url", e.destination.server.URL,
		"--state-dir", e.stateDir,
		"--http-client-retry-timeout", "0",
	}
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func (e *cliEnv) run(t *testing.T, args ...string) cliResult {
	t.Helper()

	root := NewRootCommand(Dependencies{
		NewRegistry: widgetRegistry,
		LookupEnv:   config.LookupEnvFunc(e.lookupEnv),
		Confirm:     e.confirm,
	})
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) cliResult {
	t.Helper()

	result := e.run(t, args...)
	if result.err != nil {
		t.Fatalf("%v returned error: %v\nstderr:\n%s", args, result.err, result.stderr)
	}
	return result
}
