package orchestrator

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/internal/providers/state/fsstore"
	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/state"
	"github.com/crmarques/orgsync/transport"
)

// fakeOrg is an in-memory destination org assigning sequential IDs.
type fakeOrg struct {
	mu         sync.Mutex
	nextID     int64
	objects    map[int64]resource.Record
	creates    int
	updates    int
	deletes    int
	failCreate map[string]bool
}

func newFakeOrg() *fakeOrg {
	return &fakeOrg{nextID: 1000, objects: map[int64]resource.Record{}, failCreate: map[string]bool{}}
}

func (o *fakeOrg) create(record resource.Record) (resource.Record, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if name, _ := record["name"].(string); o.failCreate[name] {
		return nil, faults.NewTypedError(faults.ValidationError, "rejected "+name, nil)
	}
	o.creates++
	id := o.nextID
	o.nextID++

	created := resource.CopyRecord(record)
	created["id"] = id
	created["created_at"] = "2024-01-01T00:00:00Z"
	o.objects[id] = created
	return resource.CopyRecord(created), nil
}

func (o *fakeOrg) update(record resource.Record, current resource.Record) (resource.Record, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id, _ := current["id"].(int64)
	if _, found := o.objects[id]; !found {
		return nil, faults.NewTypedError(faults.NotFoundError, "object not found", nil)
	}
	o.updates++
	updated := resource.CopyRecord(record)
	updated["id"] = id
	updated["created_at"] = current["created_at"]
	o.objects[id] = updated
	return resource.CopyRecord(updated), nil
}

func (o *fakeOrg) delete(current resource.Record) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	id, _ := current["id"].(int64)
	if _, found := o.objects[id]; !found {
		return faults.NewTypedError(faults.NotFoundError, "object not found", nil)
	}
	o.deletes++
	delete(o.objects, id)
	return nil
}

func (o *fakeOrg) counts() (int, int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.creates, o.updates, o.deletes
}

type fakeType struct {
	resourcetype.Base
	name     string
	config   resourcetype.Config
	org      *fakeOrg
	mu       sync.Mutex
	source   []resource.Record
	fetchErr error
	hookErr  error
}

func newFakeType(name string, org *fakeOrg, connections ...resourcetype.Connection) *fakeType {
	return &fakeType{
		name: name,
		org:  org,
		config: resourcetype.Config{
			BasePath:             "/api/v1/" + name,
			ExcludedAttributes:   []string{"/id", "/created_at"},
			ExcludedAttributesRE: []*regexp.Regexp{regexp.MustCompile(`updatedAt$`)},
			Connections:          connections,
		},
	}
}

func (f *fakeType) setSource(records ...resource.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.source = records
}

func (f *fakeType) setFetchError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = err
}

func (f *fakeType) setHookError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hookErr = err
}

func (f *fakeType) Name() string                 { return f.name }
func (f *fakeType) Config() resourcetype.Config { return f.config }

func (f *fakeType) FetchAll(context.Context, transport.Client) ([]resource.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	records := make([]resource.Record, len(f.source))
	for idx, record := range f.source {
		records[idx] = resource.CopyRecord(record)
	}
	return records, nil
}

func (f *fakeType) PreApplyHook(context.Context, map[string]resource.Record) (map[string]resource.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return nil, f.hookErr
}

func (f *fakeType) Import(record resource.Record) (string, error) {
	if record["ignored"] == true {
		return "", resourcetype.ErrSkipImport
	}
	key, ok := resource.LookupString(record, "/id")
	if !ok {
		return "", errors.New("record has no id")
	}
	return key, nil
}

func (f *fakeType) Create(_ context.Context, _ string, record resource.Record) (resource.Record, error) {
	return f.org.create(record)
}

func (f *fakeType) Update(_ context.Context, _ string, record resource.Record, current resource.Record) (resource.Record, error) {
	return f.org.update(record, current)
}

func (f *fakeType) Delete(_ context.Context, _ string, current resource.Record) error {
	return f.org.delete(current)
}

// stubClient satisfies transport.Client for fake types that ignore it.
type stubClient struct{}

func (stubClient) Get(context.Context, string, map[string]string) (resource.Value, error) {
	return nil, nil
}
func (stubClient) Post(context.Context, string, resource.Value) (resource.Value, error) {
	return nil, nil
}
func (stubClient) Patch(context.Context, string, resource.Value) (resource.Value, error) {
	return nil, nil
}
func (stubClient) Put(context.Context, string, resource.Value) (resource.Value, error) {
	return nil, nil
}
func (stubClient) Delete(context.Context, string, resource.Value) (resource.Value, error) {
	return nil, nil
}
func (stubClient) Host() string { return "stub.example.com" }

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	fetches  int
}

func (c *countingRecorder) RecordOutcome(resourceType string, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = map[string]int{}
	}
	c.outcomes[resourceType+"/"+outcome]++
}

func (c *countingRecorder) RecordFetchFailure(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches++
}

func newTestOrchestrator(t *testing.T, types ...resourcetype.ResourceType) *DefaultOrchestrator {
	t.Helper()

	registry, err := resourcetype.NewRegistry(types...)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}
	return &DefaultOrchestrator{
		Registry:    registry,
		Source:      stubClient{},
		Destination: stubClient{},
		Store:       fsstore.NewStateStore(t.TempDir()),
		MaxWorkers:  4,
	}
}

func loadState(t *testing.T, orchestrator *DefaultOrchestrator, side state.Side, typeName string) map[string]resource.Record {
	t.Helper()

	records, err := orchestrator.Store.Load(context.Background(), side, typeName)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return records
}

func reportFor(t *testing.T, report Report, typeName string) TypeReport {
	t.Helper()

	for _, item := range report.Types {
		if item.Type == typeName {
			return item
		}
	}
	t.Fatalf("report has no entry for %q: %#v", typeName, report)
	return TypeReport{}
}

func mustImport(t *testing.T, orchestrator *DefaultOrchestrator, opts ImportOptions) Report {
	t.Helper()

	report, err := orchestrator.Import(context.Background(), opts)
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	return report
}

func mustSync(t *testing.T, orchestrator *DefaultOrchestrator, opts Options) Report {
	t.Helper()

	report, err := orchestrator.Sync(context.Background(), opts)
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	return report
}
