package resource

import (
	"reflect"
	"testing"
)

func TestWalkFieldReplacesNestedScalars(t *testing.T) {
	t.Parallel()

	record := map[string]any{
		"widgets": []any{
			map[string]any{"definition": map[string]any{"alert_id": "101"}},
			map[string]any{"definition": map[string]any{"type": "note"}},
			map[string]any{"definition": map[string]any{"alert_id": "102"}},
		},
		"locations": []any{"aws:us-east-1", "pl:private-1"},
	}

	var seen []any
	WalkField(record, "widgets.definition.alert_id", func(ref FieldRef) {
		seen = append(seen, ref.Value)
		ref.Set("dest-" + ref.Value.(string))
	})
	if !reflect.DeepEqual(seen, []any{"101", "102"}) {
		t.Fatalf("unexpected visited values %#v", seen)
	}

	WalkField(record, "locations", func(ref FieldRef) {
		if ref.Value == "pl:private-1" {
			ref.Set("pl:dest-1")
		}
	})

	widgets := record["widgets"].([]any)
	if widgets[0].(map[string]any)["definition"].(map[string]any)["alert_id"] != "dest-101" {
		t.Fatalf("expected first widget rewritten, got %#v", widgets[0])
	}
	if widgets[2].(map[string]any)["definition"].(map[string]any)["alert_id"] != "dest-102" {
		t.Fatalf("expected third widget rewritten, got %#v", widgets[2])
	}
	if !reflect.DeepEqual(record["locations"], []any{"aws:us-east-1", "pl:dest-1"}) {
		t.Fatalf("unexpected locations %#v", record["locations"])
	}
}

func TestWalkFieldIgnoresMissingAndObjects(t *testing.T) {
	t.Parallel()

	record := map[string]any{"options": map[string]any{"nested": map[string]any{"a": "b"}}}
	calls := 0
	WalkField(record, "options.nested", func(FieldRef) { calls++ })
	WalkField(record, "absent.field", func(FieldRef) { calls++ })
	WalkField(record, "", func(FieldRef) { calls++ })
	if calls != 0 {
		t.Fatalf("expected no visits, got %d", calls)
	}
}
