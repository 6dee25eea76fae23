package resourcetype

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/resource"
)

// ConnectIDs is the default ConnectID. Every scalar under field that
// matches the target's ReferencePattern is looked up as a key of the
// target destination state and replaced with that record's ID, keeping
// string references as strings.
func ConnectIDs(field string, record resource.Record, target Target) error {
	if target.Type == nil {
		return faults.NewInternalError("connection target type is required", nil)
	}
	targetConfig := target.Type.Config()

	missing := make([]string, 0)
	resource.WalkField(record, field, func(ref resource.FieldRef) {
		sourceID, ok := resource.ScalarString(ref.Value)
		if !ok {
			return
		}
		if targetConfig.ReferencePattern != nil && !targetConfig.ReferencePattern.MatchString(sourceID) {
			return
		}

		destinationID, found := targetConfig.DestinationID(target.Destination[sourceID])
		if !found {
			missing = append(missing, sourceID)
			return
		}
		ref.Set(ReferenceValue(ref.Value, destinationID))
	})

	if len(missing) > 0 {
		return NewConnectionError(target.Type.Name(), missing)
	}
	return nil
}

// ReferenceValue converts id to the representation of the value it
// replaces.
func ReferenceValue(previous resource.Value, id resource.Value) resource.Value {
	if _, isString := previous.(string); isString {
		if text, ok := resource.ScalarString(id); ok {
			return text
		}
	}
	return id
}

// NewConnectionError reports source IDs of targetType that have no
// destination counterpart yet.
func NewConnectionError(targetType string, ids []string) error {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return faults.NewTypedError(
		faults.ConnectionError,
		fmt.Sprintf("failed to connect resource: %s ids [%s] not found in destination", targetType, strings.Join(sorted, ", ")),
		nil,
	)
}
