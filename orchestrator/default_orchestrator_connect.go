package orchestrator

import (
	"context"
	"fmt"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/logging"
	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
)

type connectResult int

const (
	connectResolved connectResult = iota
	connectSkipped
)

// connectRecord resolves every declared connection of candidate in
// declaration order. An unresolved reference skips the record, aborts the
// run under validate, or fails the record when applying. Otherwise it is
// logged and left in place so diffs still reports the record.
func connectRecord(
	ctx context.Context,
	rt resourcetype.ResourceType,
	key string,
	candidate resource.Record,
	targets map[string]resourcetype.Target,
	opts Options,
	apply bool,
) (connectResult, error) {
	logger := logging.FromContext(ctx).WithValues("key", key)

	for _, connection := range rt.Config().Connections {
		target, found := targets[connection.Type]
		if !found {
			return connectResolved, faults.NewInternalError(
				fmt.Sprintf("destination state of %q was not loaded", connection.Type),
				nil,
			)
		}

		err := rt.ConnectID(connection.Field, candidate, target)
		if err == nil {
			continue
		}
		if !faults.IsCategory(err, faults.ConnectionError) {
			return connectResolved, err
		}

		switch {
		case opts.SkipFailedConnections:
			logger.Info("Skipping resource", "reason", err.Error())
			return connectSkipped, nil
		case opts.Validate:
			return connectResolved, &fatalError{err: err}
		case apply:
			return connectResolved, err
		default:
			logger.Error(err, "Unresolved resource connection", "field", connection.Field)
		}
	}

	return connectResolved, nil
}

// fatalError marks errors that abort the whole run instead of failing a
// single record.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }

func (e *fatalError) Unwrap() error { return e.err }
