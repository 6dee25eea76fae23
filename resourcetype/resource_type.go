// Package resourcetype defines the contract every synchronizable resource
// category implements, its static configuration and the ordered registry
// the orchestrator walks.
package resourcetype

import (
	"context"
	"errors"

	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/transport"
)

// ErrSkipImport is returned by Import for records the type ignores.
var ErrSkipImport = errors.New("record skipped on import")

type ResourceType interface {
	Name() string
	Config() Config

	// FetchAll lists every object of the type visible to client.
	FetchAll(ctx context.Context, client transport.Client) ([]resource.Record, error)
	// Import derives the stable key of a source record.
	Import(record resource.Record) (string, error)

	// PreApplyHook runs once per type before any record is processed. A nil
	// result keeps the input set.
	PreApplyHook(ctx context.Context, records map[string]resource.Record) (map[string]resource.Record, error)
	// PreActionHook runs per record before dependency connection and may
	// mutate record in place.
	PreActionHook(ctx context.Context, key string, record resource.Record) error

	Create(ctx context.Context, key string, record resource.Record) (resource.Record, error)
	Update(ctx context.Context, key string, record resource.Record, current resource.Record) (resource.Record, error)
	Delete(ctx context.Context, key string, current resource.Record) error

	// ConnectID rewrites the references held under field from source IDs to
	// the destination IDs of target.
	ConnectID(field string, record resource.Record, target Target) error
}

// Target is a referenced resource type together with its destination state.
type Target struct {
	Type        ResourceType
	Destination map[string]resource.Record
}

// Base carries the default hook and connection behavior. Concrete types
// embed it and override what they need.
type Base struct{}

func (Base) PreApplyHook(context.Context, map[string]resource.Record) (map[string]resource.Record, error) {
	return nil, nil
}

func (Base) PreActionHook(context.Context, string, resource.Record) error {
	return nil
}

func (Base) ConnectID(field string, record resource.Record, target Target) error {
	return ConnectIDs(field, record, target)
}
