// Package state holds the per-type record mappings persisted between runs.
package state

import (
	"context"

	"github.com/crmarques/orgsync/resource"
)

// Side names one of the two mappings kept per resource type.
type Side string

const (
	// Source holds records imported from the source org, keyed by stable key.
	Source Side = "source"
	// Destination holds what was last written to the destination org for
	// each source key.
	Destination Side = "destination"
)

// Store loads and saves whole per-type mappings. Loading a mapping that was
// never saved returns an empty map.
type Store interface {
	Load(ctx context.Context, side Side, typeName string) (map[string]resource.Record, error)
	Save(ctx context.Context, side Side, typeName string, records map[string]resource.Record) error
}

// Committer snapshots the persisted state, reporting whether anything changed.
type Committer interface {
	Commit(ctx context.Context, message string) (bool, error)
}

type TypeState struct {
	Source      map[string]resource.Record
	Destination map[string]resource.Record
}

func LoadTypeState(ctx context.Context, store Store, typeName string) (TypeState, error) {
	source, err := store.Load(ctx, Source, typeName)
	if err != nil {
		return TypeState{}, err
	}
	destination, err := store.Load(ctx, Destination, typeName)
	if err != nil {
		return TypeState{}, err
	}
	return TypeState{Source: source, Destination: destination}, nil
}
