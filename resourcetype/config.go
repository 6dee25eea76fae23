package resourcetype

import (
	"regexp"

	"github.com/crmarques/orgsync/resource"
)

const DefaultIDPointer = "/id"

// Connection declares that the values under Field (a dotted path that
// traverses arrays) reference objects of Type.
type Connection struct {
	Field string `json:"field" yaml:"field"`
	Type  string `json:"type" yaml:"type"`
}

type Config struct {
	// BasePath is the collection endpoint, e.g. /api/v1/monitor.
	BasePath string
	// ExcludedAttributes are exact JSON pointers ignored by the diff.
	ExcludedAttributes []string
	// ExcludedAttributesRE are matched against the JSON pointer of every field.
	ExcludedAttributesRE []*regexp.Regexp
	Connections          []Connection
	// IDPointer locates the org-assigned ID inside a record.
	IDPointer string
	// ReferencePattern restricts which reference values other types connect
	// to this type. Nil accepts every scalar.
	ReferencePattern *regexp.Regexp
	// DedupeBy is the pointer of the natural key used to adopt an existing
	// destination object instead of creating a duplicate.
	DedupeBy string
}

func (c Config) ResolvedIDPointer() string {
	if c.IDPointer == "" {
		return DefaultIDPointer
	}
	return c.IDPointer
}

// DestinationID returns the org-assigned ID of record.
func (c Config) DestinationID(record resource.Record) (resource.Value, bool) {
	if record == nil {
		return nil, false
	}
	value, found := resource.Lookup(record, c.ResolvedIDPointer())
	if !found || value == nil {
		return nil, false
	}
	return value, true
}
