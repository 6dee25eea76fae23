package resource

// Value is any decoded JSON value after Normalize: nil, bool, string, int64,
// float64, []any or map[string]any.
type Value = any

// Record is one resource instance as exchanged with the remote API.
type Record = map[string]any

const (
	DiffAdd     = "add"
	DiffRemove  = "remove"
	DiffReplace = "replace"
)

// DiffEntry describes one difference between the synced destination copy of
// a record and the candidate that would be sent next.
type DiffEntry struct {
	Key         string `json:"key" yaml:"key"`
	Path        string `json:"path" yaml:"path"`
	Operation   string `json:"operation" yaml:"operation"`
	Destination Value  `json:"destination,omitempty" yaml:"destination,omitempty"`
	Candidate   Value  `json:"candidate,omitempty" yaml:"candidate,omitempty"`
}
