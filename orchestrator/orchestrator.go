package orchestrator

import (
	"context"

	"github.com/crmarques/orgsync/resource"
)

type Importer interface {
	Import(ctx context.Context, opts ImportOptions) (Report, error)
}

type DiffReader interface {
	Diffs(ctx context.Context, opts Options) (Report, error)
}

type Synchronizer interface {
	Sync(ctx context.Context, opts Options) (Report, error)
}

type Cleaner interface {
	Cleanup(ctx context.Context, opts CleanupOptions) (Report, error)
}

type Preflighter interface {
	Preflight(ctx context.Context) error
}

type Orchestrator interface {
	Importer
	DiffReader
	Synchronizer
	Cleaner
	Preflighter
}

type ImportOptions struct {
	// Resources restricts the run to these type names; empty means all.
	Resources []string
	// Filters are "[type:]<jq expr>" expressions; a record is kept when
	// every filter scoped to its type yields a truthy value.
	Filters []string
}

type Options struct {
	Resources []string
	// SkipFailedConnections skips records whose references cannot be
	// resolved yet instead of processing them anyway.
	SkipFailedConnections bool
	// Validate turns unresolved references into a fatal error when
	// SkipFailedConnections is off.
	Validate bool
	// Filters use the ImportOptions syntax; source records they reject are
	// left out of the run.
	Filters []string
}

type CleanupMode string

const (
	CleanupForce   CleanupMode = "force"
	CleanupConfirm CleanupMode = "confirm"
)

// ConfirmFunc approves deleting keys of typeName from the destination org.
type ConfirmFunc func(ctx context.Context, typeName string, keys []string) (bool, error)

type CleanupOptions struct {
	Resources []string
	Mode      CleanupMode
	Confirm   ConfirmFunc
}

const (
	ActionAdd    = "add"
	ActionUpdate = "update"
)

// RecordDiff lists the changes a sync would make to one record.
type RecordDiff struct {
	Type    string               `json:"type" yaml:"type"`
	Key     string               `json:"key" yaml:"key"`
	Action  string               `json:"action" yaml:"action"`
	Entries []resource.DiffEntry `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// TypeReport counts the outcomes of one type. FetchError is set when the
// type could not be listed, either from the source on import or from the
// destination while preparing a sync.
type TypeReport struct {
	Type       string       `json:"type" yaml:"type"`
	Imported   int          `json:"imported,omitempty" yaml:"imported,omitempty"`
	Created    int          `json:"created,omitempty" yaml:"created,omitempty"`
	Updated    int          `json:"updated,omitempty" yaml:"updated,omitempty"`
	Unchanged  int          `json:"unchanged,omitempty" yaml:"unchanged,omitempty"`
	Skipped    int          `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Failed     int          `json:"failed,omitempty" yaml:"failed,omitempty"`
	Deleted    int          `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	ToAdd      int          `json:"toAdd,omitempty" yaml:"toAdd,omitempty"`
	ToUpdate   int          `json:"toUpdate,omitempty" yaml:"toUpdate,omitempty"`
	FetchError string       `json:"fetchError,omitempty" yaml:"fetchError,omitempty"`
	Diffs      []RecordDiff `json:"diffs,omitempty" yaml:"diffs,omitempty"`
}

type Report struct {
	Command string       `json:"command" yaml:"command"`
	Types   []TypeReport `json:"types" yaml:"types"`
}

// Failures counts failed records plus types whose listing failed.
func (r Report) Failures() int {
	total := 0
	for _, item := range r.Types {
		total += item.Failed
		if item.FetchError != "" {
			total++
		}
	}
	return total
}

func (r Report) Diffs() []RecordDiff {
	diffs := make([]RecordDiff, 0)
	for _, item := range r.Types {
		diffs = append(diffs, item.Diffs...)
	}
	return diffs
}
