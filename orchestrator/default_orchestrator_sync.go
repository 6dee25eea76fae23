package orchestrator

import (
	"context"
	"errors"
	"sort"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/logging"
	"github.com/crmarques/orgsync/metrics"
	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/state"
)

const (
	commandDiffs = "diffs"
	commandSync  = "sync"
)

// Diffs reports what Sync would change without touching the destination.
func (r *DefaultOrchestrator) Diffs(ctx context.Context, opts Options) (Report, error) {
	return r.run(ctx, commandDiffs, opts, false)
}

// Sync creates or updates every source record whose destination copy
// differs, persisting destination state after each type.
func (r *DefaultOrchestrator) Sync(ctx context.Context, opts Options) (Report, error) {
	return r.run(ctx, commandSync, opts, true)
}

func (r *DefaultOrchestrator) run(ctx context.Context, command string, opts Options, apply bool) (Report, error) {
	report := Report{Command: command, Types: []TypeReport{}}
	if err := r.validate(); err != nil {
		return report, err
	}

	selected, err := r.Registry.Select(opts.Resources)
	if err != nil {
		return report, err
	}
	filters, err := compileFilters(opts.Filters, func(name string) bool {
		_, found := r.Registry.Lookup(name)
		return found
	})
	if err != nil {
		return report, err
	}

	for _, rt := range selected {
		typeReport, err := r.processType(ctx, command, rt, opts, filters, apply)
		report.Types = append(report.Types, typeReport)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func (r *DefaultOrchestrator) processType(
	ctx context.Context,
	command string,
	rt resourcetype.ResourceType,
	opts Options,
	filters []recordFilter,
	apply bool,
) (typeReport TypeReport, err error) {
	name := rt.Name()
	typeReport = TypeReport{Type: name}
	ctx, span := r.startSpan(ctx, command, name)
	defer func() { endSpan(span, err) }()

	logger := logging.FromContext(ctx).WithValues("type", name)
	ctx = logging.WithLogger(ctx, logger)

	typeState, err := state.LoadTypeState(ctx, r.Store, name)
	if err != nil {
		return typeReport, err
	}
	if typeState.Destination == nil {
		typeState.Destination = map[string]resource.Record{}
	}
	if len(typeState.Source) == 0 {
		logging.Debug(ctx, "No source resources to process")
		return typeReport, nil
	}

	targets, err := r.targetsFor(ctx, rt)
	if err != nil {
		return typeReport, err
	}

	recorder := r.recorder()
	records := make(map[string]resource.Record, len(typeState.Source))
	for key, record := range typeState.Source {
		keep, filterErr := keepRecord(filters, name, record)
		if filterErr != nil {
			logger.Error(filterErr, "Failed to evaluate filter", "key", key)
			typeReport.Failed++
			recorder.RecordOutcome(name, metrics.OutcomeFailed)
			continue
		}
		if keep {
			records[key] = resource.CopyRecord(record)
		}
	}

	if len(records) == 0 {
		logging.Debug(ctx, "No source resources left after filtering")
		return typeReport, nil
	}

	// A failing hook leaves the type untouched for this run.
	replaced, hookErr := rt.PreApplyHook(ctx, records)
	if hookErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return typeReport, ctxErr
		}
		logger.Error(hookErr, "Failed to prepare resources")
		recorder.RecordFetchFailure(name)
		typeReport.FetchError = hookErr.Error()
		return typeReport, nil
	}
	if replaced != nil {
		records = replaced
	}

	// Workers read this snapshot while the collector writes typeState.
	snapshot := make(map[string]resource.Record, len(typeState.Destination))
	for key, record := range typeState.Destination {
		snapshot[key] = record
	}

	keys := sortedKeys(records)
	work := func(ctx context.Context, key string) (recordOutcome, error) {
		return r.processRecord(ctx, rt, key, records[key], snapshot[key], targets, opts, apply)
	}
	collect := func(result recordOutcome) {
		recorder.RecordOutcome(name, result.outcome)
		switch result.outcome {
		case metrics.OutcomeCreated:
			typeReport.Created++
			typeState.Destination[result.key] = result.record
		case metrics.OutcomeUpdated:
			typeReport.Updated++
			typeState.Destination[result.key] = result.record
		case metrics.OutcomeUnchanged:
			typeReport.Unchanged++
		case metrics.OutcomeSkipped:
			typeReport.Skipped++
		case metrics.OutcomeFailed:
			typeReport.Failed++
		case metrics.OutcomeToAdd:
			typeReport.ToAdd++
		case metrics.OutcomeToUpdate:
			typeReport.ToUpdate++
		}
		if result.diff != nil {
			typeReport.Diffs = append(typeReport.Diffs, *result.diff)
		}
	}

	workErr := runRecordWorkers(ctx, r.maxWorkers(), keys, work, collect)
	sort.Slice(typeReport.Diffs, func(i, j int) bool { return typeReport.Diffs[i].Key < typeReport.Diffs[j].Key })

	if apply {
		if saveErr := r.Store.Save(ctx, state.Destination, name, typeState.Destination); saveErr != nil {
			return typeReport, errors.Join(workErr, saveErr)
		}
	}
	if workErr != nil {
		var fatal *fatalError
		if errors.As(workErr, &fatal) {
			return typeReport, fatal.err
		}
		return typeReport, workErr
	}

	logger.Info(
		"Processed resources",
		"created", typeReport.Created,
		"updated", typeReport.Updated,
		"unchanged", typeReport.Unchanged,
		"toAdd", typeReport.ToAdd,
		"toUpdate", typeReport.ToUpdate,
		"skipped", typeReport.Skipped,
		"failed", typeReport.Failed,
	)
	return typeReport, nil
}

// processRecord runs hooks, connection and diff for one record and, when
// apply is set, writes it to the destination org. Only fatal errors are
// returned; everything else becomes a failed outcome.
func (r *DefaultOrchestrator) processRecord(
	ctx context.Context,
	rt resourcetype.ResourceType,
	key string,
	source resource.Record,
	current resource.Record,
	targets map[string]resourcetype.Target,
	opts Options,
	apply bool,
) (recordOutcome, error) {
	logger := logging.FromContext(ctx).WithValues("key", key)
	failed := func(message string, err error) (recordOutcome, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return recordOutcome{}, ctxErr
		}
		logger.Error(err, message)
		return recordOutcome{key: key, outcome: metrics.OutcomeFailed}, nil
	}

	candidate := resource.CopyRecord(source)
	if err := rt.PreActionHook(ctx, key, candidate); err != nil {
		return failed("Failed to prepare resource", err)
	}

	result, err := connectRecord(ctx, rt, key, candidate, targets, opts, apply)
	if err != nil {
		var fatal *fatalError
		if errors.As(err, &fatal) {
			return recordOutcome{}, err
		}
		return failed("Failed to connect resource", err)
	}
	if result == connectSkipped {
		return recordOutcome{key: key, outcome: metrics.OutcomeSkipped}, nil
	}

	config := rt.Config()
	if current == nil {
		if !apply {
			return recordOutcome{
				key:     key,
				outcome: metrics.OutcomeToAdd,
				diff: &RecordDiff{
					Type:   rt.Name(),
					Key:    key,
					Action: ActionAdd,
					Entries: []resource.DiffEntry{{
						Key:       key,
						Path:      "",
						Operation: resource.DiffAdd,
						Candidate: config.StripExcluded(candidate),
					}},
				},
			}, nil
		}

		created, err := rt.Create(ctx, key, candidate)
		if err != nil {
			return failed("Failed to create resource", err)
		}
		if created == nil {
			return failed("Failed to create resource", faults.NewInternalError("create returned no record", nil))
		}
		logging.Debug(ctx, "Created resource", "key", key)
		return recordOutcome{key: key, outcome: metrics.OutcomeCreated, record: created}, nil
	}

	entries := diffRecord(key, current, candidate, config)
	if len(entries) == 0 {
		return recordOutcome{key: key, outcome: metrics.OutcomeUnchanged}, nil
	}
	if !apply {
		return recordOutcome{
			key:     key,
			outcome: metrics.OutcomeToUpdate,
			diff:    &RecordDiff{Type: rt.Name(), Key: key, Action: ActionUpdate, Entries: entries},
		}, nil
	}

	updated, err := rt.Update(ctx, key, candidate, current)
	if err != nil {
		return failed("Failed to update resource", err)
	}
	if updated == nil {
		return failed("Failed to update resource", faults.NewInternalError("update returned no record", nil))
	}
	logging.Debug(ctx, "Updated resource", "key", key)
	return recordOutcome{key: key, outcome: metrics.OutcomeUpdated, record: updated}, nil
}

func sortedKeys(records map[string]resource.Record) []string {
	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
