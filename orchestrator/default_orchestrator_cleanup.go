package orchestrator

import (
	"context"
	"fmt"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/logging"
	"github.com/crmarques/orgsync/metrics"
	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/state"
)

const commandCleanup = "cleanup"

// Cleanup deletes destination objects whose source record no longer
// exists. Types are visited in reverse registry order so referencing
// objects go before the objects they reference.
func (r *DefaultOrchestrator) Cleanup(ctx context.Context, opts CleanupOptions) (Report, error) {
	report := Report{Command: commandCleanup, Types: []TypeReport{}}
	if err := r.validate(); err != nil {
		return report, err
	}

	switch opts.Mode {
	case CleanupForce:
	case CleanupConfirm:
		if opts.Confirm == nil {
			return report, faults.NewValidationError("cleanup confirmation requires a confirm callback", nil)
		}
	default:
		return report, faults.NewValidationError(fmt.Sprintf("unsupported cleanup mode %q", opts.Mode), nil)
	}

	selected, err := r.Registry.Select(opts.Resources)
	if err != nil {
		return report, err
	}

	for idx := len(selected) - 1; idx >= 0; idx-- {
		typeReport, err := r.cleanupType(ctx, selected[idx], opts)
		report.Types = append(report.Types, typeReport)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func (r *DefaultOrchestrator) cleanupType(ctx context.Context, rt resourcetype.ResourceType, opts CleanupOptions) (typeReport TypeReport, err error) {
	name := rt.Name()
	typeReport = TypeReport{Type: name}
	ctx, span := r.startSpan(ctx, commandCleanup, name)
	defer func() { endSpan(span, err) }()

	logger := logging.FromContext(ctx).WithValues("type", name)
	ctx = logging.WithLogger(ctx, logger)

	typeState, err := state.LoadTypeState(ctx, r.Store, name)
	if err != nil {
		return typeReport, err
	}

	orphans := make([]string, 0)
	for _, key := range sortedKeys(typeState.Destination) {
		if _, found := typeState.Source[key]; !found {
			orphans = append(orphans, key)
		}
	}
	if len(orphans) == 0 {
		return typeReport, nil
	}

	if opts.Mode == CleanupConfirm {
		approved, confirmErr := opts.Confirm(ctx, name, orphans)
		if confirmErr != nil {
			return typeReport, confirmErr
		}
		if !approved {
			logger.Info("Skipping cleanup", "count", len(orphans))
			typeReport.Skipped = len(orphans)
			return typeReport, nil
		}
	}

	snapshot := make(map[string]resource.Record, len(orphans))
	for _, key := range orphans {
		snapshot[key] = typeState.Destination[key]
	}

	recorder := r.recorder()
	work := func(ctx context.Context, key string) (recordOutcome, error) {
		deleteErr := rt.Delete(ctx, key, snapshot[key])
		switch {
		case deleteErr == nil:
		case faults.IsCategory(deleteErr, faults.NotFoundError):
			logging.Debug(ctx, "Resource already absent from destination", "key", key)
		default:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return recordOutcome{}, ctxErr
			}
			logging.FromContext(ctx).Error(deleteErr, "Failed to delete resource", "key", key)
			return recordOutcome{key: key, outcome: metrics.OutcomeFailed}, nil
		}
		return recordOutcome{key: key, outcome: metrics.OutcomeDeleted}, nil
	}
	collect := func(result recordOutcome) {
		recorder.RecordOutcome(name, result.outcome)
		switch result.outcome {
		case metrics.OutcomeDeleted:
			typeReport.Deleted++
			delete(typeState.Destination, result.key)
		case metrics.OutcomeFailed:
			typeReport.Failed++
		}
	}

	workErr := runRecordWorkers(ctx, r.maxWorkers(), orphans, work, collect)
	if saveErr := r.Store.Save(ctx, state.Destination, name, typeState.Destination); saveErr != nil {
		return typeReport, saveErr
	}
	if workErr != nil {
		return typeReport, workErr
	}

	logger.Info("Cleaned up resources", "deleted", typeReport.Deleted, "failed", typeReport.Failed)
	return typeReport, nil
}
