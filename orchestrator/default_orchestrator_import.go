package orchestrator

import (
	"context"
	"errors"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/logging"
	"github.com/crmarques/orgsync/metrics"
	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/state"
)

const commandImport = "import"

// Import lists every selected type in the source org and replaces its
// persisted source state. A type whose listing fails keeps its previous
// source state.
func (r *DefaultOrchestrator) Import(ctx context.Context, opts ImportOptions) (Report, error) {
	report := Report{Command: commandImport, Types: []TypeReport{}}
	if err := r.validate(); err != nil {
		return report, err
	}
	if r.Source == nil {
		return report, faults.NewInternalError("source client is not configured", nil)
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
		typeReport, err := r.importType(ctx, rt, filters)
		report.Types = append(report.Types, typeReport)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func (r *DefaultOrchestrator) importType(ctx context.Context, rt resourcetype.ResourceType, filters []recordFilter) (typeReport TypeReport, err error) {
	name := rt.Name()
	typeReport = TypeReport{Type: name}
	ctx, span := r.startSpan(ctx, commandImport, name)
	defer func() { endSpan(span, err) }()

	logger := logging.FromContext(ctx).WithValues("type", name)
	recorder := r.recorder()

	records, fetchErr := rt.FetchAll(ctx, r.Source)
	if fetchErr != nil {
		if ctx.Err() != nil {
			return typeReport, ctx.Err()
		}
		logger.Error(fetchErr, "Failed to fetch resources")
		recorder.RecordFetchFailure(name)
		typeReport.FetchError = fetchErr.Error()
		return typeReport, nil
	}

	source := make(map[string]resource.Record, len(records))
	for _, record := range records {
		keep, filterErr := keepRecord(filters, name, record)
		if filterErr != nil {
			logger.Error(filterErr, "Failed to evaluate filter")
			typeReport.Failed++
			recorder.RecordOutcome(name, metrics.OutcomeFailed)
			continue
		}
		if !keep {
			continue
		}

		key, importErr := rt.Import(record)
		switch {
		case errors.Is(importErr, resourcetype.ErrSkipImport):
			logging.Debug(ctx, "Ignoring resource on import", "type", name)
			continue
		case importErr != nil:
			logger.Error(importErr, "Failed to import resource")
			typeReport.Failed++
			recorder.RecordOutcome(name, metrics.OutcomeFailed)
			continue
		case key == "":
			logger.Error(nil, "Failed to import resource", "reason", "empty key")
			typeReport.Failed++
			recorder.RecordOutcome(name, metrics.OutcomeFailed)
			continue
		}

		source[key] = record
		typeReport.Imported++
		recorder.RecordOutcome(name, metrics.OutcomeImported)
	}

	if err := r.Store.Save(ctx, state.Source, name, source); err != nil {
		return typeReport, err
	}
	logger.Info("Imported resources", "count", typeReport.Imported)
	return typeReport, nil
}
