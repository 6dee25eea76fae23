package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crmarques/orgsync/config"
	"github.com/crmarques/orgsync/internal/providers/state/fsstore"
	gitstate "github.com/crmarques/orgsync/internal/providers/state/git"
	httptransport "github.com/crmarques/orgsync/internal/providers/transport/http"
	"github.com/crmarques/orgsync/internal/telemetry"
	"github.com/crmarques/orgsync/logging"
	"github.com/crmarques/orgsync/metrics"
	"github.com/crmarques/orgsync/orchestrator"
	"github.com/crmarques/orgsync/state"
	"github.com/crmarques/orgsync/transport"
)

// Needs lists the orgs a command talks to.
type Needs struct {
	Source      bool
	Destination bool
}

// Runtime is the wired orchestrator of one command run.
type Runtime struct {
	Config       config.Config
	Orchestrator *orchestrator.DefaultOrchestrator
	Metrics      *metrics.RunMetrics
	Committer    state.Committer

	shutdown telemetry.Shutdown
}

func NewRuntime(ctx context.Context, deps CommandDependencies, cfg config.Config, needs Needs) (*Runtime, error) {
	newRegistry, err := RequireRegistryFactory(deps)
	if err != nil {
		return nil, err
	}

	var source, destination transport.Client
	if needs.Source {
		client, err := newOrgClient(deps, cfg, "source", cfg.Source)
		if err != nil {
			return nil, err
		}
		source = client
	}
	if needs.Destination {
		client, err := newOrgClient(deps, cfg, "destination", cfg.Destination)
		if err != nil {
			return nil, err
		}
		destination = client
	}

	registry, err := newRegistry(source, destination)
	if err != nil {
		return nil, err
	}

	provider, shutdown, err := telemetry.Setup(ctx, deps.Version)
	if err != nil {
		return nil, err
	}

	runMetrics := metrics.NewRunMetrics()
	runtime := &Runtime{
		Config: cfg,
		Orchestrator: &orchestrator.DefaultOrchestrator{
			Registry:    registry,
			Source:      source,
			Destination: destination,
			Store:       fsstore.NewStateStore(cfg.StateDir),
			MaxWorkers:  cfg.MaxWorkers,
			Metrics:     runMetrics,
			Tracer:      telemetry.Tracer(provider),
		},
		Metrics:  runMetrics,
		shutdown: shutdown,
	}
	if cfg.CommitState {
		runtime.Committer = gitstate.NewStateCommitter(cfg.StateDir)
	}

	if cfg.Validate {
		if err := runtime.Orchestrator.Preflight(ctx); err != nil {
			_ = shutdown(ctx)
			return nil, err
		}
	}
	return runtime, nil
}

func newOrgClient(deps CommandDependencies, cfg config.Config, side string, org config.Org) (*httptransport.Client, error) {
	if err := cfg.ValidateOrg(side); err != nil {
		return nil, err
	}
	userAgent := "orgsync"
	if deps.Version != "" {
		userAgent += "/" + deps.Version
	}
	return httptransport.NewClient(httptransport.Options{
		BaseURL:      org.APIURL,
		APIKey:       org.APIKey,
		AppKey:       org.AppKey,
		RetryTimeout: cfg.RetryTimeout(),
		RateLimit:    cfg.RateLimit,
		UserAgent:    userAgent,
		HTTPClient:   deps.HTTPClient,
	})
}

// Finish writes the metrics file, commits the state directory when asked
// and flushes pending spans.
func (r *Runtime) Finish(ctx context.Context, command string) error {
	var errs []error

	if r.Config.MetricsFile != "" {
		if err := r.Metrics.WriteTextfile(r.Config.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}

	if r.Committer != nil {
		message := fmt.Sprintf("orgsync: %s", command)
		if runID := RunID(ctx); runID != "" {
			message += " (run " + runID + ")"
		}
		committed, err := r.Committer.Commit(ctx, message)
		if err != nil {
			errs = append(errs, err)
		} else {
			logging.Debug(ctx, "State commit", "committed", committed)
		}
	}

	if r.shutdown != nil {
		if err := r.shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Complete finishes the run, prints its report and folds record failures
// into the command error.
func Complete(command *cobra.Command, runtime *Runtime, report orchestrator.Report, runErr error) error {
	ctx := command.Context()
	finishErr := runtime.Finish(ctx, command.Name())

	var writeErr error
	if len(report.Types) > 0 {
		writeErr = WriteReport(command, runtime.Config.Output, report)
	}
	if runErr != nil {
		return errors.Join(runErr, finishErr, writeErr)
	}
	return errors.Join(ReportError(report), finishErr, writeErr)
}
