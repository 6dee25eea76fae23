package orchestrator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/metrics"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/state"
	"github.com/crmarques/orgsync/transport"
)

var _ Orchestrator = (*DefaultOrchestrator)(nil)

const DefaultMaxWorkers = 10

// DefaultOrchestrator moves records of the registry's types from the source
// org to the destination org. Types are processed one at a time in
// registry order; records of a type are processed by a bounded pool.
type DefaultOrchestrator struct {
	Registry    *resourcetype.Registry
	Source      transport.Client
	Destination transport.Client
	Store       state.Store
	MaxWorkers  int
	Metrics     metrics.Recorder
	Tracer      trace.Tracer
}

func (r *DefaultOrchestrator) validate() error {
	if r == nil {
		return faults.NewInternalError("orchestrator is not configured", nil)
	}
	if r.Registry == nil {
		return faults.NewInternalError("orchestrator registry is not configured", nil)
	}
	if r.Store == nil {
		return faults.NewInternalError("orchestrator state store is not configured", nil)
	}
	return nil
}

func (r *DefaultOrchestrator) maxWorkers() int {
	if r.MaxWorkers <= 0 {
		return DefaultMaxWorkers
	}
	return r.MaxWorkers
}

func (r *DefaultOrchestrator) recorder() metrics.Recorder {
	if r.Metrics == nil {
		return metrics.Nop{}
	}
	return r.Metrics
}

func (r *DefaultOrchestrator) startSpan(ctx context.Context, command string, typeName string) (context.Context, trace.Span) {
	tracer := r.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	attributes := []attribute.KeyValue{attribute.String("orgsync.command", command)}
	if typeName != "" {
		attributes = append(attributes, attribute.String("orgsync.resource_type", typeName))
	}
	return tracer.Start(ctx, fmt.Sprintf("%s %s", command, typeName), trace.WithAttributes(attributes...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// targetsFor loads the destination state of every type rt connects to.
func (r *DefaultOrchestrator) targetsFor(ctx context.Context, rt resourcetype.ResourceType) (map[string]resourcetype.Target, error) {
	connections := rt.Config().Connections
	targets := make(map[string]resourcetype.Target, len(connections))
	for _, connection := range connections {
		if _, loaded := targets[connection.Type]; loaded {
			continue
		}
		targetType, found := r.Registry.Lookup(connection.Type)
		if !found {
			return nil, faults.NewValidationError(
				fmt.Sprintf("resource type %q connects to unknown type %q", rt.Name(), connection.Type),
				nil,
			)
		}
		destination, err := r.Store.Load(ctx, state.Destination, connection.Type)
		if err != nil {
			return nil, err
		}
		targets[connection.Type] = resourcetype.Target{Type: targetType, Destination: destination}
	}
	return targets, nil
}
