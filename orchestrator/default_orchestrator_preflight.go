package orchestrator

import (
	"context"

	"github.com/crmarques/orgsync/transport"
)

// Preflight checks the credentials of both orgs when their clients support
// it.
func (r *DefaultOrchestrator) Preflight(ctx context.Context) error {
	for _, client := range []transport.Client{r.Source, r.Destination} {
		validator, ok := client.(transport.Validator)
		if !ok {
			continue
		}
		if err := validator.Validate(ctx); err != nil {
			return err
		}
	}
	return nil
}
