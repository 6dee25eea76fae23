package common

import (
	"net/http"

	"github.com/crmarques/orgsync/config"
	"github.com/crmarques/orgsync/orchestrator"
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/transport"
)

// RegistryFactory builds the resource types bound to the org clients.
// Either client is nil when the command does not reach that org.
type RegistryFactory func(source transport.Client, destination transport.Client) (*resourcetype.Registry, error)

// CommandDependencies are shared by every command. Confirm, when set,
// replaces the terminal prompt of --cleanup=confirm.
type CommandDependencies struct {
	NewRegistry RegistryFactory
	LookupEnv   config.LookupEnvFunc
	Confirm     orchestrator.ConfirmFunc
	HTTPClient  *http.Client
	Version     string
}

func RequireRegistryFactory(deps CommandDependencies) (RegistryFactory, error) {
	if deps.NewRegistry == nil {
		return nil, ValidationError("resource registry is not configured", nil)
	}
	return deps.NewRegistry, nil
}
