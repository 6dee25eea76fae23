// Package datadog implements the resource types synchronized between two
// Datadog organizations.
package datadog

import (
	"github.com/crmarques/orgsync/resourcetype"
	"github.com/crmarques/orgsync/transport"
)

// NewRegistry returns every supported type in dependency order. Types
// write to destination; roles also read permissions from source.
func NewRegistry(source transport.Client, destination transport.Client) (*resourcetype.Registry, error) {
	return resourcetype.NewRegistry(
		newRoles(source, destination),
		newUsers(destination),
		newSyntheticsPrivateLocations(destination),
		newSyntheticsTests(destination),
		newSyntheticsGlobalVariables(destination),
		newMonitors(destination),
		newDowntimes(destination),
		newServiceLevelObjectives(destination),
		newDashboards(destination),
		newDashboardLists(destination),
		newLogsCustomPipelines(destination),
		newIntegrationsAWS(destination),
	)
}
