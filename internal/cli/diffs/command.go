package diffs

import (
	"github.com/spf13/cobra"

	"github.com/crmarques/orgsync/internal/cli/common"
	"github.com/crmarques/orgsync/orchestrator"
)

func NewCommand(deps common.CommandDependencies) *cobra.Command {
	var resources []string
	var skipFailedConnections bool
	var filters []string

	command := &cobra.Command{
		Use:   "diffs",
		Short: "Show the changes a sync would apply to the destination org",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := common.ConfigFrom(ctx)
			if err != nil {
				return err
			}

			runtime, err := common.NewRuntime(ctx, deps, cfg, common.Needs{Source: true, Destination: true})
			if err != nil {
				return err
			}

			report, err := runtime.Orchestrator.Diffs(ctx, orchestrator.Options{
				Resources:             resources,
				SkipFailedConnections: skipFailedConnections,
				Validate:              cfg.Validate,
				Filters:               filters,
			})
			return common.Complete(cmd, runtime, report, err)
		},
	}

	common.BindResourcesFlag(command, &resources)
	common.BindSkipFailedConnectionsFlag(command, &skipFailedConnections)
	common.BindFilterFlag(command, &filters)
	return command
}
