package synccmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/crmarques/orgsync/internal/cli/common"
	"github.com/crmarques/orgsync/orchestrator"
)

const cleanupNone = "none"

func NewCommand(deps common.CommandDependencies) *cobra.Command {
	var resources []string
	var skipFailedConnections bool
	var filters []string
	var cleanup string

	command := &cobra.Command{
		Use:   "sync",
		Short: "Create and update destination resources from the imported state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := common.ConfigFrom(ctx)
			if err != nil {
				return err
			}

			var mode orchestrator.CleanupMode
			switch cleanup {
			case cleanupNone:
			case string(orchestrator.CleanupForce), string(orchestrator.CleanupConfirm):
				mode = orchestrator.CleanupMode(cleanup)
			default:
				return common.ValidationError("flag --cleanup must be one of force, confirm, none", nil)
			}

			runtime, err := common.NewRuntime(ctx, deps, cfg, common.Needs{Source: true, Destination: true})
			if err != nil {
				return err
			}

			report, err := runtime.Orchestrator.Sync(ctx, orchestrator.Options{
				Resources:             resources,
				SkipFailedConnections: skipFailedConnections,
				Validate:              cfg.Validate,
				Filters:               filters,
			})
			if err != nil || mode == "" {
				return common.Complete(cmd, runtime, report, err)
			}

			confirm := deps.Confirm
			if confirm == nil {
				confirm = common.CleanupConfirm(cmd)
			}
			cleanupReport, cleanupErr := runtime.Orchestrator.Cleanup(ctx, orchestrator.CleanupOptions{
				Resources: resources,
				Mode:      mode,
				Confirm:   confirm,
			})

			writeErr := common.WriteReport(cmd, cfg.Output, report)
			return errors.Join(writeErr, common.ReportError(report), common.Complete(cmd, runtime, cleanupReport, cleanupErr))
		},
	}

	common.BindResourcesFlag(command, &resources)
	common.BindSkipFailedConnectionsFlag(command, &skipFailedConnections)
	common.BindFilterFlag(command, &filters)
	command.Flags().StringVar(&cleanup, "cleanup", cleanupNone, "delete destination resources missing from the source: force|confirm|none")
	return command
}
