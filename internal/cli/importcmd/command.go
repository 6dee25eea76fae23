package importcmd

import (
	"github.com/spf13/cobra"

	"github.com/crmarques/orgsync/internal/cli/common"
	"github.com/crmarques/orgsync/orchestrator"
)

func NewCommand(deps common.CommandDependencies) *cobra.Command {
	var resources []string
	var filters []string

	command := &cobra.Command{
		Use:   "import",
		Short: "Import resources from the source org into the state directory",
		Example: `  orgsync import --resources=monitors,dashboards
  orgsync import --filter='monitors:.tags | index("team:web") != null'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := common.ConfigFrom(ctx)
			if err != nil {
				return err
			}

			runtime, err := common.NewRuntime(ctx, deps, cfg, common.Needs{Source: true})
			if err != nil {
				return err
			}

			report, err := runtime.Orchestrator.Import(ctx, orchestrator.ImportOptions{
				Resources: resources,
				Filters:   filters,
			})
			return common.Complete(cmd, runtime, report, err)
		},
	}

	common.BindResourcesFlag(command, &resources)
	common.BindFilterFlag(command, &filters)
	return command
}
