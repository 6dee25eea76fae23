package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/crmarques/orgsync/internal/cli/common"
	"github.com/crmarques/orgsync/internal/cli/diffs"
	"github.com/crmarques/orgsync/internal/cli/importcmd"
	"github.com/crmarques/orgsync/internal/cli/resources"
	"github.com/crmarques/orgsync/internal/cli/synccmd"
	"github.com/crmarques/orgsync/internal/cli/version"
	"github.com/crmarques/orgsync/logging"
)

const rootLong = `Synchronize configuration resources from a source org to a destination org.

Exit codes:
  0  success
  1  finished with failures: failed records, or a type whose listing failed
     and was left untouched for the run
  2  invalid flags, configuration or filters
  3  resource not found
  4  authentication failed
  5  conflict reported by an org
  6  transport failure after retries
  7  unresolved resource connection with --validate
  8  corrupt state file
`

const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

Additional Commands:{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .LocalNonPersistentFlags.HasAvailableFlags}}

Flags:
{{.LocalNonPersistentFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if or .HasAvailableInheritedFlags .HasAvailablePersistentFlags}}

Global Flags:
{{if .HasAvailableInheritedFlags}}{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{if and .HasAvailableInheritedFlags .HasAvailablePersistentFlags}}
{{end}}{{if .HasAvailablePersistentFlags}}{{.PersistentFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}
{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`

func NewRootCommand(deps Dependencies) *cobra.Command {
	commandDeps := deps.commandDependencies()
	var globalFlags common.GlobalFlags

	root := &cobra.Command{
		Use:   "orgsync",
		Short: "Synchronize configuration resources from a source org to a destination org",
		Long:  rootLong,
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
		Args: cobra.NoArgs,
		PersistentPreRunE: func(command *cobra.Command, _ []string) error {
			cfg, err := common.ResolveConfig(command, &globalFlags, commandDeps.LookupEnv)
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			logger := logging.New(command.ErrOrStderr(), cfg.Verbose).WithValues("run", runID)

			commandContext := command.Context()
			if commandContext == nil {
				commandContext = context.Background()
			}
			commandContext = logging.WithLogger(commandContext, logger)
			commandContext = common.WithRunID(commandContext, runID)
			commandContext = common.WithConfig(commandContext, cfg)
			command.SetContext(commandContext)

			logging.Debug(
				commandContext,
				"root flags",
				"command", command.CommandPath(),
				"changed", common.VisitChangedFlags(command),
				"stateDir", cfg.StateDir,
				"output", cfg.Output,
				"validate", cfg.Validate,
				"maxWorkers", cfg.MaxWorkers,
			)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetUsageTemplate(usageTemplate)
	defaultHelpFunc := root.HelpFunc()
	root.SetHelpFunc(func(command *cobra.Command, args []string) {
		originalOut := command.OutOrStdout()
		originalErr := command.ErrOrStderr()

		buffer := &bytes.Buffer{}
		command.SetOut(buffer)
		command.SetErr(buffer)
		defaultHelpFunc(command, args)
		command.SetOut(originalOut)
		command.SetErr(originalErr)

		rendered := strings.TrimRight(buffer.String(), "\n")
		if rendered == "" {
			_, _ = fmt.Fprintln(originalOut)
			return
		}

		_, _ = fmt.Fprintln(originalOut, rendered)
	})

	common.BindGlobalFlags(root, &globalFlags)
	root.PersistentFlags().BoolP("help", "h", false, "help for command")

	root.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "other", Title: "Other Commands:"},
	)

	syncCommands := []*cobra.Command{
		importcmd.NewCommand(commandDeps),
		diffs.NewCommand(commandDeps),
		synccmd.NewCommand(commandDeps),
	}
	for _, command := range syncCommands {
		command.GroupID = "sync"
		root.AddCommand(command)
	}

	otherCommands := []*cobra.Command{
		resources.NewCommand(commandDeps),
		version.NewCommand(commandDeps),
	}
	for _, command := range otherCommands {
		command.GroupID = "other"
		root.AddCommand(command)
	}

	return root
}
