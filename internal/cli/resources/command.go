package resources

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crmarques/orgsync/internal/cli/common"
)

type resourceInfo struct {
	Name      string   `json:"name" yaml:"name"`
	BasePath  string   `json:"basePath" yaml:"basePath"`
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
}

func NewCommand(deps common.CommandDependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List resource types in processing order with their dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := common.ConfigFrom(cmd.Context())
			if err != nil {
				return err
			}
			newRegistry, err := common.RequireRegistryFactory(deps)
			if err != nil {
				return err
			}
			registry, err := newRegistry(nil, nil)
			if err != nil {
				return err
			}

			items := make([]resourceInfo, 0, len(registry.All()))
			for _, rt := range registry.All() {
				typeConfig := rt.Config()
				item := resourceInfo{Name: rt.Name(), BasePath: typeConfig.BasePath}
				for _, connection := range typeConfig.Connections {
					if !contains(item.DependsOn, connection.Type) {
						item.DependsOn = append(item.DependsOn, connection.Type)
					}
				}
				items = append(items, item)
			}

			return common.WriteOutput(cmd, cfg.Output, items, func(w io.Writer, values []resourceInfo) error {
				for _, value := range values {
					line := value.Name
					if len(value.DependsOn) > 0 {
						line += " (depends on " + strings.Join(value.DependsOn, ", ") + ")"
					}
					if _, err := fmt.Fprintln(w, line); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
