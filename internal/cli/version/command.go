package version

import (
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/crmarques/orgsync/internal/cli/common"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

type info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	Release   bool   `json:"release" yaml:"release"`
}

// Normalize renders a semantic version as vMAJOR.MINOR.PATCH[-pre] and
// reports whether raw was one. Other values, such as "dev", pass through.
func Normalize(raw string) (string, bool) {
	parsed, err := semver.NewVersion(raw)
	if err != nil {
		return raw, false
	}
	return "v" + parsed.String(), true
}

func NewCommand(deps common.CommandDependencies) *cobra.Command {
	_ = deps

	command := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := common.ConfigFrom(cmd.Context())
			if err != nil {
				return err
			}

			normalized, release := Normalize(Version)
			value := info{Version: normalized, Commit: Commit, BuildDate: BuildDate, Release: release}
			return common.WriteOutput(cmd, cfg.Output, value, func(w io.Writer, item info) error {
				_, err := fmt.Fprintf(w, "%s (%s) %s\n", item.Version, item.Commit, item.BuildDate)
				return err
			})
		},
	}

	return command
}
