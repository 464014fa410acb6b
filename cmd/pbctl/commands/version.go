package commands

import (
	"fmt"
	"io"
	"runtime"

	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// VersionInfo describes the pbctl build.
type VersionInfo struct {
	Version       string `json:"version"        yaml:"version"`
	Commit        string `json:"commit"         yaml:"commit"`
	Built         string `json:"built"          yaml:"built"`
	ClientVersion string `json:"client_version" yaml:"client_version"`
	GoVersion     string `json:"go_version"     yaml:"go_version"`
}

// NewVersionCommand creates the version command
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about pbctl",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{
				Version:       version,
				Commit:        commit,
				Built:         date,
				ClientVersion: pocketbase.Version,
				GoVersion:     runtime.Version(),
			}

			return render(cmd.OutOrStdout(), info, func(w io.Writer) error {
				table := tablewriter.NewWriter(w)
				table.Header("Property", "Value")
				_ = table.Append("Version", info.Version)
				_ = table.Append("Commit", info.Commit)
				_ = table.Append("Built", info.Built)
				_ = table.Append("Client library", info.ClientVersion)
				_ = table.Append("Go", info.GoVersion)

				err := table.Render()
				if err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				return nil
			})
		},
	}
}
