package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/reflector/internal/cli/ui"
)

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the reflector version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			noColor, _ := cmd.Flags().GetBool("no-color")
			kv := ui.NewKeyValueTable(cmd.OutOrStdout(), noColor)
			kv.AddRow("Reflector version", Version)
			kv.AddRow("Git commit", GitCommit)
			kv.AddRow("Build date", BuildDate)
			kv.AddRow("Go version", goVer)
			kv.Render()
		},
	}
}
