package cmd

import (
	"github.com/spf13/cobra"
)

var checkFlags runFlags

// checkCmd reports the latest version of every dependency.
var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Check dependencies for newer versions",
	Long:  "Look up every declared dependency in the registry and report how far behind the latest release it is.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(projectPath(args), &checkFlags)
		if err != nil {
			return err
		}
		report := p.analyzer.Check(cmd.Context(), p.subject, p.deps)
		return p.render(cmd, report)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkFlags.register(checkCmd.Flags())
}
