package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sambabib/depcheck/pkg/analyzer"
	"github.com/sambabib/depcheck/pkg/logger"
)

var (
	updateFlags  runFlags
	includeMajor bool
	dryRun       bool
)

// updateCmd proposes per-bucket upgrades. It never edits the manifest.
var updateCmd = &cobra.Command{
	Use:   "update [path]",
	Short: "Recommend dependency upgrades",
	Long: `Recommend the newest patch, minor and (with --major) major release for every
dependency declared with an exact version. The manifest is never modified.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !dryRun {
			logger.Warnf("Writing the manifest is not supported; showing recommendations only")
		}

		p, err := loadProject(projectPath(args), &updateFlags)
		if err != nil {
			return err
		}
		report := p.analyzer.Update(cmd.Context(), p.subject, p.deps, includeMajor)
		if err := p.render(cmd, report); err != nil {
			return err
		}

		if p.cfg.Output.Format == "table" {
			if changes := analyzer.PlannedChanges(report); len(changes) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "\nPlanned changes (not applied):")
				for _, c := range changes {
					fmt.Fprintln(cmd.OutOrStdout(), "  "+c)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateFlags.register(updateCmd.Flags())
	updateCmd.Flags().BoolVar(&includeMajor, "major", false, "Include major version upgrades")
	updateCmd.Flags().BoolVar(&dryRun, "dry-run", true, "Only show what would change")
}
