package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sambabib/depcheck/pkg/analyzer"
	"github.com/sambabib/depcheck/pkg/vuln"
)

var (
	auditFlags    runFlags
	auditSeverity string
	auditFix      bool
)

// auditCmd reports known advisories for the declared versions.
var auditCmd = &cobra.Command{
	Use:   "audit [path]",
	Short: "Audit dependencies for known vulnerabilities",
	Long: `Query the configured advisory source for every dependency and report findings
at or above the requested severity. --fix suggests, but never applies, the
newest version that resolves every finding.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(projectPath(args), &auditFlags)
		if err != nil {
			return err
		}

		level := p.cfg.Audit.Severity
		if cmd.Flags().Changed("severity") {
			level = auditSeverity
		}
		threshold, err := vuln.ParseSeverity(level)
		if err != nil {
			return err
		}

		report := p.analyzer.Audit(cmd.Context(), p.subject, p.deps, threshold, auditFix)
		if err := p.render(cmd, report); err != nil {
			return err
		}

		if auditFix && p.cfg.Output.Format == "table" {
			if fixes := analyzer.PlannedFixes(report); len(fixes) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "\nSuggested fixes (not applied):")
				for _, f := range fixes {
					fmt.Fprintln(cmd.OutOrStdout(), "  "+f)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditFlags.register(auditCmd.Flags())
	auditCmd.Flags().StringVarP(&auditSeverity, "severity", "s", "low", "Minimum severity: low, moderate, high or critical")
	auditCmd.Flags().BoolVar(&auditFix, "fix", false, "Suggest versions that resolve the findings")
}
