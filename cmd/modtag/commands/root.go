package commands

import (
	"github.com/spf13/cobra"

	"github.com/modtag/modtag/internal/logging"
)

var (
	// Global flags
	rulesPath string
	format    string
	verbose   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "modtag",
	Short: "CLI tool for working with module tagging rules",
	Long: `Modtag is a command-line tool for validating and exercising the
tagging rules used by the module tagging service.

It evaluates rules locally, without the message bus or koji, which makes
it useful for testing a rule file before rolling it out.

Examples:
  modtag validate --rules rules.yaml
  modtag list --rules rules.yaml
  modtag match modulemd.yaml --rules rules.yaml --format json`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logging.Setup(level, true)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "rules.yaml", "Path to the tagging rules file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}
