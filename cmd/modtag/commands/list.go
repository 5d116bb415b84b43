package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modtag/modtag/internal/cli"
	"github.com/modtag/modtag/internal/rules"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the rules in a tagging rules file",
	Long: `List loads the rules file and prints each definition.

Examples:
  modtag list --rules rules.yaml
  modtag list --rules rules.yaml --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := rules.Load(rulesPath)
		if err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}
		if len(defs) == 0 {
			fmt.Println("No rules found")
			return nil
		}
		return cli.PrintRules(defs, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
