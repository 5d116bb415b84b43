package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modtag/modtag/internal/rules"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a tagging rules file",
	Long: `Validate loads a rules file, checks required properties and compiles
every regular expression, reporting the first problem found.

Examples:
  modtag validate --rules rules.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := rules.Load(rulesPath)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d rule(s) OK\n", rulesPath, len(defs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
