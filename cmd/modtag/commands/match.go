package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modtag/modtag/internal/cli"
	"github.com/modtag/modtag/internal/engine"
	"github.com/modtag/modtag/internal/modulemd"
	"github.com/modtag/modtag/internal/rules"
)

var matchCmd = &cobra.Command{
	Use:   "match <modulemd-file>",
	Short: "Evaluate the rules against a local modulemd file",
	Long: `Match parses a modulemd YAML file and evaluates the rules file
against it, printing the rules that matched and the destination tags
they resolved to.

Examples:
  modtag match modulemd.yaml --rules rules.yaml
  modtag match modulemd.yaml --rules rules.yaml --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := rules.Load(rulesPath)
		if err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}

		text, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read modulemd: %w", err)
		}
		doc, err := modulemd.Parse(text)
		if err != nil {
			return err
		}

		outcomes := engine.EvaluateAll(defs, doc)
		if len(outcomes) == 0 {
			fmt.Println("No rule matched")
			return nil
		}
		return cli.PrintOutcomes(outcomes, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
}
