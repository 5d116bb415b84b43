// Package cli provides shared output helpers for the modtag command.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/modtag/modtag/internal/engine"
	"github.com/modtag/modtag/internal/rules"
)

// OutputFormat specifies the output format for CLI commands.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintRules outputs rule definitions in the specified format.
func PrintRules(defs []rules.Rule, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string][]rules.Rule{"rules": defs})
	case FormatYAML:
		return printYAML(defs)
	case FormatTable:
		return printRulesTable(defs)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintOutcomes outputs match outcomes in the specified format.
func PrintOutcomes(outcomes []engine.Outcome, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string][]engine.Outcome{"matches": outcomes})
	case FormatYAML:
		return printYAML(outcomes)
	case FormatTable:
		return printOutcomesTable(outcomes)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printRulesTable(defs []rules.Rule) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Type", "Destinations", "Conditional", "Description")

	for _, def := range defs {
		conditional := "yes"
		if def.Match == nil {
			conditional = "no"
		}
		description := def.Description
		if len(description) > 40 {
			description = description[:37] + "..."
		}
		table.Append(
			def.ID,
			def.Type,
			strings.Join(def.Destinations, ", "),
			conditional,
			description,
		)
	}

	return table.Render()
}

func printOutcomesTable(outcomes []engine.Outcome) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Rule", "Destination Tags")

	for _, o := range outcomes {
		table.Append(o.Rule, strings.Join(o.DestTags, ", "))
	}

	return table.Render()
}
