package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

var formulaCmd = &cobra.Command{
	Use:   "formula <template> <formula-id>",
	Short: "Evaluate a template formula against a fresh character",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tmpl, err := resolveTemplate(args[0])
		if err != nil {
			return err
		}
		f, ok := tmpl.FindFormula(args[1])
		if !ok {
			return fmt.Errorf("unknown formula: %s", args[1])
		}
		sets, _ := cmd.Flags().GetStringArray("set")
		char, err := characterFor(tmpl, sets)
		if err != nil {
			return err
		}

		res, err := rules.EvaluateFormula(f, char)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", res.FormulaID, res.Result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formulaCmd)
	formulaCmd.Flags().StringArray("set", nil, "Override a stat (key=value), repeatable")
	formulaCmd.Flags().Bool("json", false, "Print the result as JSON")
}
