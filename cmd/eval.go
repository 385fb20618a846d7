package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MarianRusoiu99/text-based-sub001/internal/expr"
)

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate an expression",
	Long: `Evaluates an expression with the restricted grammar used by templates.
Variables are bound with --set, e.g.:
	textbased eval "Math.floor((dex - 10) / 2)" --set dex=15`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sets, _ := cmd.Flags().GetStringArray("set")
		bindings, err := parseAssignments(sets)
		if err != nil {
			return err
		}
		v, err := expr.Evaluate(args[0], bindings)
		if err != nil {
			return err
		}
		if v == nil {
			v = "null"
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringArray("set", nil, "Bind a variable (key=value), repeatable")
}
