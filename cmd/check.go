package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MarianRusoiu99/text-based-sub001/internal/engine"
	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

var checkCmd = &cobra.Command{
	Use:   "check <template> <check-id>",
	Short: "Perform a template check against a fresh character",
	Long: `Rolls a check for a character seeded from the template defaults.
Stats can be overridden with --set, e.g. --set strength=14.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tmpl, err := resolveTemplate(args[0])
		if err != nil {
			return err
		}
		check, ok := tmpl.FindCheck(args[1])
		if !ok {
			return fmt.Errorf("%w: %s", engine.ErrUnknownCheck, args[1])
		}
		sets, _ := cmd.Flags().GetStringArray("set")
		char, err := characterFor(tmpl, sets)
		if err != nil {
			return err
		}

		res, err := rules.PerformCheck(check, char)
		if err != nil {
			return err
		}
		logger.Debug("check performed",
			zap.String("check", check.ID),
			zap.Float64("total", res.Total),
			zap.Bool("success", res.Success))

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(res)
		}
		fmt.Fprintln(cmd.OutOrStdout(), engine.FormatCheck(*res))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringArray("set", nil, "Override a stat (key=value), repeatable")
	checkCmd.Flags().Bool("json", false, "Print the result as JSON")
}
