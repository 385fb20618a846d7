package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

var initCmd = &cobra.Command{
	Use:   "init <template>",
	Short: "Print a fresh character for a template",
	Long: `Seeds a character from the template's stat defaults and prints it as JSON.
The template may be a file path or a name under templates/ in the data directories.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tmpl, err := resolveTemplate(args[0])
		if err != nil {
			return err
		}
		id, _ := cmd.Flags().GetString("id")
		if id == "" {
			id = tmpl.ID
		}
		return printJSON(rules.InitializeCharacterState(id, tmpl))
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("id", "", "Template ID recorded on the character (default is the template's ID)")
}
