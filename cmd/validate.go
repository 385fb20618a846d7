package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MarianRusoiu99/text-based-sub001/internal/data"
	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

var (
	validStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	invalidStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F25D94"))
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#874BFD"))
	fieldStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
)

var errInvalidTemplates = errors.New("invalid templates found")

type fileReport struct {
	Path   string                  `json:"path"`
	Result *rules.ValidationResult `json:"result,omitempty"`
	Err    string                  `json:"error,omitempty"`
}

func (r fileReport) ok() bool { return r.Err == "" && r.Result != nil && r.Result.Valid }

var validateCmd = &cobra.Command{
	Use:   "validate [file]...",
	Short: "Validate rule template files",
	Long: `Checks rule templates for structure and for references to undeclared stats.
Templates can be given as files or, with --dir, every template in a directory.
Exits with status 1 when any template is invalid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		asJSON, _ := cmd.Flags().GetBool("json")

		files := args
		if dir != "" {
			found, err := templateFiles(dir)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", dir, err)
			}
			files = append(files, found...)
		}
		if len(files) == 0 {
			return errors.New("no template files given")
		}

		var bar *progressbar.ProgressBar
		if dir != "" && !asJSON {
			bar = progressbar.NewOptions(len(files),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("Validating"),
				progressbar.OptionClearOnFinish())
		}

		reports := make([]fileReport, 0, len(files))
		for _, path := range files {
			reports = append(reports, validateFile(path))
			if bar != nil {
				_ = bar.Add(1)
			}
		}
		if bar != nil {
			_ = bar.Finish()
		}

		invalid := 0
		for _, r := range reports {
			if !r.ok() {
				invalid++
			}
		}
		logger.Info("templates validated", zap.Int("files", len(reports)), zap.Int("invalid", invalid))

		if asJSON {
			if err := printJSON(reports); err != nil {
				return err
			}
		} else {
			writeReports(cmd.OutOrStdout(), reports)
		}
		if invalid > 0 {
			return fmt.Errorf("%w: %d of %d", errInvalidTemplates, invalid, len(reports))
		}
		return nil
	},
}

func validateFile(path string) fileReport {
	doc, err := data.ReadDocument(path)
	if err != nil {
		return fileReport{Path: path, Err: err.Error()}
	}
	return fileReport{Path: path, Result: rules.ValidateTemplateConfig(doc)}
}

func writeReports(w io.Writer, reports []fileReport) {
	for _, r := range reports {
		name := filepath.ToSlash(r.Path)
		switch {
		case r.Err != "":
			fmt.Fprintf(w, "%s %s\n  %s\n", invalidStyle.Render("✗"), name, r.Err)
		case r.Result.Valid:
			fmt.Fprintf(w, "%s %s\n", validStyle.Render("✓"), name)
		default:
			var sb strings.Builder
			for _, e := range r.Result.Errors {
				sb.WriteString(fmt.Sprintf("  %s %s %s\n", codeStyle.Render(e.Code), fieldStyle.Render(e.Field), e.Message))
			}
			fmt.Fprintf(w, "%s %s\n%s", invalidStyle.Render("✗"), name, sb.String())
		}
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringP("dir", "d", "", "Validate every template file in this directory")
	validateCmd.Flags().Bool("json", false, "Print the validation results as JSON")
}
