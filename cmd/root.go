/*
Copyright © 2026 Marian Rusoiu
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MarianRusoiu99/text-based-sub001/internal/data"
	"github.com/MarianRusoiu99/text-based-sub001/internal/logging"
)

var (
	cfgFile string
	logger  = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "textbased",
	Short: "Rule templates, checks and branching stories for text-based RPGs",
	Long: `textbased validates author-supplied rule templates, evaluates their
formulas and checks against a character, and plays branching stories whose
choices and effects are driven by those rules.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logging.Config{
			Level:      viper.GetString("log.level"),
			Encoding:   viper.GetString("log.encoding"),
			OutputPath: viper.GetString("log.output"),
		})
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		logger = l
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Debug("using config file", zap.String("path", f))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.textbased.yaml)")
	rootCmd.PersistentFlags().StringSlice("data_dir", []string{".", "./data"}, "Data directories searched for templates/ and stories/, in order")
	rootCmd.PersistentFlags().String("saves_dir", "./saves", "Directory holding save slots")
	rootCmd.PersistentFlags().String("log_level", "info", "Log level (debug, info, warn, error)")

	_ = viper.BindPFlag("data_dirs", rootCmd.PersistentFlags().Lookup("data_dir"))
	_ = viper.BindPFlag("saves_dir", rootCmd.PersistentFlags().Lookup("saves_dir"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log_level"))

	viper.SetDefault("log.encoding", "console")
	viper.SetDefault("log.output", "stderr")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".textbased")
	}

	viper.SetEnvPrefix("textbased")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

func newLoader() *data.Loader {
	return data.NewLoader(viper.GetStringSlice("data_dirs"))
}
