package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MarianRusoiu99/text-based-sub001/internal/telegram"
)

var botToken string

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Configure chat bots that relay play sessions",
}

var telegramBotCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Register the Telegram bot token",
	Long: `Stores the bot token under telegram_token in the config file. Each save slot
then picks its group chat with 'save telegram'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if botToken == "" {
			botToken = promptToken()
		}
		if botToken == "" {
			return fmt.Errorf("no token given")
		}

		if verify, _ := cmd.Flags().GetBool("verify"); verify {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			me, err := telegram.NewClient(botToken).GetMe(ctx)
			if err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}
			fmt.Printf("Token belongs to @%s.\n", me.Username)
		}

		viper.Set("telegram_token", botToken)
		if err := writeConfig(); err != nil {
			return fmt.Errorf("error saving configuration: %w", err)
		}
		fmt.Println("Telegram bot token saved successfully.")
		return nil
	},
}

func promptToken() string {
	fmt.Print(`A Telegram bot lets a group chat play a save slot together.
  1. Talk to @BotFather in Telegram and send /newbot.
  2. Copy the HTTP API token it gives you and paste it below.
  3. Add the bot to your group and turn off its privacy mode so it sees commands.
token: `)
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

// writeConfig saves viper's settings to the config in use, creating $HOME/.textbased.yaml
// when there is none.
func writeConfig() error {
	if err := viper.WriteConfig(); err == nil {
		return nil
	}
	if err := viper.SafeWriteConfig(); err == nil {
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return viper.WriteConfigAs(filepath.Join(home, ".textbased.yaml"))
}

func init() {
	rootCmd.AddCommand(botCmd)
	botCmd.AddCommand(telegramBotCmd)

	telegramBotCmd.Flags().StringVarP(&botToken, "token", "t", "", "Telegram bot API token")
	telegramBotCmd.Flags().Bool("verify", true, "Check the token with the Telegram API before saving it")
}
