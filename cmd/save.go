/*
Copyright © 2026 Marian Rusoiu
*/
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MarianRusoiu99/text-based-sub001/internal/persistence"
	"github.com/MarianRusoiu99/text-based-sub001/internal/session"
)

var (
	tgChatID    string
	tgUserPairs []string
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Manage save slots",
	Long: `Each save slot is an append-only event log under
<saves_dir>/<story>/<slot>/log.jsonl. Playing a slot replays the log to
rebuild the character and the current scene.`,
}

var saveCreateCmd = &cobra.Command{
	Use:   "create <story> <slot>",
	Short: "Create a save slot and start the story in it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		storyName, slot := args[0], args[1]
		manager := persistence.NewSaveManager(viper.GetString("saves_dir"))

		store, err := manager.Create(storyName, slot)
		if err != nil {
			return fmt.Errorf("failed to create save: %w", err)
		}
		defer store.Close()

		sess, err := session.NewSession(newLoader(), storyName, store, logger)
		if err != nil {
			return err
		}
		logger.Info("save created", zap.String("story", storyName), zap.String("slot", slot))

		fmt.Fprintf(cmd.OutOrStdout(), "Created save %s for %q.\n", slot, sess.Story().Title)
		fmt.Fprintf(cmd.OutOrStdout(), "Log file stored at: %s\n", manager.Path(storyName, slot))
		return nil
	},
}

var saveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List save slots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		saves, err := persistence.NewSaveManager(viper.GetString("saves_dir")).List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(saves) == 0 {
			fmt.Fprintln(out, "No saves yet.")
			return nil
		}
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%-20s %-12s %s", "STORY", "SLOT", "LAST PLAYED")))
		for _, s := range saves {
			fmt.Fprintf(out, "%-20s %-12s %s\n", s.Story, s.Slot, s.Modified.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var saveTelegramCmd = &cobra.Command{
	Use:   "telegram <story> <slot>",
	Short: "Configure the Telegram group that plays a save slot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := persistence.NewSaveManager(viper.GetString("saves_dir"))
		if _, err := os.Stat(manager.Path(args[0], args[1])); os.IsNotExist(err) {
			return fmt.Errorf("save %s/%s does not exist, run 'save create' first", args[0], args[1])
		}
		path := telegramConfigPath(manager, args[0], args[1])

		config, err := readTelegramConfig(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}

		if tgChatID == "" && config.ChatID == "" {
			tgChatID = promptChatID()
		}
		if tgChatID != "" {
			config.ChatID = tgChatID
		}

		for _, pair := range tgUserPairs {
			name, userID, ok := strings.Cut(pair, ":")
			if !ok || name == "" || userID == "" {
				fmt.Printf("Warning: invalid user pair format '%s'. Expected 'name:user_id'\n", pair)
				continue
			}
			config.Users[userID] = name
		}

		if err := writeTelegramConfig(path, config); err != nil {
			return err
		}
		fmt.Printf("Telegram configuration saved to %s\n", path)
		return nil
	},
}

func promptChatID() string {
	fmt.Print(`The chat ID tells the bot which group plays this slot.
  Add the bot to the group, post any message there, then open
  https://api.telegram.org/bot<TOKEN>/getUpdates and copy message.chat.id
  (group IDs are negative).
chat_id: `)
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.AddCommand(saveCreateCmd, saveListCmd, saveTelegramCmd)

	saveTelegramCmd.Flags().StringVarP(&tgChatID, "chat_id", "c", "", "Telegram group chat ID")
	saveTelegramCmd.Flags().StringSliceVarP(&tgUserPairs, "user", "u", []string{}, "Allow a Telegram user to play (format: name:user_id)")
}
