/*
Copyright © 2026 Marian Rusoiu
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MarianRusoiu99/text-based-sub001/internal/logging"
	"github.com/MarianRusoiu99/text-based-sub001/internal/persistence"
	"github.com/MarianRusoiu99/text-based-sub001/internal/session"
)

var playCmd = &cobra.Command{
	Use:   "play <story> <slot>",
	Short: "Play a story in a save slot",
	Long: `Opens the save slot, replays its event log and starts the interactive player.
Type a choice number to pick it, or 'help' for all commands.

If a Telegram token is registered and the slot has a telegram configuration,
the group chat plays the same session alongside the terminal.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		storyName, slot := args[0], args[1]
		plain, _ := cmd.Flags().GetBool("plain")
		create, _ := cmd.Flags().GetBool("new")

		manager := persistence.NewSaveManager(viper.GetString("saves_dir"))
		var (
			store *persistence.Store
			err   error
		)
		if create {
			store, err = manager.Create(storyName, slot)
		} else {
			store, err = manager.Load(storyName, slot)
		}
		if errors.Is(err, persistence.ErrSaveNotFound) {
			return fmt.Errorf("%w: run 'save create %s %s' or pass --new", err, storyName, slot)
		}
		if err != nil {
			return err
		}
		defer store.Close()

		// The TUI owns the terminal, so logs written to stderr go to the slot instead.
		if !plain && logsToTerminal() {
			l, err := logging.New(logging.Config{
				Level:      viper.GetString("log.level"),
				Encoding:   "json",
				OutputPath: filepath.Join(manager.Path(storyName, slot), "play.log"),
			})
			if err == nil {
				logger = l
			}
		}

		sess, err := session.NewSession(newLoader(), storyName, store, logger)
		if err != nil {
			return fmt.Errorf("failed to start play session: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if maybeStartBot(ctx, sess, telegramConfigPath(manager, storyName, slot)) {
			logger.Info("telegram bot active", zap.String("story", storyName), zap.String("slot", slot))
		}

		if plain {
			return runPlain(ctx, sess, cmd.InOrStdin(), cmd.OutOrStdout())
		}
		return RunTUI(sess, storyName, slot)
	},
}

func logsToTerminal() bool {
	out := viper.GetString("log.output")
	return out == "" || out == "stderr" || out == "stdout"
}

// runPlain is a line-based player for terminals without TUI support and for scripting.
func runPlain(ctx context.Context, sess *session.Session, in io.Reader, out io.Writer) error {
	text, err := sess.Describe()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, text)

	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		resp, err := sess.Execute(line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, resp.Text)
	}
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().Bool("plain", false, "Use a line-based prompt instead of the full-screen interface")
	playCmd.Flags().Bool("new", false, "Create the save slot if it does not exist")
}
