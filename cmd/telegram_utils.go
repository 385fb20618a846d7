package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/MarianRusoiu99/text-based-sub001/internal/persistence"
	"github.com/MarianRusoiu99/text-based-sub001/internal/session"
	"github.com/MarianRusoiu99/text-based-sub001/internal/telegram"
)

// TelegramConfig binds a save slot to a group chat. Users maps telegram user IDs to
// player names; when empty, anyone in the chat may play.
type TelegramConfig struct {
	ChatID string            `yaml:"chat_id"`
	Users  map[string]string `yaml:"users"`
}

func telegramConfigPath(manager *persistence.SaveManager, story, slot string) string {
	return filepath.Join(manager.Path(story, slot), "telegram.yaml")
}

func readTelegramConfig(path string) (TelegramConfig, error) {
	config := TelegramConfig{Users: map[string]string{}}
	f, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&config); err != nil {
		return config, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if config.Users == nil {
		config.Users = map[string]string{}
	}
	return config, nil
}

func writeTelegramConfig(path string, config TelegramConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()
	if err := enc.Encode(config); err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	return nil
}

// maybeStartBot starts the Telegram worker for a save slot when a token is configured
// and the slot has a telegram.yaml. It reports whether a bot was started.
func maybeStartBot(ctx context.Context, sess *session.Session, configPath string) bool {
	token := viper.GetString("telegram_token")
	if token == "" {
		return false
	}
	config, err := readTelegramConfig(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("telegram config unreadable", zap.String("path", configPath), zap.Error(err))
		}
		return false
	}
	if config.ChatID == "" {
		return false
	}
	chatID, err := strconv.ParseInt(config.ChatID, 10, 64)
	if err != nil {
		logger.Warn("invalid telegram chat id", zap.String("chat_id", config.ChatID))
		return false
	}

	players := make(map[int64]string, len(config.Users))
	for idStr, name := range config.Users {
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			players[id] = name
		}
	}

	bot := telegram.NewBot(telegram.NewClient(token), chatID, players, sess, logger)
	go func() {
		if err := bot.Start(ctx); err != nil {
			logger.Error("telegram bot stopped", zap.Error(err))
		}
	}()
	return true
}
