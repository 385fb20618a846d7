package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MarianRusoiu99/text-based-sub001/internal/session"
)

// LastUpdateKey is the config key holding the offset of the last handled update.
const LastUpdateKey = "tg_last_update_id"

// maxMessageLen is the Bot API limit on a single text message.
const maxMessageLen = 4096

// Executor runs one line of player input.
type Executor interface {
	Execute(input string) (*session.Response, error)
}

// API is the subset of the Bot API the worker uses.
type API interface {
	GetUpdates(ctx context.Context, offset, timeout int) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Bot relays messages from one group chat into a play session.
type Bot struct {
	client       API
	executor     Executor
	chatID       int64
	players      map[int64]string // telegram user id -> player name; empty allows everyone
	lastUpdateID int
	retryDelay   time.Duration
	logger       *zap.Logger
}

// NewBot creates a bot bound to chatID. The polling offset resumes from viper.
func NewBot(client API, chatID int64, players map[int64]string, exec Executor, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		client:       client,
		executor:     exec,
		chatID:       chatID,
		players:      players,
		lastUpdateID: viper.GetInt(LastUpdateKey),
		retryDelay:   5 * time.Second,
		logger:       logger.With(zap.Int64("chat", chatID)),
	}
}

// Start long-polls until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("telegram bot started")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		updates, err := b.client.GetUpdates(ctx, b.lastUpdateID+1, 25)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			b.logger.Warn("failed to fetch updates", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(b.retryDelay):
			}
			continue
		}
		for _, update := range updates {
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate records the update offset and answers its message, if any.
func (b *Bot) HandleUpdate(ctx context.Context, update Update) {
	if update.UpdateID > b.lastUpdateID {
		b.lastUpdateID = update.UpdateID
		viper.Set(LastUpdateKey, b.lastUpdateID)
		// No config file yet is fine; the offset then lives for this run only.
		_ = viper.WriteConfig()
	}
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
}

// LastUpdateID reports the offset of the newest update seen.
func (b *Bot) LastUpdateID() int { return b.lastUpdateID }

func (b *Bot) handleMessage(ctx context.Context, msg *Message) {
	if msg.Chat.ID != b.chatID {
		return
	}
	if !strings.HasPrefix(msg.Text, "/") {
		return
	}
	input := Translate(msg.Text)
	if input == "" {
		return
	}

	if len(b.players) > 0 {
		if _, ok := b.players[msg.From.ID]; !ok {
			b.send(ctx, fmt.Sprintf("User %s (%d) is not a player in this story.", msg.From.FirstName, msg.From.ID))
			return
		}
	}

	resp, err := b.executor.Execute(input)
	if err != nil {
		b.logger.Debug("command failed", zap.String("input", input), zap.Error(err))
		b.send(ctx, fmt.Sprintf("Error: %v", err))
		return
	}
	b.send(ctx, resp.Text)
}

func (b *Bot) send(ctx context.Context, text string) {
	for _, part := range SplitMessage(text, maxMessageLen) {
		if err := b.client.SendMessage(ctx, b.chatID, part); err != nil {
			b.logger.Warn("failed to send message", zap.Error(err))
			return
		}
	}
}

// Translate turns a slash command into session input. Bot mentions are dropped
// ("/look@talebot" is "look") and "/start" shows the current scene.
func Translate(text string) string {
	parts := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(parts) == 0 {
		return ""
	}
	cmd, _, _ := strings.Cut(parts[0], "@")
	if cmd == "start" {
		cmd = "look"
	}
	if cmd == "" {
		return ""
	}
	return strings.Join(append([]string{cmd}, parts[1:]...), " ")
}

// SplitMessage breaks text into chunks of at most limit bytes, preferring line breaks.
func SplitMessage(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
