package bot

import (
	"context"
	"fmt"

	"FirsatRadar/internal/database"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// client is the slice of tgbotapi.BotAPI the bot needs. Tests swap in a
// fake.
type client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot runs the subscription side of the service: users talk to it to pick
// which deal categories they want forwarded to them.
type Bot struct {
	api   client
	store *database.SubscriptionStore
}

// New connects to the Telegram Bot API with the given token.
func New(token string, store *database.SubscriptionStore) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is empty, set TELEGRAM_BOT_TOKEN in .env or config.yml")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("could not connect to Telegram: %w", err)
	}
	api.Debug = false

	log.WithField("username", api.Self.UserName).Info("Bot authorized")
	return &Bot{api: api, store: store}, nil
}

// Run consumes the update channel until ctx is cancelled. Each command is
// handled inline; handlers are quick enough that a worker pool would be
// noise.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("Could not send reply")
		// Telegram rejects messages with broken HTML entities, retry plain.
		msg.ParseMode = ""
		if _, err := b.api.Send(msg); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Error("Plain-text fallback failed")
		}
	}
}
