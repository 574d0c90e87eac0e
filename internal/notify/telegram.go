package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FirsatRadar/pkg/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// sender is the slice of tgbotapi.BotAPI the dispatcher needs. Tests swap in
// a fake.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Dispatcher delivers formatted messages to Telegram chats with a bounded
// retry policy. Rate-limit waits requested by the server are honored but do
// not consume a retry attempt.
type Dispatcher struct {
	bot        sender
	maxRetries int
	retryDelay time.Duration
	sleep      func(time.Duration)
}

// maxRateLimitWaits bounds how many 429 waits a single Send will honor, so a
// permanently throttled chat cannot stall a pass forever.
const maxRateLimitWaits = 5

// NewBot connects to the Telegram Bot API with the configured token.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to Telegram: %w", err)
	}
	bot.Debug = false
	log.WithField("username", bot.Self.UserName).Info("Telegram bot authorized")
	return bot, nil
}

// NewDispatcher builds a Dispatcher on top of an authorized bot.
func NewDispatcher(bot *tgbotapi.BotAPI, cfg config.TelegramConfig) *Dispatcher {
	return &Dispatcher{
		bot:        bot,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay(),
		sleep:      time.Sleep,
	}
}

// Send submits text to chatID as an HTML-formatted message. It returns true
// only on a confirmed delivery; after exhausting the retry budget it returns
// false rather than an error, and the caller must not mark the product
// notified.
func (d *Dispatcher) Send(ctx context.Context, chatID int64, text string) bool {
	rateLimitWaits := 0

	for attempt := 1; attempt <= d.maxRetries; {
		if ctx.Err() != nil {
			return false
		}

		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		_, err := d.bot.Send(msg)
		if err == nil {
			return true
		}

		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 && rateLimitWaits < maxRateLimitWaits {
			wait := time.Duration(apiErr.RetryAfter) * time.Second
			log.WithFields(log.Fields{
				"chat_id":     chatID,
				"retry_after": apiErr.RetryAfter,
			}).Warn("Telegram rate limit, waiting before retry")
			d.sleep(wait)
			rateLimitWaits++
			// Exempt from the retry budget: the server told us to wait, it
			// did not reject the message.
			continue
		}

		log.WithFields(log.Fields{
			"chat_id": chatID,
			"attempt": attempt,
		}).WithError(err).Error("Telegram send failed")

		attempt++
		if attempt <= d.maxRetries {
			d.sleep(d.retryDelay)
		}
	}
	return false
}
