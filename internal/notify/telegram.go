package notify

import (
	"context"
	"fmt"

	"autobook/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramMaxText is the Bot API limit for one message.
const telegramMaxText = 4096

// TelegramNotifier posts messages to one chat through the Bot API.
type TelegramNotifier struct {
	bot    domain.TelegramSender
	chatID int64
}

func NewTelegramNotifier(bot domain.TelegramSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

// NewTelegramBot authenticates the bot token against the Bot API.
func NewTelegramBot(token string, debug bool) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runes := []rune(text)
	if len(runes) > telegramMaxText {
		text = string(runes[:telegramMaxText-1]) + "…"
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
