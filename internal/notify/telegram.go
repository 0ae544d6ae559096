package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends a chat message through a bot.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects the bot identified by token. The Telegram API is
// contacted once to validate the token.
func NewTelegram(token string, chatID int64, timeout time.Duration) (*Telegram, error) {
	return newTelegram(token, tgbotapi.APIEndpoint, chatID, &http.Client{Timeout: timeout})
}

func newTelegram(token, endpoint string, chatID int64, client *http.Client) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Name implements Notifier.
func (t *Telegram) Name() string { return "telegram" }

// Notify implements Notifier. The bot API has no context support, so ctx is
// only checked before sending; the client timeout bounds the request.
func (t *Telegram) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, msg.Text())); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
