package notifier

import (
	errs "mvdham/bolwatch/pkg/errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier implements Notifier using the Telegram bot API
type TelegramNotifier struct {
	api *tgbotapi.BotAPI
}

var _ Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier creates a notifier on top of an initialized bot API
func NewTelegramNotifier(api *tgbotapi.BotAPI) *TelegramNotifier {
	return &TelegramNotifier{api: api}
}

// Send delivers a plain-text message to the given chat
func (n *TelegramNotifier) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return errs.NewNotification("notifier", "failed to send message", err)
	}
	return nil
}
