// Package bot exposes the Telegram command surface: /start, /help,
// /add <url>, /list and the interactive /remove flow.
package bot

import (
	"context"

	"mvdham/bolwatch/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram long-polling loop around a Dispatcher
type Bot struct {
	api        *tgbotapi.BotAPI
	dispatcher *Dispatcher
	log        *logger.Logger
}

// NewBot creates a bot runner on top of an initialized API client
func NewBot(api *tgbotapi.BotAPI, dispatcher *Dispatcher) *Bot {
	return &Bot{
		api:        api,
		dispatcher: dispatcher,
		log:        logger.ForBot(),
	}
}

// Run consumes updates until the context is cancelled
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	b.log.Info().Str("username", b.api.Self.UserName).Msg("Bot is running")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(update.Message)
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, b.dispatcher.Help())
	case "add":
		text := b.dispatcher.Add(chatID, msg.CommandArguments(), func(interim string) {
			b.reply(chatID, interim)
		})
		b.reply(chatID, text)
	case "list":
		b.reply(chatID, b.dispatcher.List(chatID))
	case "remove":
		text, markup := b.dispatcher.Remove(chatID)
		out := tgbotapi.NewMessage(chatID, text)
		if markup != nil {
			out.ReplyMarkup = markup
		}
		b.send(out)
	}
}

func (b *Bot) handleCallback(query *tgbotapi.CallbackQuery) {
	// Acknowledge the button press so the client stops its spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("Failed to answer callback query")
	}

	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	text := b.dispatcher.Resolve(chatID, query.Data)

	// Replace the menu with the outcome
	b.send(tgbotapi.NewEditMessageText(chatID, query.Message.MessageID, text))
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Error().Err(err).Msg("Failed to send reply")
	}
}
