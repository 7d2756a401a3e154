package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"crmbot/internal/config"
)

// Bot — тонкая обёртка над tgbotapi: long polling и отправка сообщений.
// Вся логика живёт в Handler.
type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
	timeout int
	logger  zerolog.Logger
}

func NewBot(cfg config.TelegramConfig, handler *Handler, logger zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	bot := &Bot{
		api:     api,
		handler: handler,
		timeout: cfg.UpdateTimeout,
		logger:  logger,
	}
	handler.bot = bot

	return bot, nil
}

func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.timeout

	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			// Каждое обновление обрабатывается независимо
			go func(update tgbotapi.Update) {
				if err := b.handler.HandleUpdate(ctx, update); err != nil {
					b.logger.Error().Err(err).Msg("Failed to handle update")
				}
			}(update)
		}
	}
}

// AnswerCallback подтверждает нажатие inline-кнопки, снимая «часики».
func (b *Bot) AnswerCallback(callbackID string) error {
	_, err := b.api.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}

func (b *Bot) Send(msg tgbotapi.Chattable) error {
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendText(chatID int64, text string) error {
	return b.Send(tgbotapi.NewMessage(chatID, text))
}

// SendBroadcastMessage реализует service.MessageSender.
func (b *Bot) SendBroadcastMessage(chatID int64, body, attachmentFileID string) error {
	if attachmentFileID != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(attachmentFileID))
		photo.Caption = body
		return b.Send(photo)
	}

	return b.SendText(chatID, body)
}
