package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"crmbot/internal/models"
)

const (
	dataNickname   = "nickname"
	dataPassword   = "password"
	dataAudience   = "audience"
	dataBody       = "body"
	dataAttachment = "attachment"
)

func (h *Handler) startRegistration(msg *tgbotapi.Message) error {
	h.wizards.Begin(msg.From.ID, wizardRegister, stepNickname)
	return h.bot.SendText(msg.Chat.ID, "Придумайте никнейм (без пробелов):")
}

func (h *Handler) startLogin(msg *tgbotapi.Message) error {
	h.wizards.Begin(msg.From.ID, wizardLogin, stepNickname)
	return h.bot.SendText(msg.Chat.ID, "Введите никнейм:")
}

func (h *Handler) startBroadcast(ctx context.Context, msg *tgbotapi.Message) error {
	admin, err := h.requireAdmin(ctx, msg)
	if admin == nil {
		return err
	}

	streams, err := h.scheduleService.GetStreams(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load streams for broadcast")
		return h.bot.SendText(msg.Chat.ID, msgInternalError)
	}

	var sb strings.Builder
	sb.WriteString("Кому отправить рассылку?\n\nНапишите «все» или название потока:\n")
	for _, s := range streams {
		sb.WriteString(fmt.Sprintf("— %s (%d чел.)\n", s.Name, s.TotalUsers))
	}

	h.wizards.Begin(msg.From.ID, wizardBroadcast, stepAudience)
	return h.bot.SendText(msg.Chat.ID, sb.String())
}

// handleWizardStep проверяет ввод против формы текущего шага; при ошибке
// переспрашивает, не двигая состояние.
func (h *Handler) handleWizardStep(ctx context.Context, msg *tgbotapi.Message, state *wizardState) error {
	switch state.Kind {
	case wizardRegister:
		return h.registrationStep(ctx, msg, state)
	case wizardLogin:
		return h.loginStep(ctx, msg, state)
	case wizardBroadcast:
		return h.broadcastStep(ctx, msg, state)
	default:
		h.wizards.Clear(msg.From.ID)
		return h.bot.SendText(msg.Chat.ID, msgUnknownCommand)
	}
}

func (h *Handler) registrationStep(ctx context.Context, msg *tgbotapi.Message, state *wizardState) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch state.Step {
	case stepNickname:
		if !validNickname(text) {
			return h.bot.SendText(chatID, "Никнейм должен быть от 2 до 32 символов и без пробелов. Попробуйте ещё раз:")
		}
		h.wizards.Advance(userID, dataNickname, text, stepPassword)
		return h.bot.SendText(chatID, "Придумайте пароль (не короче 6 символов):")

	case stepPassword:
		if len(text) < 6 {
			return h.bot.SendText(chatID, "Пароль слишком короткий. Нужно не меньше 6 символов:")
		}
		h.wizards.Advance(userID, dataPassword, text, stepConsent)
		return h.bot.SendText(chatID, "Согласны на обработку персональных данных? (да/нет)")

	case stepConsent:
		switch strings.ToLower(text) {
		case "да":
			user, err := h.userService.Register(ctx, userID, chatID, state.Data[dataNickname], state.Data[dataPassword])
			if err != nil {
				if errors.Is(err, models.ErrNicknameTaken) {
					h.wizards.Advance(userID, "", "", stepNickname)
					return h.bot.SendText(chatID, "Такой никнейм уже занят. Придумайте другой:")
				}
				h.logger.Error().Err(err).Msg("Registration failed")
				h.wizards.Clear(userID)
				return h.bot.SendText(chatID, msgInternalError)
			}

			if err := h.userService.RecordConsent(ctx, user.ID, true); err != nil {
				h.logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to record consent")
			}

			h.wizards.Clear(userID)
			return h.bot.SendText(chatID, fmt.Sprintf("Готово! Вы зарегистрированы как %s", user.Nickname))
		case "нет":
			h.wizards.Clear(userID)
			return h.bot.SendText(chatID, "Без согласия регистрация невозможна. Если передумаете — /register")
		default:
			return h.bot.SendText(chatID, "Ответьте «да» или «нет»:")
		}
	}

	return nil
}

func (h *Handler) loginStep(ctx context.Context, msg *tgbotapi.Message, state *wizardState) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch state.Step {
	case stepNickname:
		if text == "" {
			return h.bot.SendText(chatID, "Никнейм не может быть пустым. Введите никнейм:")
		}
		h.wizards.Advance(userID, dataNickname, text, stepPassword)
		return h.bot.SendText(chatID, "Введите пароль:")

	case stepPassword:
		if text == "" {
			return h.bot.SendText(chatID, "Пароль не может быть пустым. Введите пароль:")
		}

		user, err := h.userService.Login(ctx, userID, state.Data[dataNickname], text)
		if err != nil {
			h.wizards.Clear(userID)
			if errors.Is(err, models.ErrInvalidCredentials) {
				return h.bot.SendText(chatID, "Неверный никнейм или пароль. Попробуйте снова: /login")
			}
			h.logger.Error().Err(err).Msg("Login failed")
			return h.bot.SendText(chatID, msgInternalError)
		}

		h.wizards.Clear(userID)
		return h.bot.SendText(chatID, fmt.Sprintf("Здравствуйте, %s!", user.Nickname))
	}

	return nil
}

func (h *Handler) broadcastStep(ctx context.Context, msg *tgbotapi.Message, state *wizardState) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch state.Step {
	case stepAudience:
		audience, err := h.resolveAudienceInput(ctx, text)
		if err != nil {
			if errors.Is(err, models.ErrStreamNotFound) {
				return h.bot.SendText(chatID, fmt.Sprintf("Поток «%s» не найден. Напишите «все» или название потока:", text))
			}
			h.logger.Error().Err(err).Msg("Failed to resolve audience")
			return h.bot.SendText(chatID, msgInternalError)
		}
		h.wizards.Advance(userID, dataAudience, audience, stepBody)
		return h.bot.SendText(chatID, "Текст рассылки (можно фото с подписью):")

	case stepBody:
		body := text
		attachment := ""
		if len(msg.Photo) > 0 {
			// Берём самый крупный вариант фото
			attachment = msg.Photo[len(msg.Photo)-1].FileID
			body = strings.TrimSpace(msg.Caption)
		}
		if body == "" && attachment == "" {
			return h.bot.SendText(chatID, "Сообщение пустое. Пришлите текст или фото с подписью:")
		}

		h.wizards.Advance(userID, dataBody, body, stepConfirm)
		if attachment != "" {
			h.wizards.Advance(userID, dataAttachment, attachment, stepConfirm)
		}

		preview := fmt.Sprintf("Отправляем?\n\n%s\n\nОтветьте «да» для запуска или /cancel", body)
		return h.bot.SendText(chatID, preview)

	case stepConfirm:
		if strings.ToLower(text) != "да" {
			return h.bot.SendText(chatID, "Ответьте «да» для запуска или /cancel для отмены:")
		}

		admin, err := h.userService.GetByTelegramID(ctx, userID)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to load admin for broadcast")
			h.wizards.Clear(userID)
			return h.bot.SendText(chatID, msgInternalError)
		}

		broadcast, err := h.broadcastService.Compose(ctx,
			state.Data[dataBody],
			state.Data[dataAttachment],
			state.Data[dataAudience],
			admin.ID,
		)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to compose broadcast")
			h.wizards.Clear(userID)
			return h.bot.SendText(chatID, msgInternalError)
		}

		if err := h.broadcastService.Start(ctx, broadcast.ID, h.bot); err != nil {
			h.logger.Error().Err(err).Str("broadcast_id", broadcast.ID).Msg("Failed to start broadcast")
			h.wizards.Clear(userID)
			return h.bot.SendText(chatID, msgInternalError)
		}

		h.wizards.Clear(userID)
		return h.bot.SendText(chatID, fmt.Sprintf("Рассылка запущена. Id: %s", broadcast.ID))
	}

	return nil
}

func (h *Handler) resolveAudienceInput(ctx context.Context, text string) (string, error) {
	lowered := strings.ToLower(text)
	if lowered == "все" || lowered == "all" {
		return models.AudienceAll, nil
	}

	stream, err := h.scheduleService.GetStreamByName(ctx, text)
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(stream.ID, 10), nil
}

func validNickname(s string) bool {
	if len(s) < 2 || len(s) > 32 {
		return false
	}
	return !strings.ContainsAny(s, " \t\n")
}
