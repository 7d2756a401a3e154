package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"crmbot/internal/models"
)

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := h.userService.GetByTelegramID(ctx, msg.From.ID)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		h.logger.Error().Err(err).Msg("Failed to load user on /start")
		return h.bot.SendText(msg.Chat.ID, msgInternalError)
	}

	if user == nil {
		text := "Привет! Это бот учебного центра.\n\n" +
			"/register — регистрация\n" +
			"/login — вход\n" +
			"/help — все команды"
		return h.bot.SendText(msg.Chat.ID, text)
	}

	return h.bot.SendText(msg.Chat.ID, fmt.Sprintf("С возвращением, %s! Команды: /help", user.Nickname))
}

func (h *Handler) handleHelp(ctx context.Context, msg *tgbotapi.Message) error {
	text := "Команды:\n" +
		"/register — регистрация\n" +
		"/login — вход\n" +
		"/schedule — ближайшие занятия\n" +
		"/past — прошедшие занятия\n" +
		"/weather <город> — погода\n" +
		"/currency <из> <в> — курс валют\n" +
		"/cancel — отменить текущий диалог"

	isAdmin, err := h.userService.IsAdmin(ctx, msg.From.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to check admin role")
	}
	if isAdmin {
		text += "\n\nАдмин:\n" +
			"/attendance <id занятия> — отметить посещаемость\n" +
			"/homework <id занятия> — раздать домашку\n" +
			"/broadcast — рассылка\n" +
			"/broadcast_stop <id> — остановить рассылку\n" +
			"/broadcast_resume <id> — продолжить рассылку\n" +
			"/newstream <название> — новый поток\n" +
			"/newsession <поток> <дата> <тема> — новое занятие"
	}

	return h.bot.SendText(msg.Chat.ID, text)
}

func (h *Handler) handleSchedule(ctx context.Context, msg *tgbotapi.Message) error {
	return h.renderSessions(ctx, msg, false)
}

func (h *Handler) handlePastSessions(ctx context.Context, msg *tgbotapi.Message) error {
	return h.renderSessions(ctx, msg, true)
}

func (h *Handler) renderSessions(ctx context.Context, msg *tgbotapi.Message, past bool) error {
	chatID := msg.Chat.ID

	var streamID int64
	user, err := h.userService.GetByTelegramID(ctx, msg.From.ID)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		h.logger.Error().Err(err).Msg("Failed to load user for schedule")
		return h.bot.SendText(chatID, msgInternalError)
	}
	if user != nil {
		streamID, err = h.scheduleService.ResolveUserStream(ctx, user.ID)
		if err != nil {
			h.logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to resolve stream")
			return h.bot.SendText(chatID, msgInternalError)
		}
	}

	var sessions []models.SessionWithStream
	if past {
		sessions, err = h.scheduleService.RecentPastSessions(ctx, streamID, 10)
	} else {
		sessions, err = h.scheduleService.UpcomingSessions(ctx, streamID, 10)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load sessions")
		return h.bot.SendText(chatID, msgInternalError)
	}

	if len(sessions) == 0 {
		if past {
			return h.bot.SendText(chatID, "Прошедших занятий пока нет")
		}
		return h.bot.SendText(chatID, "Ближайших занятий пока нет")
	}

	var sb strings.Builder
	if past {
		sb.WriteString("Прошедшие занятия:\n\n")
	} else {
		sb.WriteString("Ближайшие занятия:\n\n")
	}
	for _, s := range sessions {
		sb.WriteString(fmt.Sprintf("%s — %s (%s)\n", s.HeldOn.Format("02.01.2006"), s.Title, s.StreamName))
		if s.Annotation != "" {
			sb.WriteString(s.Annotation + "\n")
		}
		sb.WriteString("\n")
	}

	return h.bot.SendText(chatID, sb.String())
}

func (h *Handler) handleWeather(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	args := commandArgs(msg)
	if len(args) == 0 {
		return h.bot.SendText(chatID, "Укажите город: /weather Москва")
	}

	city := strings.Join(args, " ")

	report, err := h.weatherClient.CurrentByCity(ctx, city)
	if err != nil {
		// Внешний сбой не показываем пользователю как есть
		h.logger.Warn().Err(err).Str("city", city).Msg("Weather lookup failed")
		return h.bot.SendText(chatID, msgTempUnavailable)
	}

	text := fmt.Sprintf("Погода в %s: %s, %.1f°C (ощущается как %.1f°C), влажность %d%%",
		report.City, report.Description, report.TempC, report.FeelsLikeC, report.Humidity)

	return h.bot.SendText(chatID, text)
}

func (h *Handler) handleCurrency(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	args := commandArgs(msg)
	if len(args) != 2 {
		return h.bot.SendText(chatID, "Укажите пару валют: /currency USD RUB")
	}

	base := strings.ToUpper(args[0])
	quote := strings.ToUpper(args[1])

	rate, err := h.currencyClient.Rate(ctx, base, quote)
	if err != nil {
		h.logger.Warn().Err(err).Str("base", base).Str("quote", quote).Msg("Currency lookup failed")
		return h.bot.SendText(chatID, msgTempUnavailable)
	}

	return h.bot.SendText(chatID, fmt.Sprintf("1 %s = %.4f %s", base, rate, quote))
}
