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

func (h *Handler) handleAttendance(ctx context.Context, msg *tgbotapi.Message) error {
	admin, err := h.requireAdmin(ctx, msg)
	if admin == nil {
		return err
	}

	args := commandArgs(msg)
	if len(args) != 1 {
		return h.bot.SendText(msg.Chat.ID, "Укажите занятие: /attendance <id занятия>")
	}

	sessionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return h.bot.SendText(msg.Chat.ID, "Id занятия должен быть числом")
	}

	text, keyboard, err := h.buildAttendanceView(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return h.bot.SendText(msg.Chat.ID, msgSessionNotFound)
		}
		h.logger.Error().Err(err).Int64("session_id", sessionID).Msg("Failed to build attendance view")
		return h.bot.SendText(msg.Chat.ID, msgInternalError)
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyMarkup = keyboard
	return h.bot.Send(reply)
}

// buildAttendanceView рисует список учеников потока занятия с текущими
// отметками; нажатие кнопки крутит отметку по циклу.
func (h *Handler) buildAttendanceView(ctx context.Context, sessionID int64) (string, tgbotapi.InlineKeyboardMarkup, error) {
	var empty tgbotapi.InlineKeyboardMarkup

	session, err := h.scheduleService.GetSession(ctx, sessionID)
	if err != nil {
		return "", empty, err
	}

	roster, err := h.userService.StreamRoster(ctx, session.StreamID)
	if err != nil {
		return "", empty, err
	}

	marks, err := h.attendanceService.Marks(ctx, sessionID)
	if err != nil {
		return "", empty, err
	}

	text := fmt.Sprintf("Посещаемость: %s, %s\nНажмите на ученика, чтобы сменить отметку",
		session.Title, session.HeldOn.Format("02.01.2006"))

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, user := range roster {
		label := fmt.Sprintf("%s %s", attendanceEmoji(marks[user.ID]), user.Nickname)
		data := fmt.Sprintf("att:%d:%d", sessionID, user.ID)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, data),
		))
	}

	return text, tgbotapi.NewInlineKeyboardMarkup(rows...), nil
}

func attendanceEmoji(status models.AttendanceStatus) string {
	switch status {
	case models.AttendancePresent:
		return "✅"
	case models.AttendanceAbsent:
		return "❌"
	case models.AttendanceLate:
		return "🕑"
	case models.AttendanceExpelled:
		return "🚫"
	default:
		return "▫️"
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	defer func() {
		// Снимаем "часики" на кнопке в любом случае
		if err := h.bot.AnswerCallback(cb.ID); err != nil {
			h.logger.Debug().Err(err).Msg("Failed to answer callback")
		}
	}()

	parts := strings.Split(cb.Data, ":")
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "att":
		return h.attendanceToggleCallback(ctx, cb, parts)
	default:
		return nil
	}
}

func (h *Handler) attendanceToggleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, parts []string) error {
	if len(parts) != 3 || cb.Message == nil {
		return nil
	}

	isAdmin, err := h.userService.IsAdmin(ctx, cb.From.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to check admin on toggle")
		return nil
	}
	if !isAdmin {
		return nil
	}

	sessionID, err1 := strconv.ParseInt(parts[1], 10, 64)
	userID, err2 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil {
		return nil
	}

	actor, err := h.userService.GetByTelegramID(ctx, cb.From.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load actor")
		return nil
	}

	if _, err := h.attendanceService.Toggle(ctx, userID, sessionID, actor.ID); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return h.bot.SendText(cb.Message.Chat.ID, msgSessionNotFound)
		}
		h.logger.Error().Err(err).
			Int64("session_id", sessionID).
			Int64("user_id", userID).
			Msg("Failed to toggle attendance")
		return h.bot.SendText(cb.Message.Chat.ID, msgInternalError)
	}

	// Перерисовываем клавиатуру по свежему состоянию
	_, keyboard, err := h.buildAttendanceView(ctx, sessionID)
	if err != nil {
		h.logger.Error().Err(err).Int64("session_id", sessionID).Msg("Failed to rebuild attendance view")
		return nil
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID, keyboard)
	return h.bot.Send(edit)
}

// handleHomework раздаёт ссылку на домашку присутствовавшим, кто её ещё не
// получал. Отметка о выдаче ставится только после успешной отправки.
func (h *Handler) handleHomework(ctx context.Context, msg *tgbotapi.Message) error {
	admin, err := h.requireAdmin(ctx, msg)
	if admin == nil {
		return err
	}

	args := commandArgs(msg)
	if len(args) != 1 {
		return h.bot.SendText(msg.Chat.ID, "Укажите занятие: /homework <id занятия>")
	}

	sessionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return h.bot.SendText(msg.Chat.ID, "Id занятия должен быть числом")
	}

	session, err := h.scheduleService.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return h.bot.SendText(msg.Chat.ID, msgSessionNotFound)
		}
		h.logger.Error().Err(err).Msg("Failed to load session")
		return h.bot.SendText(msg.Chat.ID, msgInternalError)
	}

	if session.HomeworkLink == "" {
		return h.bot.SendText(msg.Chat.ID, "У этого занятия нет ссылки на домашку")
	}

	pending, err := h.homeworkService.NotYetDelivered(ctx, sessionID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute pending deliveries")
		return h.bot.SendText(msg.Chat.ID, msgInternalError)
	}

	if len(pending) == 0 {
		return h.bot.SendText(msg.Chat.ID, "Все присутствовавшие уже получили домашку")
	}

	report := models.HomeworkReport{SessionID: sessionID}
	for _, userID := range pending {
		user, err := h.userService.GetByID(ctx, userID)
		if err != nil {
			report.Skipped++
			continue
		}

		text := fmt.Sprintf("Домашнее задание к занятию «%s» (%s):\n%s",
			session.Title, session.HeldOn.Format("02.01.2006"), session.HomeworkLink)

		if err := h.bot.SendText(user.ChatID, text); err != nil {
			h.logger.Warn().Err(err).Int64("user_id", userID).Msg("Homework send failed")
			report.Failed++
			continue
		}

		if err := h.homeworkService.MarkDelivered(ctx, sessionID, userID, session.HomeworkLink); err != nil {
			h.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to mark homework delivered")
		}
		report.Sent++
	}

	return h.bot.SendText(msg.Chat.ID, fmt.Sprintf(
		"Домашка разослана. Отправлено: %d, ошибок: %d, пропущено: %d",
		report.Sent, report.Failed, report.Skipped))
}

func (h *Handler) handleBroadcastStop(ctx context.Context, msg *tgbotapi.Message) error {
	admin, err := h.requireAdmin(ctx, msg)
	if admin == nil {
		return err
	}

	args := commandArgs(msg)
	if len(args) != 1 {
		return h.bot.SendText(msg.Chat.ID, "Укажите рассылку: /broadcast_stop <id>")
	}

	if !h.broadcastService.Stop(args[0]) {
		return h.bot.SendText(msg.Chat.ID, "Такая рассылка сейчас не идёт")
	}

	return h.bot.SendText(msg.Chat.ID, "Останавливаю рассылку")
}

func (h *Handler) handleBroadcastResume(ctx context.Context, msg *tgbotapi.Message) error {
	admin, err := h.requireAdmin(ctx, msg)
	if admin == nil {
		return err
	}

	args := commandArgs(msg)
	if len(args) != 1 {
		return h.bot.SendText(msg.Chat.ID, "Укажите рассылку: /broadcast_resume <id>")
	}

	if err := h.broadcastService.Resume(ctx, args[0], h.bot); err != nil {
		switch {
		case errors.Is(err, models.ErrBroadcastNotFound):
			return h.bot.SendText(msg.Chat.ID, "Рассылка не найдена")
		case errors.Is(err, models.ErrBroadcastNotResumable):
			return h.bot.SendText(msg.Chat.ID, "Эту рассылку нельзя продолжить")
		case errors.Is(err, models.ErrBroadcastRunning):
			return h.bot.SendText(msg.Chat.ID, "Рассылка уже идёт")
		default:
			h.logger.Error().Err(err).Msg("Failed to resume broadcast")
			return h.bot.SendText(msg.Chat.ID, msgInternalError)
		}
	}

	return h.bot.SendText(msg.Chat.ID, "Продолжаю рассылку")
}

func (h *Handler) handleNewStream(ctx context.Context, msg *tgbotapi.Message) error {
	admin, err := h.requireAdmin(ctx, msg)
	if admin == nil {
		return err
	}

	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		return h.bot.SendText(msg.Chat.ID, "Укажите название: /newstream <название>")
	}

	stream, err := h.scheduleService.CreateStream(ctx, name)
	if err != nil {
		if errors.Is(err, models.ErrStreamNameTaken) {
			return h.bot.SendText(msg.Chat.ID, "Поток с таким названием уже есть")
		}
		h.logger.Error().Err(err).Msg("Failed to create stream")
		return h.bot.SendText(msg.Chat.ID, msgInternalError)
	}

	return h.bot.SendText(msg.Chat.ID, fmt.Sprintf("Поток «%s» создан, id %d", stream.Name, stream.ID))
}

func (h *Handler) handleNewSession(ctx context.Context, msg *tgbotapi.Message) error {
	admin, err := h.requireAdmin(ctx, msg)
	if admin == nil {
		return err
	}

	args := commandArgs(msg)
	if len(args) < 3 {
		return h.bot.SendText(msg.Chat.ID, "Формат: /newsession <id потока> <дата ГГГГ-ММ-ДД> <название>")
	}

	streamID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return h.bot.SendText(msg.Chat.ID, "Id потока должен быть числом")
	}

	req := &models.CreateSessionRequest{
		StreamID: streamID,
		HeldOn:   args[1],
		Title:    strings.Join(args[2:], " "),
	}

	session, err := h.scheduleService.CreateSession(ctx, req)
	if err != nil {
		if errors.Is(err, models.ErrStreamNotFound) {
			return h.bot.SendText(msg.Chat.ID, "Поток не найден")
		}
		h.logger.Error().Err(err).Msg("Failed to create session")
		return h.bot.SendText(msg.Chat.ID, "Не получилось создать занятие. Проверьте формат даты: ГГГГ-ММ-ДД")
	}

	return h.bot.SendText(msg.Chat.ID, fmt.Sprintf("Занятие «%s» создано, id %d", session.Title, session.ID))
}
