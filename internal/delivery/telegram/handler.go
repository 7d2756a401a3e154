package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"crmbot/internal/config"
	"crmbot/internal/models"
	"crmbot/internal/service"
	"crmbot/internal/service/integration"
)

const (
	msgUnknownCommand   = "Не понял. Выберите команду из меню или напишите /help"
	msgInternalError    = "Что-то пошло не так. Попробуйте ещё раз"
	msgAdminsOnly       = "Эта команда доступна только администраторам"
	msgNothingToCancel  = "Сейчас нет активного диалога"
	msgCancelled        = "Действие отменено"
	msgSessionNotFound  = "Занятие не найдено"
	msgTempUnavailable  = "Сервис временно недоступен, попробуйте позже"
	msgNeedRegistration = "Сначала зарегистрируйтесь: /register"
)

// messenger — то, что обработчику нужно от бота. За интерфейсом стоит *Bot;
// в тестах его подменяет запись отправок в память.
type messenger interface {
	service.MessageSender
	Send(msg tgbotapi.Chattable) error
	SendText(chatID int64, text string) error
	AnswerCallback(callbackID string) error
}

type Handler struct {
	bot messenger

	userService       service.UserService
	scheduleService   service.ScheduleService
	attendanceService service.AttendanceService
	homeworkService   service.HomeworkService
	broadcastService  service.BroadcastService
	weatherClient     integration.WeatherClient
	currencyClient    integration.CurrencyClient

	wizards *wizardStore
	logger  zerolog.Logger
}

func NewHandler(
	userService service.UserService,
	scheduleService service.ScheduleService,
	attendanceService service.AttendanceService,
	homeworkService service.HomeworkService,
	broadcastService service.BroadcastService,
	weatherClient integration.WeatherClient,
	currencyClient integration.CurrencyClient,
	wizardCfg config.WizardConfig,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		userService:       userService,
		scheduleService:   scheduleService,
		attendanceService: attendanceService,
		homeworkService:   homeworkService,
		broadcastService:  broadcastService,
		weatherClient:     weatherClient,
		currencyClient:    currencyClient,
		wizards:           newWizardStore(wizardCfg.IdleTimeout, wizardCfg.GCInterval),
		logger:            logger,
	}
}

// StartJanitor запускает вычистку брошенных диалогов.
func (h *Handler) StartJanitor(ctx context.Context) {
	h.wizards.StartJanitor(ctx)
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		return h.handleMessage(ctx, update.Message)
	default:
		return nil
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, msg)
	}

	// Не команда: либо шаг активного диалога, либо непонятный ввод
	if state, ok := h.wizards.Get(userID); ok {
		return h.handleWizardStep(ctx, msg, state)
	}

	return h.bot.SendText(chatID, msgUnknownCommand)
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		return h.handleStart(ctx, msg)
	case "help":
		return h.handleHelp(ctx, msg)
	case "cancel":
		return h.handleCancel(msg)
	case "register":
		return h.startRegistration(msg)
	case "login":
		return h.startLogin(msg)
	case "schedule":
		return h.handleSchedule(ctx, msg)
	case "past":
		return h.handlePastSessions(ctx, msg)
	case "weather":
		return h.handleWeather(ctx, msg)
	case "currency":
		return h.handleCurrency(ctx, msg)
	case "attendance":
		return h.handleAttendance(ctx, msg)
	case "homework":
		return h.handleHomework(ctx, msg)
	case "broadcast":
		return h.startBroadcast(ctx, msg)
	case "broadcast_stop":
		return h.handleBroadcastStop(ctx, msg)
	case "broadcast_resume":
		return h.handleBroadcastResume(ctx, msg)
	case "newstream":
		return h.handleNewStream(ctx, msg)
	case "newsession":
		return h.handleNewSession(ctx, msg)
	default:
		return h.bot.SendText(chatID, msgUnknownCommand)
	}
}

func (h *Handler) handleCancel(msg *tgbotapi.Message) error {
	userID := msg.From.ID

	if _, ok := h.wizards.Get(userID); !ok {
		return h.bot.SendText(msg.Chat.ID, msgNothingToCancel)
	}

	h.wizards.Clear(userID)
	return h.bot.SendText(msg.Chat.ID, msgCancelled)
}

// requireAdmin возвращает пользователя-админа либо отправляет отказ и nil.
func (h *Handler) requireAdmin(ctx context.Context, msg *tgbotapi.Message) (*models.User, error) {
	user, err := h.userService.GetByTelegramID(ctx, msg.From.ID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, h.bot.SendText(msg.Chat.ID, msgAdminsOnly)
		}
		h.logger.Error().Err(err).Int64("telegram_id", msg.From.ID).Msg("Failed to load user")
		return nil, h.bot.SendText(msg.Chat.ID, msgInternalError)
	}

	if user.Role != models.RoleAdmin {
		return nil, h.bot.SendText(msg.Chat.ID, msgAdminsOnly)
	}

	return user, nil
}

func commandArgs(msg *tgbotapi.Message) []string {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return nil
	}
	return strings.Fields(args)
}
