package telegram

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmbot/internal/models"
)

// recordingMessenger копит отправленные тексты вместо похода в Telegram.
type recordingMessenger struct {
	texts []string
}

func (m *recordingMessenger) Send(tgbotapi.Chattable) error { return nil }

func (m *recordingMessenger) SendText(_ int64, text string) error {
	m.texts = append(m.texts, text)
	return nil
}

func (m *recordingMessenger) SendBroadcastMessage(int64, string, string) error { return nil }

func (m *recordingMessenger) AnswerCallback(string) error { return nil }

func (m *recordingMessenger) lastText() string {
	if len(m.texts) == 0 {
		return ""
	}
	return m.texts[len(m.texts)-1]
}

// stubUserService записывает вызовы Register и больше ничего не умеет.
type stubUserService struct {
	registered []string
}

func (s *stubUserService) Register(_ context.Context, _, _ int64, nickname, _ string) (*models.User, error) {
	s.registered = append(s.registered, nickname)
	return &models.User{ID: 1, Nickname: nickname}, nil
}

func (s *stubUserService) Login(context.Context, int64, string, string) (*models.User, error) {
	return nil, models.ErrInvalidCredentials
}

func (s *stubUserService) GetByTelegramID(context.Context, int64) (*models.User, error) {
	return nil, models.ErrUserNotFound
}

func (s *stubUserService) GetByID(context.Context, int64) (*models.User, error) {
	return nil, models.ErrUserNotFound
}

func (s *stubUserService) RecordConsent(context.Context, int64, bool) error { return nil }

func (s *stubUserService) StreamRoster(context.Context, int64) ([]models.User, error) {
	return nil, nil
}

func (s *stubUserService) AssignStream(context.Context, int64, int64) error { return nil }

func (s *stubUserService) IsAdmin(context.Context, int64) (bool, error) { return false, nil }

func newWizardFixture(t *testing.T) (*Handler, *recordingMessenger, *stubUserService) {
	t.Helper()

	bot := &recordingMessenger{}
	users := &stubUserService{}
	handler := &Handler{
		bot:         bot,
		userService: users,
		wizards:     newWizardStore(time.Minute, time.Minute),
		logger:      zerolog.Nop(),
	}

	return handler, bot, users
}

func wizardText(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
}

// Пустой или короткий пароль не двигает диалог и не создаёт пользователя:
// бот переспрашивает, пока не придёт пароль от 6 символов.
func TestRegistrationShortPasswordReprompts(t *testing.T) {
	handler, bot, users := newWizardFixture(t)
	ctx := context.Background()

	require.NoError(t, handler.startRegistration(wizardText(42, "/register")))
	require.NoError(t, handler.handleMessage(ctx, wizardText(42, "gopher")))

	state, ok := handler.wizards.Get(42)
	require.True(t, ok)
	require.Equal(t, stepPassword, state.Step)

	for _, password := range []string{"", "123"} {
		require.NoError(t, handler.handleMessage(ctx, wizardText(42, password)))
		assert.Equal(t, "Пароль слишком короткий. Нужно не меньше 6 символов:", bot.lastText())

		state, ok = handler.wizards.Get(42)
		require.True(t, ok)
		assert.Equal(t, stepPassword, state.Step)
	}

	assert.Empty(t, users.registered)
}

func TestRegistrationHappyPath(t *testing.T) {
	handler, bot, users := newWizardFixture(t)
	ctx := context.Background()

	require.NoError(t, handler.startRegistration(wizardText(42, "/register")))
	require.NoError(t, handler.handleMessage(ctx, wizardText(42, "gopher")))
	require.NoError(t, handler.handleMessage(ctx, wizardText(42, "secret123")))
	require.NoError(t, handler.handleMessage(ctx, wizardText(42, "да")))

	assert.Equal(t, []string{"gopher"}, users.registered)
	assert.Contains(t, bot.lastText(), "gopher")

	// Диалог завершён
	_, ok := handler.wizards.Get(42)
	assert.False(t, ok)
}

func TestRegistrationConsentDeclined(t *testing.T) {
	handler, _, users := newWizardFixture(t)
	ctx := context.Background()

	require.NoError(t, handler.startRegistration(wizardText(42, "/register")))
	require.NoError(t, handler.handleMessage(ctx, wizardText(42, "gopher")))
	require.NoError(t, handler.handleMessage(ctx, wizardText(42, "secret123")))
	require.NoError(t, handler.handleMessage(ctx, wizardText(42, "нет")))

	assert.Empty(t, users.registered)

	_, ok := handler.wizards.Get(42)
	assert.False(t, ok)
}
