package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"crmbot/internal/models"
)

func newUserFixture(t *testing.T) (UserService, *mockUserRepository) {
	t.Helper()

	userRepo := newMockUserRepository()
	svc := NewUserService(userRepo, nil, zerolog.Nop())

	return svc, userRepo
}

func TestRegister(t *testing.T) {
	svc, _ := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, 42, 420, "gopher", "secret-password")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, models.RoleUser, user.Role)

	// Пароль хранится только как bcrypt-хэш
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$2"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret-password")))
}

func TestRegisterNicknameTaken(t *testing.T) {
	svc, _ := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, 42, 420, "gopher", "secret-password")
	require.NoError(t, err)

	_, err = svc.Register(ctx, 43, 430, "gopher", "another-password")
	assert.ErrorIs(t, err, models.ErrNicknameTaken)
}

func TestLogin(t *testing.T) {
	svc, _ := newUserFixture(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, 42, 420, "gopher", "secret-password")
	require.NoError(t, err)

	user, err := svc.Login(ctx, 42, "gopher", "secret-password")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.Login(ctx, 42, "gopher", "wrong-password")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = svc.Login(ctx, 42, "nobody", "secret-password")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

// Записи из старого импорта хранили пароль открытым текстом: вход по нему
// срабатывает один раз и сразу мигрирует запись на bcrypt.
func TestLoginLegacyPlaintext(t *testing.T) {
	svc, userRepo := newUserFixture(t)
	ctx := context.Background()

	legacy := &models.User{
		TelegramID:   42,
		Nickname:     "oldtimer",
		PasswordHash: "plaintext-password",
		Role:         models.RoleUser,
	}
	require.NoError(t, userRepo.Create(ctx, legacy))

	user, err := svc.Login(ctx, 42, "oldtimer", "plaintext-password")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$2"))

	stored, err := userRepo.GetByID(ctx, legacy.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2"))

	// Повторный вход идёт уже по хэшу
	_, err = svc.Login(ctx, 42, "oldtimer", "plaintext-password")
	require.NoError(t, err)

	_, err = svc.Login(ctx, 42, "oldtimer", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestRecordConsent(t *testing.T) {
	svc, userRepo := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, 42, 420, "gopher", "secret-password")
	require.NoError(t, err)

	require.NoError(t, svc.RecordConsent(ctx, user.ID, true))

	consent, err := userRepo.GetConsent(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, consent)
	assert.True(t, consent.Given)

	// Передумал: запись перезаписывается, а не дублируется
	require.NoError(t, svc.RecordConsent(ctx, user.ID, false))
	consent, err = userRepo.GetConsent(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, consent.Given)
}

func TestIsAdmin(t *testing.T) {
	svc, userRepo := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, 42, 420, "gopher", "secret-password")
	require.NoError(t, err)

	isAdmin, err := svc.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	require.NoError(t, userRepo.UpdateRole(ctx, user.ID, models.RoleAdmin))

	isAdmin, err = svc.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	// Незнакомый telegram id — просто не админ, без ошибки
	isAdmin, err = svc.IsAdmin(ctx, 99999)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestGetByTelegramIDNotFound(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, err := svc.GetByTelegramID(context.Background(), 99999)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}
