package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardStoreFlow(t *testing.T) {
	store := newWizardStore(time.Minute, time.Minute)

	store.Begin(42, wizardRegister, stepNickname)

	state, ok := store.Get(42)
	require.True(t, ok)
	assert.Equal(t, wizardRegister, state.Kind)
	assert.Equal(t, stepNickname, state.Step)

	store.Advance(42, "nickname", "gopher", stepPassword)

	state, ok = store.Get(42)
	require.True(t, ok)
	assert.Equal(t, stepPassword, state.Step)
	assert.Equal(t, "gopher", state.Data["nickname"])

	// Диалоги разных пользователей не пересекаются
	_, ok = store.Get(43)
	assert.False(t, ok)

	store.Clear(42)
	_, ok = store.Get(42)
	assert.False(t, ok)
}

// Get отдаёт снимок: правки в возвращённом состоянии не должны протекать в
// store, иначе обработчики в разных горутинах гоняются за одной map.
func TestWizardStoreGetReturnsSnapshot(t *testing.T) {
	store := newWizardStore(time.Minute, time.Minute)

	store.Begin(42, wizardRegister, stepNickname)
	store.Advance(42, "nickname", "gopher", stepPassword)

	state, ok := store.Get(42)
	require.True(t, ok)

	state.Step = stepConfirm
	state.Data["nickname"] = "hacked"
	state.Data["extra"] = "x"

	fresh, ok := store.Get(42)
	require.True(t, ok)
	assert.Equal(t, stepPassword, fresh.Step)
	assert.Equal(t, "gopher", fresh.Data["nickname"])
	assert.NotContains(t, fresh.Data, "extra")
}

func TestWizardStoreAdvanceWithoutState(t *testing.T) {
	store := newWizardStore(time.Minute, time.Minute)

	// Advance по несуществующему диалогу — no-op, без паники
	store.Advance(42, "nickname", "gopher", stepPassword)

	_, ok := store.Get(42)
	assert.False(t, ok)
}

func TestWizardStoreCleanup(t *testing.T) {
	store := newWizardStore(time.Minute, time.Minute)

	store.Begin(1, wizardRegister, stepNickname)
	store.Begin(2, wizardBroadcast, stepAudience)

	// Диалог 1 висит дольше таймаута, диалог 2 свежий
	store.mu.Lock()
	store.states[1].Touched = time.Now().Add(-2 * time.Minute)
	store.mu.Unlock()

	store.cleanup()

	_, ok := store.Get(1)
	assert.False(t, ok)
	_, ok = store.Get(2)
	assert.True(t, ok)
}

func TestValidNickname(t *testing.T) {
	tests := []struct {
		nickname string
		valid    bool
	}{
		{"gopher", true},
		{"go", true},
		{"g", false},
		{"", false},
		{"has space", false},
		{"has\ttab", false},
		{"waaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaay-too-long", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, validNickname(tt.nickname), "nickname %q", tt.nickname)
	}
}
