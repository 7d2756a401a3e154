package telegram

import (
	"context"
	"sync"
	"time"
)

type wizardKind int

const (
	wizardRegister wizardKind = iota + 1
	wizardLogin
	wizardBroadcast
)

// Шаги линейные, без обратных переходов; единственный выход в сторону — /cancel.
const (
	stepNickname = "await_nickname"
	stepPassword = "await_password"
	stepConsent  = "await_consent"
	stepAudience = "await_audience"
	stepBody     = "await_body"
	stepConfirm  = "await_confirm"
)

type wizardState struct {
	Kind    wizardKind
	Step    string
	Data    map[string]string
	Touched time.Time
}

// wizardStore держит состояния диалогов по id пользователя. Состояние живёт
// от первого шага до завершения/отмены; брошенные диалоги вычищает janitor.
type wizardStore struct {
	mu          sync.Mutex
	states      map[int64]*wizardState
	idleTimeout time.Duration
	gcInterval  time.Duration
}

func newWizardStore(idleTimeout, gcInterval time.Duration) *wizardStore {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	if gcInterval <= 0 {
		gcInterval = 5 * time.Minute
	}

	return &wizardStore{
		states:      make(map[int64]*wizardState),
		idleTimeout: idleTimeout,
		gcInterval:  gcInterval,
	}
}

func (s *wizardStore) Begin(userID int64, kind wizardKind, step string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[userID] = &wizardState{
		Kind:    kind,
		Step:    step,
		Data:    make(map[string]string),
		Touched: time.Now(),
	}
}

// Get отдаёт снимок состояния: обработчики апдейтов бегут в своих горутинах,
// и живой указатель под чужим Advance читать нельзя.
func (s *wizardStore) Get(userID int64) (*wizardState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[userID]
	if !ok {
		return nil, false
	}

	snapshot := &wizardState{
		Kind:    state.Kind,
		Step:    state.Step,
		Data:    make(map[string]string, len(state.Data)),
		Touched: state.Touched,
	}
	for k, v := range state.Data {
		snapshot.Data[k] = v
	}
	return snapshot, true
}

// Advance сохраняет значение текущего шага и переводит диалог на следующий.
func (s *wizardStore) Advance(userID int64, key, value, nextStep string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[userID]
	if !ok {
		return
	}

	if key != "" {
		state.Data[key] = value
	}
	state.Step = nextStep
	state.Touched = time.Now()
}

func (s *wizardStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, userID)
}

func (s *wizardStore) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.gcInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanup()
			}
		}
	}()
}

func (s *wizardStore) cleanup() {
	cutoff := time.Now().Add(-s.idleTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, state := range s.states {
		if state.Touched.Before(cutoff) {
			delete(s.states, userID)
		}
	}
}
