package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"crmbot/internal/models"
)

// Моки держат данные в map, как и сами репозитории в БД — по тем же ключам
// уникальности, чтобы проверять идемпотентность, а не устройство SQL.

type mockUserRepository struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*models.User
	consents map[int64]*models.Consent
	bindings map[int64]int64 // user_id -> stream_id из старого импорта
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:    make(map[int64]*models.User),
		consents: make(map[int64]*models.Consent),
		bindings: make(map[int64]int64),
	}
}

func (m *mockUserRepository) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Nickname == user.Nickname {
			return fmt.Errorf("duplicate nickname %q", user.Nickname)
		}
	}

	m.nextID++
	user.ID = m.nextID
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepository) GetByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.TelegramID == telegramID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) GetByNickname(_ context.Context, nickname string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Nickname == nickname {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) GetByStream(_ context.Context, streamID int64) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var users []models.User
	for _, u := range m.users {
		if u.StreamID == streamID || m.bindings[u.ID] == streamID {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *mockUserRepository) GetAll(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *mockUserRepository) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.users[id]; ok {
		user.PasswordHash = hash
	}
	return nil
}

func (m *mockUserRepository) UpdateRole(_ context.Context, id int64, role models.UserRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.users[id]; ok {
		user.Role = role
	}
	return nil
}

func (m *mockUserRepository) UpdateContacts(_ context.Context, id int64, phone, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.users[id]; ok {
		user.Phone = phone
		user.Email = email
	}
	return nil
}

func (m *mockUserRepository) AssignStream(_ context.Context, id, streamID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.users[id]; ok {
		user.StreamID = streamID
	}
	return nil
}

func (m *mockUserRepository) ResolveStream(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return 0, nil
	}
	if user.StreamID != 0 {
		return user.StreamID, nil
	}
	return m.bindings[id], nil
}

func (m *mockUserRepository) UpsertConsent(_ context.Context, consent *models.Consent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *consent
	m.consents[consent.UserID] = &copied
	return nil
}

func (m *mockUserRepository) GetConsent(_ context.Context, userID int64) (*models.Consent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	consent, ok := m.consents[userID]
	if !ok {
		return nil, nil
	}
	copied := *consent
	return &copied, nil
}

type mockStreamRepository struct {
	mu      sync.Mutex
	nextID  int64
	streams map[int64]*models.Stream
}

func newMockStreamRepository() *mockStreamRepository {
	return &mockStreamRepository{streams: make(map[int64]*models.Stream)}
}

func (m *mockStreamRepository) Create(_ context.Context, stream *models.Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	stream.ID = m.nextID
	copied := *stream
	m.streams[stream.ID] = &copied
	return nil
}

func (m *mockStreamRepository) GetByID(_ context.Context, id int64) (*models.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stream, ok := m.streams[id]
	if !ok {
		return nil, nil
	}
	copied := *stream
	return &copied, nil
}

func (m *mockStreamRepository) GetByName(_ context.Context, name string) (*models.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.streams {
		if s.Name == name {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockStreamRepository) GetAll(_ context.Context) ([]models.StreamWithStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	streams := make([]models.StreamWithStats, 0, len(m.streams))
	for _, s := range m.streams {
		streams = append(streams, models.StreamWithStats{Stream: *s})
	}
	sort.Slice(streams, func(i, j int) bool { return streams[i].ID < streams[j].ID })
	return streams, nil
}

type mockSessionRepository struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[int64]*models.Session

	upcoming   []models.SessionWithStream
	recentPast []models.SessionWithStream

	lastLimit int
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: make(map[int64]*models.Session)}
}

func (m *mockSessionRepository) Create(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	session.ID = m.nextID
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *mockSessionRepository) GetByID(_ context.Context, id int64) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (m *mockSessionRepository) Upcoming(_ context.Context, streamID int64, limit int) ([]models.SessionWithStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastLimit = limit
	return filterSessions(m.upcoming, streamID, limit), nil
}

func (m *mockSessionRepository) RecentPast(_ context.Context, streamID int64, limit int) ([]models.SessionWithStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastLimit = limit
	return filterSessions(m.recentPast, streamID, limit), nil
}

func (m *mockSessionRepository) Exists(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[id]
	return ok, nil
}

func filterSessions(sessions []models.SessionWithStream, streamID int64, limit int) []models.SessionWithStream {
	var out []models.SessionWithStream
	for _, s := range sessions {
		if streamID != 0 && s.StreamID != streamID {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

type attendanceKey struct {
	userID    int64
	sessionID int64
}

type mockAttendanceRepository struct {
	mu    sync.Mutex
	marks map[attendanceKey]*models.AttendanceMark
}

func newMockAttendanceRepository() *mockAttendanceRepository {
	return &mockAttendanceRepository{marks: make(map[attendanceKey]*models.AttendanceMark)}
}

func (m *mockAttendanceRepository) GetMarks(_ context.Context, sessionID int64) (map[int64]models.AttendanceStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	marks := make(map[int64]models.AttendanceStatus)
	for key, mark := range m.marks {
		if key.sessionID == sessionID {
			marks[key.userID] = mark.Status
		}
	}
	return marks, nil
}

func (m *mockAttendanceRepository) GetMark(_ context.Context, userID, sessionID int64) (models.AttendanceStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mark, ok := m.marks[attendanceKey{userID, sessionID}]
	if !ok {
		return models.AttendanceNone, nil
	}
	return mark.Status, nil
}

func (m *mockAttendanceRepository) Upsert(_ context.Context, mark *models.AttendanceMark) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *mark
	m.marks[attendanceKey{mark.UserID, mark.SessionID}] = &copied
	return nil
}

func (m *mockAttendanceRepository) Delete(_ context.Context, userID, sessionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.marks, attendanceKey{userID, sessionID})
	return nil
}

func (m *mockAttendanceRepository) PresentUsers(_ context.Context, sessionID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var users []int64
	for key, mark := range m.marks {
		if key.sessionID == sessionID && mark.Status == models.AttendancePresent {
			users = append(users, key.userID)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

type deliveryKey struct {
	sessionID int64
	userID    int64
}

type mockHomeworkRepository struct {
	mu         sync.Mutex
	deliveries map[deliveryKey]*models.HomeworkDelivery
}

func newMockHomeworkRepository() *mockHomeworkRepository {
	return &mockHomeworkRepository{deliveries: make(map[deliveryKey]*models.HomeworkDelivery)}
}

func (m *mockHomeworkRepository) MarkDelivered(_ context.Context, sessionID, userID int64, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := deliveryKey{sessionID, userID}
	// Повтор не перетирает первую запись, как ON CONFLICT DO NOTHING
	if _, ok := m.deliveries[key]; ok {
		return nil
	}
	m.deliveries[key] = &models.HomeworkDelivery{
		SessionID: sessionID,
		UserID:    userID,
		Link:      link,
	}
	return nil
}

func (m *mockHomeworkRepository) DeliveredUsers(_ context.Context, sessionID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var users []int64
	for key := range m.deliveries {
		if key.sessionID == sessionID {
			users = append(users, key.userID)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

func (m *mockHomeworkRepository) GetDelivery(_ context.Context, sessionID, userID int64) (*models.HomeworkDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delivery, ok := m.deliveries[deliveryKey{sessionID, userID}]
	if !ok {
		return nil, nil
	}
	copied := *delivery
	return &copied, nil
}

type mockBroadcastRepository struct {
	mu         sync.Mutex
	broadcasts map[string]*models.Broadcast
	recipients map[string]*models.BroadcastRecipient
}

func newMockBroadcastRepository() *mockBroadcastRepository {
	return &mockBroadcastRepository{
		broadcasts: make(map[string]*models.Broadcast),
		recipients: make(map[string]*models.BroadcastRecipient),
	}
}

func (m *mockBroadcastRepository) Create(_ context.Context, broadcast *models.Broadcast) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *broadcast
	m.broadcasts[broadcast.ID] = &copied
	return nil
}

func (m *mockBroadcastRepository) GetByID(_ context.Context, id string) (*models.Broadcast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	broadcast, ok := m.broadcasts[id]
	if !ok {
		return nil, nil
	}
	copied := *broadcast
	return &copied, nil
}

func (m *mockBroadcastRepository) GetAll(_ context.Context, limit, offset int) ([]models.Broadcast, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]models.Broadcast, 0, len(m.broadcasts))
	for _, b := range m.broadcasts {
		all = append(all, *b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockBroadcastRepository) UpdateStatus(_ context.Context, id string, status models.BroadcastStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.broadcasts[id]; ok {
		b.Status = status
	}
	return nil
}

func (m *mockBroadcastRepository) MarkStarted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.broadcasts[id]; ok {
		b.Status = models.BroadcastSending
	}
	return nil
}

func (m *mockBroadcastRepository) Finish(_ context.Context, id string, status models.BroadcastStatus, sent, failed, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.broadcasts[id]; ok {
		b.Status = status
		b.Sent = sent
		b.Failed = failed
		b.Total = total
	}
	return nil
}

func (m *mockBroadcastRepository) AddRecipients(_ context.Context, recipients []models.BroadcastRecipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range recipients {
		exists := false
		for _, existing := range m.recipients {
			if existing.BroadcastID == rec.BroadcastID && existing.UserID == rec.UserID {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		copied := rec
		m.recipients[rec.ID] = &copied
	}
	return nil
}

func (m *mockBroadcastRepository) QueuedRecipients(_ context.Context, broadcastID string) ([]models.BroadcastRecipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var queued []models.BroadcastRecipient
	for _, rec := range m.recipients {
		if rec.BroadcastID == broadcastID && rec.Status == models.RecipientQueued {
			queued = append(queued, *rec)
		}
	}
	sort.Slice(queued, func(i, j int) bool { return queued[i].UserID < queued[j].UserID })
	return queued, nil
}

func (m *mockBroadcastRepository) MarkRecipientSent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.recipients[id]; ok {
		rec.Status = models.RecipientSent
	}
	return nil
}

func (m *mockBroadcastRepository) MarkRecipientFailed(_ context.Context, id string, sendErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.recipients[id]; ok {
		rec.Status = models.RecipientFailed
		rec.Error = sendErr
	}
	return nil
}

func (m *mockBroadcastRepository) CountRecipients(_ context.Context, broadcastID string) (int, int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sent, failed, total int
	for _, rec := range m.recipients {
		if rec.BroadcastID != broadcastID {
			continue
		}
		total++
		switch rec.Status {
		case models.RecipientSent:
			sent++
		case models.RecipientFailed:
			failed++
		}
	}
	return sent, failed, total, nil
}

// mockSender записывает отправки и падает на чатах из failChats.
type mockSender struct {
	mu        sync.Mutex
	sent      []int64
	failChats map[int64]bool
}

func newMockSender() *mockSender {
	return &mockSender{failChats: make(map[int64]bool)}
}

func (m *mockSender) SendBroadcastMessage(chatID int64, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failChats[chatID] {
		return fmt.Errorf("chat %d unreachable", chatID)
	}
	m.sent = append(m.sent, chatID)
	return nil
}

func (m *mockSender) sentChats() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]int64, len(m.sent))
	copy(out, m.sent)
	return out
}
