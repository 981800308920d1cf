package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/notifier/internal/database/testutil"
	"github.com/charlesng35/notifier/internal/models"
	"github.com/charlesng35/notifier/internal/store"
	"github.com/charlesng35/notifier/pkg/mail"
)

var errStoreDown = errors.New("store unavailable")

type testEnv struct {
	db    *gorm.DB
	store *store.GormStore
	pub   *recordingPublisher
	clock *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	st, err := store.New(db)
	require.NoError(t, err)

	return &testEnv{
		db:    db,
		store: st,
		pub:   &recordingPublisher{},
		clock: &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
	}
}

func (e *testEnv) addPreference(t *testing.T, userID, notificationType, channel string, enabled bool) {
	t.Helper()
	pref := models.NotificationPreference{
		UserID:           userID,
		NotificationType: notificationType,
		Channel:          channel,
		Enabled:          enabled,
	}
	require.NoError(t, e.db.Create(&pref).Error)
}

func (e *testEnv) addDeviceToken(t *testing.T, userID, token string) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.DeviceToken{UserID: userID, DeviceToken: token, Platform: "ios"}).Error)
}

func (e *testEnv) countRows(t *testing.T, model any, userID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(model).Where("user_id = ?", userID).Count(&count).Error)
	return count
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type publishedEvent struct {
	UserID  string
	Event   string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, userID, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Event: eventType, Payload: payload})
	return p.err
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

type fakeProvider struct {
	mu       sync.Mutex
	failures map[string]TokenFailure
	err      error
	sent     []PushMessage
}

func (p *fakeProvider) SendMulticast(_ context.Context, msg PushMessage) ([]TokenResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	if p.err != nil {
		return nil, p.err
	}
	results := make([]TokenResult, 0, len(msg.Tokens))
	for _, token := range msg.Tokens {
		failure := p.failures[token]
		var err error
		if failure != TokenDelivered {
			err = errors.New("provider rejected token")
		}
		results = append(results, TokenResult{Token: token, Failure: failure, Err: err})
	}
	return results, nil
}

func (p *fakeProvider) Sent() []PushMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PushMessage(nil), p.sent...)
}

type recordingMailer struct {
	mu   sync.Mutex
	msgs []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return m.err
}

func (m *recordingMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.msgs...)
}

// faultyStore overrides selected reads and writes of a real store with failures.
type faultyStore struct {
	Store
	failPreferences bool
	failTokens      bool
	failCountSince  bool
	failList        bool
	failCountUnread bool
	failMarkAllRead bool
	failInsertArch  bool
	failDelete      bool
	deleteCalls     int
	insertArchCalls int
}

func (s *faultyStore) ListPreferences(ctx context.Context, userID, notificationType string) ([]models.NotificationPreference, error) {
	if s.failPreferences {
		return nil, errStoreDown
	}
	return s.Store.ListPreferences(ctx, userID, notificationType)
}

func (s *faultyStore) ListDeviceTokens(ctx context.Context, userID string) ([]string, error) {
	if s.failTokens {
		return nil, errStoreDown
	}
	return s.Store.ListDeviceTokens(ctx, userID)
}

func (s *faultyStore) CountSince(ctx context.Context, userID, notificationType, title string, since time.Time) (int64, error) {
	if s.failCountSince {
		return 0, errStoreDown
	}
	return s.Store.CountSince(ctx, userID, notificationType, title, since)
}

func (s *faultyStore) ListNotifications(ctx context.Context, userID string, read *bool, limit int) ([]models.Notification, error) {
	if s.failList {
		return nil, errStoreDown
	}
	return s.Store.ListNotifications(ctx, userID, read, limit)
}

func (s *faultyStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	if s.failCountUnread {
		return 0, errStoreDown
	}
	return s.Store.CountUnread(ctx, userID)
}

func (s *faultyStore) MarkAllRead(ctx context.Context, userID string) ([]string, error) {
	if s.failMarkAllRead {
		return nil, errStoreDown
	}
	return s.Store.MarkAllRead(ctx, userID)
}

func (s *faultyStore) InsertArchived(ctx context.Context, rows []models.ArchivedNotification) error {
	s.insertArchCalls++
	if s.failInsertArch {
		return errStoreDown
	}
	return s.Store.InsertArchived(ctx, rows)
}

func (s *faultyStore) DeleteNotifications(ctx context.Context, userID string, ids []string) (int64, error) {
	s.deleteCalls++
	if s.failDelete {
		return 0, errStoreDown
	}
	return s.Store.DeleteNotifications(ctx, userID, ids)
}

func intPtr(v int) *int {
	return &v
}
