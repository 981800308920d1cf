package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/notifier/internal/database/testutil"
	"github.com/charlesng35/notifier/internal/models"
	apperrors "github.com/charlesng35/notifier/pkg/errors"
)

func newTestStore(t *testing.T) (*GormStore, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	s, err := New(db)
	require.NoError(t, err)
	return s, db
}

func insertNotification(t *testing.T, s *GormStore, userID, title string, read bool, createdAt time.Time) models.Notification {
	t.Helper()
	n := models.Notification{
		UserID:           userID,
		NotificationType: "task_due",
		Title:            title,
		Message:          title + " message",
		Read:             read,
		CreatedAt:        createdAt.UTC(),
	}
	require.NoError(t, s.InsertNotification(context.Background(), &n))
	return n
}

func TestNewRequiresDB(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestFindUser(t *testing.T) {
	s, db := newTestStore(t)
	testutil.MustCreateUser(t, db, "u1", "ada@example.com", "Ada Lovelace")

	user, err := s.FindUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", user.Email)
	require.Equal(t, "Ada Lovelace", user.FullName)

	_, err = s.FindUser(context.Background(), "missing")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestListPreferencesScopedByType(t *testing.T) {
	s, db := newTestStore(t)
	require.NoError(t, db.Create(&[]models.NotificationPreference{
		{UserID: "u1", NotificationType: "weather_conflict", Channel: models.ChannelEmail, Enabled: false},
		{UserID: "u1", NotificationType: "weather_conflict", Channel: models.ChannelPush, Enabled: true},
		{UserID: "u1", NotificationType: "task_due", Channel: models.ChannelEmail, Enabled: true},
		{UserID: "u2", NotificationType: "weather_conflict", Channel: models.ChannelEmail, Enabled: true},
	}).Error)

	prefs, err := s.ListPreferences(context.Background(), "u1", "weather_conflict")
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	for _, pref := range prefs {
		require.Equal(t, "u1", pref.UserID)
		require.Equal(t, "weather_conflict", pref.NotificationType)
	}
}

func TestDeviceTokens(t *testing.T) {
	s, db := newTestStore(t)
	require.NoError(t, db.Create(&[]models.DeviceToken{
		{UserID: "u1", DeviceToken: "tok-a"},
		{UserID: "u1", DeviceToken: "tok-b"},
		{UserID: "u1", DeviceToken: "tok-c"},
		{UserID: "u2", DeviceToken: "tok-a"},
	}).Error)

	tokens, err := s.ListDeviceTokens(context.Background(), "u1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"tok-a", "tok-b", "tok-c"}, tokens)

	removed, err := s.DeleteDeviceTokens(context.Background(), "u1", []string{"tok-a", "tok-c", "tok-missing"})
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	tokens, err = s.ListDeviceTokens(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"tok-b"}, tokens)

	other, err := s.ListDeviceTokens(context.Background(), "u2")
	require.NoError(t, err)
	require.Equal(t, []string{"tok-a"}, other)

	removed, err = s.DeleteDeviceTokens(context.Background(), "u1", nil)
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestCountSinceUsesTrailingWindow(t *testing.T) {
	s, _ := newTestStore(t)
	now := time.Now().UTC()
	insertNotification(t, s, "u1", "Report", false, now.Add(-10*time.Minute))

	count, err := s.CountSince(context.Background(), "u1", "task_due", "Report", now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Zero(t, count)

	insertNotification(t, s, "u1", "Report", false, now.Add(-time.Minute))
	count, err = s.CountSince(context.Background(), "u1", "task_due", "Report", now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, err = s.CountSince(context.Background(), "u1", "task_due", "Other", now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestListNotificationsFiltersAndOrders(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Now().UTC().Add(-time.Hour)
	first := insertNotification(t, s, "u1", "first", false, base)
	second := insertNotification(t, s, "u1", "second", true, base.Add(time.Minute))
	third := insertNotification(t, s, "u1", "third", false, base.Add(2*time.Minute))
	insertNotification(t, s, "u2", "foreign", false, base)

	all, err := s.ListNotifications(context.Background(), "u1", nil, 10)
	require.NoError(t, err)
	require.Equal(t, []string{third.ID, second.ID, first.ID}, ids(all))

	unread := false
	rows, err := s.ListNotifications(context.Background(), "u1", &unread, 10)
	require.NoError(t, err)
	require.Equal(t, []string{third.ID, first.ID}, ids(rows))

	read := true
	rows, err = s.ListNotifications(context.Background(), "u1", &read, 10)
	require.NoError(t, err)
	require.Equal(t, []string{second.ID}, ids(rows))

	rows, err = s.ListNotifications(context.Background(), "u1", nil, 1)
	require.NoError(t, err)
	require.Equal(t, []string{third.ID}, ids(rows))
}

func TestMarkReadScopedToOwner(t *testing.T) {
	s, _ := newTestStore(t)
	n := insertNotification(t, s, "u1", "mine", false, time.Now())

	affected, err := s.MarkRead(context.Background(), "u2", n.ID)
	require.NoError(t, err)
	require.Zero(t, affected)

	affected, err = s.MarkRead(context.Background(), "u1", n.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	affected, err = s.MarkRead(context.Background(), "u1", n.ID)
	require.NoError(t, err)
	require.Zero(t, affected)
}

func TestMarkAllReadReturnsAffectedIDs(t *testing.T) {
	s, _ := newTestStore(t)
	now := time.Now()
	a := insertNotification(t, s, "u1", "a", false, now)
	b := insertNotification(t, s, "u1", "b", false, now)
	insertNotification(t, s, "u1", "c", true, now)
	insertNotification(t, s, "u2", "d", false, now)

	affected, err := s.MarkAllRead(context.Background(), "u1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{a.ID, b.ID}, affected)

	count, err := s.CountUnread(context.Background(), "u1")
	require.NoError(t, err)
	require.Zero(t, count)

	count, err = s.CountUnread(context.Background(), "u2")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	affected, err = s.MarkAllRead(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, affected)
}

func TestArchiveRoundTripAndReconciliation(t *testing.T) {
	s, db := newTestStore(t)
	now := time.Now()
	a := insertNotification(t, s, "u1", "a", true, now)
	b := insertNotification(t, s, "u1", "b", true, now)

	rows, err := s.ListRead(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	archived := make([]models.ArchivedNotification, 0, len(rows))
	for _, row := range rows {
		archived = append(archived, row.Archive(now))
	}
	require.NoError(t, s.InsertArchived(context.Background(), archived))
	require.NoError(t, s.InsertArchived(context.Background(), archived), "re-archiving must be idempotent")

	var archivedCount int64
	require.NoError(t, db.Model(&models.ArchivedNotification{}).Count(&archivedCount).Error)
	require.EqualValues(t, 2, archivedCount)

	// Simulate a crash between copy and delete for b only.
	removed, err := s.DeleteNotifications(context.Background(), "u1", []string{a.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	removed, err = s.DeleteArchivedDuplicates(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	remaining, err := s.ListNotifications(context.Background(), "u1", nil, 10)
	require.NoError(t, err)
	require.Empty(t, remaining)

	var kept models.ArchivedNotification
	require.NoError(t, db.Where("id = ?", b.ID).Take(&kept).Error)
	require.Equal(t, "b", kept.Title)
}

func ids(rows []models.Notification) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ID)
	}
	return out
}
