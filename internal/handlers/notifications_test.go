package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/notifier/internal/models"
	"github.com/charlesng35/notifier/internal/notifications"
)

func TestNotificationHandlerSendAndList(t *testing.T) {
	env := newHandlerEnv(t)

	payload := env.send(t, "u1", "Outdoor run moved")
	result := decodeData[notifications.Result](t, payload)
	require.True(t, result.Success)
	require.Empty(t, result.Message)

	rec, payload := env.do(t, http.MethodGet, "/api/notifications", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, payload.Meta)
	require.Equal(t, 1, payload.Meta.Count)
	require.Equal(t, "unread", payload.Meta.Status)

	items := decodeData[[]models.Notification](t, payload)
	require.Len(t, items, 1)
	require.Equal(t, "Outdoor run moved", items[0].Title)
	require.False(t, items[0].Read)
}

func TestNotificationHandlerSendSuppressesDuplicates(t *testing.T) {
	env := newHandlerEnv(t)

	env.send(t, "u1", "Outdoor run moved")
	result := decodeData[notifications.Result](t, env.send(t, "u1", "Outdoor run moved"))
	require.True(t, result.Success)
	require.Equal(t, "skipped: spam protection", result.Message)
}

func TestNotificationHandlerSendUnknownUser(t *testing.T) {
	env := newHandlerEnv(t)

	rec, payload := env.do(t, http.MethodPost, "/internal/notifications", "", gin.H{
		"user_id":           "ghost",
		"notification_type": notifications.TypeWeatherConflict,
		"title":             "Rain",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "USER_NOT_FOUND", payload.Error.Code)
}

func TestNotificationHandlerSendValidates(t *testing.T) {
	env := newHandlerEnv(t)

	rec, payload := env.do(t, http.MethodPost, "/internal/notifications", "", gin.H{
		"user_id":           "u1",
		"notification_type": "  ",
		"title":             "Rain",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, payload.Error.Message, "notification type is required")

	rec, payload = env.do(t, http.MethodPost, "/internal/notifications", "", gin.H{
		"user_id":           "u1",
		"notification_type": notifications.TypeWeatherConflict,
		"title":             "Rain",
		"badge_count":       -1,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, payload.Error.Message, "badge count must be at least 0")
}

func TestNotificationHandlerListRejectsUnknownStatus(t *testing.T) {
	env := newHandlerEnv(t)

	rec, payload := env.do(t, http.MethodGet, "/api/notifications?status=starred", "u1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "BAD_REQUEST", payload.Error.Code)
}

func TestNotificationHandlerRequiresUser(t *testing.T) {
	env := newHandlerEnv(t)

	rec, payload := env.do(t, http.MethodGet, "/api/notifications/unread-count", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", payload.Error.Code)
}

func TestNotificationHandlerReadStateAndArchive(t *testing.T) {
	env := newHandlerEnv(t)
	env.send(t, "u1", "First")
	env.send(t, "u1", "Second")
	env.send(t, "u1", "Third")

	_, payload := env.do(t, http.MethodGet, "/api/notifications/unread-count", "u1", nil)
	require.EqualValues(t, 3, decodeData[map[string]int](t, payload)["count"])

	_, payload = env.do(t, http.MethodGet, "/api/notifications?limit=1", "u1", nil)
	items := decodeData[[]models.Notification](t, payload)
	require.Len(t, items, 1)
	require.Equal(t, 1, payload.Meta.Limit)

	rec, payload := env.do(t, http.MethodPut, "/api/notifications/"+items[0].ID+"/read", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decodeData[map[string]any](t, payload)["updated"])

	rec, payload = env.do(t, http.MethodPut, "/api/notifications/"+items[0].ID+"/read", "intruder", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, decodeData[map[string]any](t, payload)["updated"])

	_, payload = env.do(t, http.MethodGet, "/api/notifications/unread-count", "u1", nil)
	require.EqualValues(t, 2, decodeData[map[string]int](t, payload)["count"])

	_, payload = env.do(t, http.MethodPut, "/api/notifications/read-all", "u1", nil)
	require.Len(t, decodeData[map[string][]string](t, payload)["ids"], 2)

	_, payload = env.do(t, http.MethodGet, "/api/notifications?status=read", "u1", nil)
	require.Equal(t, 3, payload.Meta.Count)

	rec, payload = env.do(t, http.MethodPut, "/api/notifications/archive-all", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	archived := decodeData[notifications.ArchiveResult](t, payload)
	require.Equal(t, 3, archived.Archived)

	var live, archivedRows int64
	require.NoError(t, env.db.Model(&models.Notification{}).Count(&live).Error)
	require.NoError(t, env.db.Model(&models.ArchivedNotification{}).Count(&archivedRows).Error)
	require.Zero(t, live)
	require.EqualValues(t, 3, archivedRows)

	_, payload = env.do(t, http.MethodGet, "/api/notifications?status=all", "u1", nil)
	require.Equal(t, 0, payload.Meta.Count)
	require.Empty(t, decodeData[[]models.Notification](t, payload))
}
