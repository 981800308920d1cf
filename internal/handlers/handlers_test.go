package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/notifier/internal/database/testutil"
	"github.com/charlesng35/notifier/internal/middleware"
	"github.com/charlesng35/notifier/internal/notifications"
	"github.com/charlesng35/notifier/internal/services"
	"github.com/charlesng35/notifier/internal/store"
	"github.com/charlesng35/notifier/pkg/response"
)

const testUserHeader = "X-Test-User"

func init() {
	gin.SetMode(gin.TestMode)
}

// withTestUser stands in for the auth middleware.
func withTestUser(c *gin.Context) {
	if id := c.GetHeader(testUserHeader); id != "" {
		c.Set(middleware.CtxUserIDKey, id)
	}
	c.Next()
}

type handlerEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	testutil.MustCreateUser(t, db, "u1", "ada@example.com", "Ada Lovelace")

	st, err := store.New(db)
	require.NoError(t, err)
	lifecycle, err := notifications.NewLifecycle(st, nil)
	require.NoError(t, err)
	dispatcher, err := notifications.NewDispatcher(st, nil)
	require.NoError(t, err)
	prefs, err := services.NewPreferenceService(db)
	require.NoError(t, err)
	devices, err := services.NewDeviceTokenService(db)
	require.NoError(t, err)

	notificationHandler := NewNotificationHandler(lifecycle, dispatcher)
	preferenceHandler := NewPreferenceHandler(prefs)
	deviceHandler := NewDeviceTokenHandler(devices)

	router := gin.New()
	router.POST("/internal/notifications", notificationHandler.Send)

	api := router.Group("/api", withTestUser)
	api.GET("/notifications", notificationHandler.List)
	api.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	api.PUT("/notifications/:id/read", notificationHandler.MarkRead)
	api.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
	api.PUT("/notifications/archive-all", notificationHandler.ArchiveAll)
	api.GET("/user/notifications/preferences", preferenceHandler.Get)
	api.PUT("/user/notifications/preferences", preferenceHandler.Update)
	api.POST("/user/device-token", deviceHandler.Register)
	api.DELETE("/user/device-token", deviceHandler.Unregister)

	return &handlerEnv{db: db, router: router}
}

func (e *handlerEnv) do(t *testing.T, method, path, userID string, body any) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var payload response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return rec, payload
}

func decodeData[T any](t *testing.T, payload response.Response) T {
	t.Helper()

	raw, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func (e *handlerEnv) send(t *testing.T, userID, title string) response.Response {
	t.Helper()

	rec, payload := e.do(t, http.MethodPost, "/internal/notifications", "", gin.H{
		"user_id":           userID,
		"notification_type": notifications.TypeWeatherConflict,
		"title":             title,
		"message":           "Rain expected",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return payload
}
