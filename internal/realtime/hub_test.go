package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(userID, nil, w, r)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return hub.Connections(StreamNotifications, userID) == 1
	}, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubPublishDeliversToSubscribedUser(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "u1")

	require.NoError(t, hub.Publish(context.Background(), "u1", "new_notification", map[string]any{"id": "n1"}))

	msg := readMessage(t, conn)
	require.Equal(t, StreamNotifications, msg["stream"])
	require.Equal(t, "new_notification", msg["event"])
	require.Equal(t, map[string]any{"id": "n1"}, msg["data"])
}

func TestHubPublishIgnoresOtherUsers(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "u1")

	require.NoError(t, hub.Publish(context.Background(), "u2", "new_notification", map[string]any{"id": "n2"}))
	require.NoError(t, hub.Publish(context.Background(), "u1", "notification_read", map[string]any{"id": "n1"}))

	msg := readMessage(t, conn)
	require.Equal(t, "notification_read", msg["event"])
}

func TestHubPingControlMessage(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "u1")

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "ping"}))
	msg := readMessage(t, conn)
	require.Equal(t, "pong", msg["event"])
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "u1")

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return hub.Connections(StreamNotifications, "u1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCheckOrigin(t *testing.T) {
	hub := NewHub(WithAllowedOrigins("https://app.example.com"))

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/ws", nil)
	require.True(t, hub.checkOrigin(req))

	req.Header.Set("Origin", "https://app.example.com")
	require.True(t, hub.checkOrigin(req))

	req.Header.Set("Origin", "http://localhost:5173")
	require.True(t, hub.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example.net")
	require.False(t, hub.checkOrigin(req))
}

type recordingRedis struct {
	channel string
	payload []byte
}

func (r *recordingRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	r.channel = channel
	r.payload = message.([]byte)
	return redis.NewIntResult(1, nil)
}

func TestRedisFanoutRoundTrip(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "u1")

	rec := &recordingRedis{}
	fanout := &RedisFanout{pub: rec, channel: DefaultFanoutChannel, local: hub, log: hub.log}

	require.NoError(t, fanout.Publish(context.Background(), "u1", "all_notifications_read", map[string]any{"ids": []string{"a", "b"}}))
	require.Equal(t, DefaultFanoutChannel, rec.channel)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.payload, &env))
	require.Equal(t, "u1", env.UserID)

	fanout.relay(string(rec.payload))

	msg := readMessage(t, conn)
	require.Equal(t, "all_notifications_read", msg["event"])
	require.Equal(t, map[string]any{"ids": []any{"a", "b"}}, msg["data"])
}

func TestRedisFanoutRelayIgnoresGarbage(t *testing.T) {
	hub := NewHub()
	fanout := &RedisFanout{channel: DefaultFanoutChannel, local: hub, log: hub.log}
	fanout.relay("not json")
	fanout.relay(`{"stream":"notifications","event":"x"}`)
}

func TestNewRedisFanoutValidates(t *testing.T) {
	_, err := NewRedisFanout(nil, "", NewHub())
	require.Error(t, err)
}
