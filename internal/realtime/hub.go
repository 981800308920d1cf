package realtime

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/charlesng35/notifier/pkg/logger"
	"github.com/charlesng35/notifier/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	defaultBufferSize = 64
)

// Message represents a JSON payload delivered to realtime subscribers.
type Message struct {
	Stream string `json:"stream"`
	Event  string `json:"event"`
	Data   any    `json:"data,omitempty"`
}

type controlMessage struct {
	Action  string   `json:"action"`
	Streams []string `json:"streams"`
}

// HubOption customises a Hub.
type HubOption func(*Hub)

// WithLogger overrides the hub logger.
func WithLogger(log *zap.Logger) HubOption {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

// WithAllowedOrigins permits cross-origin upgrades from the listed origins.
func WithAllowedOrigins(origins ...string) HubOption {
	return func(h *Hub) {
		for _, origin := range origins {
			if host := hostWithoutPort(origin); host != "" {
				h.origins[strings.ToLower(host)] = struct{}{}
			}
		}
	}
}

// Hub tracks per-user websocket subscriptions and delivers events to them.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]map[string]map[*connection]struct{}
	upgrader      websocket.Upgrader
	origins       map[string]struct{}
	log           *zap.Logger
}

// NewHub constructs a realtime hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subscriptions: make(map[string]map[string]map[*connection]struct{}),
		origins:       make(map[string]struct{}),
		log:           logger.WithModule("realtime"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Serve upgrades the HTTP connection and subscribes the user to streams until
// the socket closes.
func (h *Hub) Serve(userID string, streams []string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	if len(streams) == 0 {
		streams = DefaultStreams
	}

	client := newConnection(h, conn, userID)
	h.subscribe(client, streams)
	metrics.RealtimeConnections.Inc()
	defer metrics.RealtimeConnections.Dec()

	go client.writeLoop()
	client.readLoop()
}

// Publish delivers an engine event to the user's notification subscribers.
func (h *Hub) Publish(_ context.Context, userID, eventType string, payload any) error {
	h.BroadcastToUser(StreamNotifications, userID, Message{Event: eventType, Data: payload})
	return nil
}

// BroadcastToUser delivers a message to all connections for the supplied user on a stream.
func (h *Hub) BroadcastToUser(stream, userID string, message Message) {
	stream = normalizeStream(stream)
	if stream == "" || userID == "" {
		return
	}
	message.Stream = stream

	var slow []*connection
	h.mu.RLock()
	for client := range h.subscriptions[stream][userID] {
		if !client.enqueue(message) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.Warn("dropping slow realtime client", zap.String("user_id", client.userID))
		client.close()
	}
}

// Connections returns the number of live subscriptions of a user on a stream.
func (h *Hub) Connections(stream, userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[normalizeStream(stream)][userID])
}

func (h *Hub) subscribe(client *connection, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range uniqueStreams(streams) {
		if stream != StreamNotifications {
			h.log.Debug("ignoring unknown stream", zap.String("stream", stream), zap.String("user_id", client.userID))
			continue
		}
		if _, exists := client.streams[stream]; exists {
			continue
		}
		if h.subscriptions[stream] == nil {
			h.subscriptions[stream] = make(map[string]map[*connection]struct{})
		}
		if h.subscriptions[stream][client.userID] == nil {
			h.subscriptions[stream][client.userID] = make(map[*connection]struct{})
		}
		client.streams[stream] = struct{}{}
		h.subscriptions[stream][client.userID][client] = struct{}{}
	}
}

func (h *Hub) unsubscribe(client *connection, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range uniqueStreams(streams) {
		h.removeSubscriptionLocked(client, stream)
	}
}

func (h *Hub) unregister(client *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for stream := range client.streams {
		h.removeSubscriptionLocked(client, stream)
	}
}

func (h *Hub) removeSubscriptionLocked(client *connection, stream string) {
	delete(client.streams, stream)

	clientsByUser, ok := h.subscriptions[stream]
	if !ok {
		return
	}
	userClients := clientsByUser[client.userID]
	delete(userClients, client)
	if len(userClients) == 0 {
		delete(clientsByUser, client.userID)
	}
	if len(clientsByUser) == 0 {
		delete(h.subscriptions, stream)
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originHost := strings.ToLower(hostWithoutPort(origin))
	if originHost == strings.ToLower(hostWithoutPort(r.Host)) || isLoopback(originHost) {
		return true
	}
	_, ok := h.origins[originHost]
	return ok
}

type connection struct {
	hub     *Hub
	socket  *websocket.Conn
	userID  string
	streams map[string]struct{}
	send    chan Message
	done    chan struct{}
	once    sync.Once
}

func newConnection(hub *Hub, conn *websocket.Conn, userID string) *connection {
	return &connection{
		hub:     hub,
		socket:  conn,
		userID:  userID,
		streams: make(map[string]struct{}),
		send:    make(chan Message, defaultBufferSize),
		done:    make(chan struct{}),
	}
}

// enqueue reports false when the client buffer is full.
func (c *connection) enqueue(message Message) bool {
	select {
	case <-c.done:
		return true
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *connection) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("realtime connection closed unexpectedly", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}
		if len(payload) == 0 {
			continue
		}

		var ctrl controlMessage
		if err := json.Unmarshal(payload, &ctrl); err != nil {
			c.hub.log.Debug("invalid realtime control payload", zap.String("user_id", c.userID), zap.Error(err))
			continue
		}

		switch strings.ToLower(strings.TrimSpace(ctrl.Action)) {
		case "subscribe":
			c.hub.subscribe(c, ctrl.Streams)
		case "unsubscribe":
			c.hub.unsubscribe(c, ctrl.Streams)
		case "ping":
			c.enqueue(Message{Event: "pong"})
		default:
			c.hub.log.Debug("unsupported realtime control action", zap.String("user_id", c.userID), zap.String("action", ctrl.Action))
		}
	}
}

func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		close(c.done)
		_ = c.socket.Close()
	})
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		parsed, err := http.NewRequest(http.MethodGet, host, nil)
		if err == nil {
			return hostWithoutPort(parsed.URL.Host)
		}
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	if ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}

func normalizeStream(stream string) string {
	return strings.ToLower(strings.TrimSpace(stream))
}

func uniqueStreams(streams []string) []string {
	unique := make(map[string]struct{}, len(streams))
	var result []string
	for _, stream := range streams {
		if stream = normalizeStream(stream); stream != "" {
			if _, exists := unique[stream]; !exists {
				unique[stream] = struct{}{}
				result = append(result, stream)
			}
		}
	}
	return result
}
