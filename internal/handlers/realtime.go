package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/notifier/internal/middleware"
	"github.com/charlesng35/notifier/internal/realtime"
	"github.com/charlesng35/notifier/pkg/errors"
	"github.com/charlesng35/notifier/pkg/response"
)

// RealtimeHandler upgrades authenticated requests into websocket subscriptions.
type RealtimeHandler struct {
	hub            *realtime.Hub
	allowedStreams map[string]struct{}
}

// NewRealtimeHandler constructs a realtime handler restricted to streams.
// With no streams, any stream name is accepted.
func NewRealtimeHandler(hub *realtime.Hub, streams ...string) *RealtimeHandler {
	allowed := make(map[string]struct{}, len(streams))
	for _, stream := range streams {
		if stream = normalizeStream(stream); stream != "" {
			allowed[stream] = struct{}{}
		}
	}
	return &RealtimeHandler{hub: hub, allowedStreams: allowed}
}

// Stream subscribes the caller to the requested streams, or the defaults.
// The caller must already be authenticated.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	streams := parseStreams(c.Query("streams"))
	if len(streams) == 0 {
		streams = realtime.DefaultStreams
	}
	for _, stream := range streams {
		if !h.allowed(stream) {
			response.Error(c, errors.ErrNotFound)
			return
		}
	}

	h.hub.Serve(userID, streams, c.Writer, c.Request)
}

func (h *RealtimeHandler) allowed(stream string) bool {
	if len(h.allowedStreams) == 0 {
		return true
	}
	_, ok := h.allowedStreams[stream]
	return ok
}

func parseStreams(raw string) []string {
	var streams []string
	for _, part := range strings.Split(raw, ",") {
		if stream := normalizeStream(part); stream != "" {
			streams = append(streams, stream)
		}
	}
	return streams
}

func normalizeStream(stream string) string {
	return strings.ToLower(strings.TrimSpace(stream))
}
