package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/notifier/internal/middleware"
	"github.com/charlesng35/notifier/internal/notifications"
	"github.com/charlesng35/notifier/pkg/errors"
	"github.com/charlesng35/notifier/pkg/logger"
	"github.com/charlesng35/notifier/pkg/response"
)

// NotificationHandler exposes a user's inbox and the internal send endpoint.
type NotificationHandler struct {
	lifecycle  *notifications.Lifecycle
	dispatcher *notifications.Dispatcher
	log        *zap.Logger
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(lifecycle *notifications.Lifecycle, dispatcher *notifications.Dispatcher) *NotificationHandler {
	return &NotificationHandler{
		lifecycle:  lifecycle,
		dispatcher: dispatcher,
		log:        logger.WithModule("handlers.notifications"),
	}
}

// List returns the caller's notifications filtered by status, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	status, err := notifications.ParseStatus(c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	limit := parseIntQuery(c, "limit", 0)

	items := h.lifecycle.List(requestContext(c), userID, status, limit)
	meta := &response.Meta{Count: len(items.Value), Status: string(status)}
	if limit > 0 {
		meta.Limit = limit
	}
	response.SuccessWithMeta(c, http.StatusOK, items.Value, meta)
}

// UnreadCount returns the number of unread notifications.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	count := h.lifecycle.UnreadCount(requestContext(c), userID)
	response.Success(c, http.StatusOK, gin.H{"count": count.Value})
}

// MarkRead flags a single notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, errors.NewBadRequest("notification id is required"))
		return
	}

	updated, err := h.lifecycle.MarkRead(requestContext(c), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id, "updated": updated})
}

// MarkAllRead flags every unread notification as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	ids, err := h.lifecycle.MarkAllRead(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"ids": ids})
}

// ArchiveAll moves every notification of the caller into the archive.
func (h *NotificationHandler) ArchiveAll(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	result, err := h.lifecycle.ArchiveRead(requestContext(c), userID)
	if err != nil {
		response.Error(c, errors.ErrServiceUnavailable.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, result)
}

type sendNotificationRequest struct {
	UserID string `json:"user_id" validate:"notblank,max=64"`
	notifications.Input
}

// Send delivers a notification raised by another service. Channel failures
// are not errors; only a missing recipient or a failed dispatch are.
func (h *NotificationHandler) Send(c *gin.Context) {
	var req sendNotificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID := strings.TrimSpace(req.UserID)
	result := h.dispatcher.Send(requestContext(c), userID, req.Input)
	switch {
	case result.Success:
		response.Success(c, http.StatusOK, result)
	case result.UserMissing():
		response.Error(c, errors.ErrUserNotFound)
	default:
		h.log.Error("notification dispatch failed",
			zap.String("user_id", userID), zap.String("error", result.Error))
		response.Error(c, errors.ErrInternalServer)
	}
}
