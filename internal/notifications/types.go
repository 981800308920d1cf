package notifications

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

// Notification types with a dedicated email template.
const (
	TypeAutoSchedulingCompleted = "auto_scheduling_completed"
	TypeAutoSchedulingError     = "auto_scheduling_error"
	TypeWeatherConflict         = "weather_conflict"
	TypeCalendarConflict        = "calendar_conflict"
)

// Realtime event types.
const (
	EventNewNotification       = "new_notification"
	EventNotificationRead      = "notification_read"
	EventAllNotificationsRead  = "all_notifications_read"
	EventNotificationsArchived = "notifications_archived"
)

const (
	messageUserNotFound = "User not found"
	messageSpamSkipped  = "skipped: spam protection"
)

var (
	// ErrUserNotFound is returned when the target user cannot be loaded.
	ErrUserNotFound = errors.New("notifications: user not found")
	// ErrChannelNotConfigured marks a channel whose transport has no credentials.
	ErrChannelNotConfigured = errors.New("notifications: channel not configured")
	// ErrArchiveCopy is returned when copying rows into the archive failed; nothing was deleted.
	ErrArchiveCopy = errors.New("notifications: archive copy failed")
	// ErrArchiveDelete is returned when archived rows could not be removed from the live table.
	ErrArchiveDelete = errors.New("notifications: archive delete failed")
)

// Input is a notification raised by another subsystem.
type Input struct {
	NotificationType string `json:"notification_type" validate:"notblank,max=64"`
	Title            string `json:"title" validate:"notblank,max=255"`
	Message          string `json:"message"`
	Details          any    `json:"details,omitempty"`
	// BadgeCount overrides the push badge when set.
	BadgeCount *int `json:"badge_count,omitempty" validate:"omitempty,gte=0"`
}

// Result is the outcome reported to the caller of Send.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Skipped reports whether the notification was dropped by the anti-spam window.
func (r Result) Skipped() bool {
	return r.Success && r.Message == messageSpamSkipped
}

// UserMissing reports whether Send failed because the recipient does not exist.
func (r Result) UserMissing() bool {
	return !r.Success && r.Error == messageUserNotFound
}

type notification struct {
	Type       string
	Title      string
	Message    string
	Details    datatypes.JSON
	BadgeCount *int
}

func (in Input) normalise() (notification, error) {
	n := notification{
		Type:       strings.TrimSpace(in.NotificationType),
		Title:      strings.TrimSpace(in.Title),
		Message:    in.Message,
		BadgeCount: in.BadgeCount,
	}
	if n.Type == "" {
		return notification{}, errors.New("notification type is required")
	}

	details, err := encodeDetails(in.Details)
	if err != nil {
		return notification{}, err
	}
	n.Details = details
	return n, nil
}

func encodeDetails(details any) (datatypes.JSON, error) {
	switch v := details.(type) {
	case nil:
		return nil, nil
	case datatypes.JSON:
		return v, nil
	case json.RawMessage:
		if len(v) == 0 {
			return nil, nil
		}
		return datatypes.JSON(v), nil
	}

	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("encode notification details: %w", err)
	}
	if string(raw) == "null" {
		return nil, nil
	}
	return datatypes.JSON(raw), nil
}
