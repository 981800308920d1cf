package notifications

import "github.com/charlesng35/notifier/internal/models"

// ShouldSend reports whether channel is enabled given the preference rows of
// one user for one notification type. Without a matching row only in_app is on.
func ShouldSend(prefs []models.NotificationPreference, channel string) bool {
	for _, pref := range prefs {
		if pref.Channel == channel {
			return pref.Enabled
		}
	}
	return channel == models.ChannelInApp
}
