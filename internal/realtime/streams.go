package realtime

// Named realtime streams.
const (
	StreamNotifications = "notifications"
)

// DefaultStreams are subscribed when a client does not name any.
var DefaultStreams = []string{StreamNotifications}
