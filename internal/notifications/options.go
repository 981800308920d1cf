package notifications

import (
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/notifier/pkg/logger"
)

// DefaultChannelTimeout bounds a single channel delivery.
const DefaultChannelTimeout = 10 * time.Second

// Default and maximum page sizes for inbox listings.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Option customises a Dispatcher or Lifecycle.
type Option func(*options)

type options struct {
	push           *PushChannel
	email          *EmailChannel
	spamWindow     time.Duration
	channelTimeout time.Duration
	defaultLimit   int
	maxLimit       int
	now            func() time.Time
	log            *zap.Logger
}

func defaultOptions() options {
	return options{
		spamWindow:     DefaultSpamWindow,
		channelTimeout: DefaultChannelTimeout,
		defaultLimit:   DefaultListLimit,
		maxLimit:       MaxListLimit,
		now:            time.Now,
		log:            logger.WithModule("notifications"),
	}
}

func applyOptions(opts []Option) options {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithPushChannel enables push delivery.
func WithPushChannel(channel *PushChannel) Option {
	return func(o *options) {
		o.push = channel
	}
}

// WithEmailChannel enables email delivery.
func WithEmailChannel(channel *EmailChannel) Option {
	return func(o *options) {
		o.email = channel
	}
}

// WithSpamWindow overrides the anti-spam window.
func WithSpamWindow(window time.Duration) Option {
	return func(o *options) {
		if window > 0 {
			o.spamWindow = window
		}
	}
}

// WithChannelTimeout overrides the per-channel delivery timeout.
func WithChannelTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.channelTimeout = timeout
		}
	}
}

// WithListLimits overrides the default and maximum inbox page sizes.
func WithListLimits(defaultLimit, maxLimit int) Option {
	return func(o *options) {
		if defaultLimit > 0 {
			o.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			o.maxLimit = maxLimit
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}
