package notifications

import (
	"go.uber.org/zap"

	"github.com/charlesng35/notifier/pkg/metrics"
)

// Lookup is the outcome of a fail-open store read. When the read fails, Value
// holds the read's declared default, Degraded is set and Err keeps the cause.
type Lookup[T any] struct {
	Value    T
	Degraded bool
	Err      error
}

// lookupOf builds a Lookup, substituting fallback when err is non-nil.
func lookupOf[T any](value T, err error, fallback T) Lookup[T] {
	if err != nil {
		return Lookup[T]{Value: fallback, Degraded: true, Err: err}
	}
	return Lookup[T]{Value: value}
}

// observeLookup logs and counts a degraded read and returns it unchanged.
func observeLookup[T any](log *zap.Logger, read string, l Lookup[T], fields ...zap.Field) Lookup[T] {
	if !l.Degraded {
		return l
	}
	metrics.DegradedReads.WithLabelValues(read).Inc()
	log.Warn("store read failed, using default",
		append(fields, zap.String("read", read), zap.Error(l.Err))...)
	return l
}
