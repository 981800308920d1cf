package models

import (
	"time"
)

// CacheEntry is a counter or value held by the database cache fallback.
// A zero ExpiresAt never expires.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the cache table.
func (CacheEntry) TableName() string {
	return "cache_entries"
}

// Expired reports whether the entry has expired at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
