package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/notifier/internal/models"
)

// DatabaseStore implements Store on the primary SQL database. It is used when
// Redis is disabled or unreachable.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) (*DatabaseStore, error) {
	if db == nil {
		return nil, errors.New("cache: database handle is required")
	}
	return &DatabaseStore{db: db, now: time.Now}, nil
}

// IncrementWithTTL increments the counter under key inside a transaction. An
// expired counter restarts at one with a fresh window.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	key = prefixed(key)
	now := s.now().UTC()

	var (
		count  int64
		expiry time.Time
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&entry, "key = ?", key).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			count, expiry = 1, now.Add(window)
			return tx.Create(&models.CacheEntry{
				Key:       key,
				Value:     []byte("1"),
				ExpiresAt: expiry,
			}).Error
		case err != nil:
			return err
		}

		if entry.Expired(now) {
			count, expiry = 1, now.Add(window)
		} else {
			current, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count, expiry = current+1, entry.ExpiresAt
		}
		return tx.Model(&entry).Updates(map[string]any{
			"value":      []byte(strconv.FormatInt(count, 10)),
			"expires_at": expiry,
		}).Error
	})
	if err != nil {
		return 0, 0, fmt.Errorf("cache: database increment: %w", err)
	}
	return count, expiry.Sub(now), nil
}

// Set upserts the value for key; a non-positive ttl never expires.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiry time.Time
	if ttl > 0 {
		expiry = s.now().UTC().Add(ttl)
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&models.CacheEntry{Key: prefixed(key), Value: value, ExpiresAt: expiry}).Error
	if err != nil {
		return fmt.Errorf("cache: database set: %w", err)
	}
	return nil
}

// Get returns the live value under key.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Take(&entry, "key = ?", prefixed(key)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: database get: %w", err)
	}
	if entry.Expired(s.now().UTC()) {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Delete removes keys.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, prefixed(key))
	}
	if err := s.db.WithContext(ctx).Where("key IN ?", full).Delete(&models.CacheEntry{}).Error; err != nil {
		return fmt.Errorf("cache: database delete: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired entries and returns how many were removed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at > ? AND expires_at <= ?", time.Time{}, s.now().UTC()).
		Delete(&models.CacheEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("cache: purge expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}
