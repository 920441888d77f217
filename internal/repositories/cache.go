package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/marquee/internal/shared"
)

// CacheRepository persists the client's durable per-user cache as opaque values keyed by string.
type CacheRepository struct {
	db *sql.DB
}

// NewCacheRepository creates a new [CacheRepository] with the given database connection
func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// Read returns the stored value for key.
// A missing key yields [shared.ErrNotFound].
func (r *CacheRepository) Read(key string) ([]byte, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM cache_entries WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cache entry %s: %w", key, shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return []byte(value), nil
}

// Write stores value under key for userID, replacing any previous value.
func (r *CacheRepository) Write(userID, key string, value []byte) error {
	query := `
		INSERT INTO cache_entries (key, user_id, value, stored_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET user_id = excluded.user_id, value = excluded.value, stored_at = excluded.stored_at
	`
	if _, err := r.db.Exec(query, key, userID, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes key. Removing a missing key is not an error.
func (r *CacheRepository) Delete(key string) error {
	if _, err := r.db.Exec("DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// PurgeExcept deletes every entry that belongs to a user other than userID and returns how many were removed.
func (r *CacheRepository) PurgeExcept(userID string) (int, error) {
	result, err := r.db.Exec("DELETE FROM cache_entries WHERE user_id <> ?", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

// Keys lists the keys stored for userID in key order.
func (r *CacheRepository) Keys(userID string) ([]string, error) {
	rows, err := r.db.Query("SELECT key FROM cache_entries WHERE user_id = ? ORDER BY key", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan cache key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return keys, nil
}
