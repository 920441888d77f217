package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/repositories"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/store"
)

type cacheEntry struct {
	Key   string `json:"key"`
	Items int    `json:"items"`
}

// CacheStatus lists the durable cache entries of the configured user.
func (r *Runner) CacheStatus(ctx context.Context, cmd *cli.Command) error {
	userID := r.config.User.ID
	if userID == "" {
		return fmt.Errorf("%w: set user.id or %s", shared.ErrMissingUser, shared.EnvUserID)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	repo := repositories.NewCacheRepository(db)
	keys, err := repo.Keys(userID)
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}

	st, err := store.New(userID, repo, store.Options{Logger: r.logger})
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	counts := map[string]int{models.NotificationsCacheKey(userID): len(st.ReadNotifications())}
	for _, c := range models.Collections() {
		counts[c.CacheKey(userID)] = len(st.ReadDurable(c))
	}

	entries := make([]cacheEntry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, cacheEntry{Key: key, Items: counts[key]})
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Cache for %s", userID))
	if len(entries) == 0 {
		r.writePlain("  (empty)\n")
		return nil
	}
	for _, e := range entries {
		r.writePlain("  %-40s %d\n", e.Key, e.Items)
	}
	return nil
}

// CacheClear removes every durable cache entry of the configured user.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	userID := r.config.User.ID
	if userID == "" {
		return fmt.Errorf("%w: set user.id or %s", shared.ErrMissingUser, shared.EnvUserID)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	repo := repositories.NewCacheRepository(db)
	keys, err := repo.Keys(userID)
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}
	for _, key := range keys {
		if err := repo.Delete(key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}

	r.logger.Info("cache cleared", "user", userID, "entries", len(keys))
	return r.writePlain("✓ Cleared %d cache entries\n", len(keys))
}
