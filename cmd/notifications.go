package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/tasks"
)

// NotificationsList refreshes the feed and prints it. When the backend is unreachable the cached feed is shown.
func (r *Runner) NotificationsList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.session()
	if err != nil {
		return err
	}

	list, err := s.feed.Load(ctx, nil)
	if err != nil {
		r.logger.Warn("showing cached notifications", "error", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, cmd.Bool("pretty"))
	}

	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}

	r.writePlainHeader(fmt.Sprintf("Notifications (%d unread)", unread))
	if len(list) == 0 {
		r.writePlain("  (none)\n")
		return nil
	}
	for _, n := range list {
		mark := " "
		if !n.Read {
			mark = "●"
		}
		r.writePlain("%s %s  %s\n", mark, n.CreatedAt.Format("2006-01-02"), n.Title)
		if n.Message != "" {
			r.writePlain("    %s\n", n.Message)
		}
		r.writePlain("    id: %s\n", n.ID)
	}
	return nil
}

func notificationID(cmd *cli.Command) (string, error) {
	id := cmd.StringArg("id")
	if id == "" {
		return "", fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	return id, nil
}

// NotificationsRead marks one notification read.
func (r *Runner) NotificationsRead(ctx context.Context, cmd *cli.Command) error {
	id, err := notificationID(cmd)
	if err != nil {
		return err
	}
	s, err := r.session()
	if err != nil {
		return err
	}

	s.feed.MarkRead(ctx, id)
	return r.writePlain("✓ Marked %s read\n", id)
}

// NotificationsDelete removes one notification.
func (r *Runner) NotificationsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := notificationID(cmd)
	if err != nil {
		return err
	}
	s, err := r.session()
	if err != nil {
		return err
	}

	s.feed.Delete(ctx, id)
	return r.writePlain("✓ Deleted %s\n", id)
}

// NotificationsReadAll marks the whole feed read.
func (r *Runner) NotificationsReadAll(ctx context.Context, cmd *cli.Command) error {
	s, err := r.session()
	if err != nil {
		return err
	}

	s.feed.MarkAllRead(ctx)
	return r.writePlain("✓ All notifications marked read\n")
}

// NotificationsFetch asks the backend to generate release notifications.
func (r *Runner) NotificationsFetch(ctx context.Context, cmd *cli.Command) error {
	s, err := r.session()
	if err != nil {
		return err
	}

	added, err := s.feed.FetchCatalogNotifications(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return r.writePlain("✓ %d new notifications\n", added)
}

// Remind registers a release reminder for a title.
func (r *Runner) Remind(ctx context.Context, cmd *cli.Command) error {
	id, mediaType, err := itemArgs(cmd)
	if err != nil {
		return err
	}
	s, err := r.session()
	if err != nil {
		return err
	}

	record, err := tasks.LookupFetcher(s.store, r.catalog)(ctx, mediaType, id)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", models.ItemKey(mediaType, id), err)
	}
	item, ok := models.NormalizeAs(record, mediaType)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnidentifiable, models.ItemKey(mediaType, id))
	}

	if err := r.backend.Remind(ctx, *item); err != nil {
		return err
	}

	if released, ok := item.Released(); ok {
		return r.writePlain("✓ Reminder set for %s (%s)\n", item.DisplayTitle(), released.Format("2006-01-02"))
	}
	return r.writePlain("✓ Reminder set for %s\n", item.DisplayTitle())
}
