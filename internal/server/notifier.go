package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/repositories"
	"github.com/desertthunder/marquee/internal/services"
)

// UpcomingLimit is how many upcoming releases are announced per run.
const UpcomingLimit = 10

// Notifier turns due reminders and upcoming catalog releases into per-user notifications.
//
// Every notification carries a dedupe key, so repeated runs never notify a user twice about the same title.
type Notifier struct {
	catalog       services.Catalog
	lists         *repositories.ListEntryRepository
	notifications *repositories.NotificationRepository
	reminders     *repositories.ReminderRepository
	region        string
	now           func() time.Time
	logger        *log.Logger

	mu sync.Mutex
}

// NewNotifier creates a notifier. catalog may be nil.
func NewNotifier(
	catalog services.Catalog,
	lists *repositories.ListEntryRepository,
	notifications *repositories.NotificationRepository,
	reminders *repositories.ReminderRepository,
	region string,
	logger *log.Logger,
) *Notifier {
	return &Notifier{
		catalog:       catalog,
		lists:         lists,
		notifications: notifications,
		reminders:     reminders,
		region:        region,
		now:           time.Now,
		logger:        logger,
	}
}

// Run delivers due reminders, then announces upcoming releases to every user with list entries.
// Returns the number of notifications created, which is meaningful even when err is set.
func (n *Notifier) Run(ctx context.Context) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	added, err := n.deliverReminders()
	if err != nil {
		return added, err
	}

	announced, err := n.announceUpcoming(ctx)
	added += announced
	if err != nil {
		return added, err
	}

	n.logger.Info("notifications generated", "added", added)
	return added, nil
}

func (n *Notifier) deliverReminders() (int, error) {
	pending, err := n.reminders.Pending()
	if err != nil {
		return 0, err
	}

	now := n.now()
	added := 0
	for _, rem := range pending {
		if !rem.Due(now) {
			continue
		}

		created, err := n.notifications.Create(rem.UserID(), "reminder:"+models.ItemKey(rem.MediaType(), rem.TMDBID()), &models.Notification{
			Title:     fmt.Sprintf("%s is now available", rem.Title()),
			Message:   "A title you asked to be reminded about has been released.",
			TMDBID:    rem.TMDBID(),
			MediaType: rem.MediaType(),
			Poster:    rem.PosterPath(),
		})
		if err != nil {
			n.logger.Warn("failed to create reminder notification", "reminder", rem.ID(), "error", err)
			continue
		}
		if created {
			added++
		}
		if err := n.reminders.MarkNotified(rem.ID(), now); err != nil {
			n.logger.Warn("failed to mark reminder notified", "reminder", rem.ID(), "error", err)
		}
	}
	return added, nil
}

func (n *Notifier) announceUpcoming(ctx context.Context) (int, error) {
	if n.catalog == nil {
		return 0, nil
	}

	users, err := n.lists.Users()
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, nil
	}

	records, err := n.catalog.Upcoming(ctx, n.region)
	if err != nil {
		return 0, fmt.Errorf("failed to load upcoming releases: %w", err)
	}

	items := make([]models.MediaItem, 0, UpcomingLimit)
	for _, record := range records {
		if item, ok := models.NormalizeAs(record, models.MediaTypeMovie); ok {
			items = append(items, *item)
		}
	}
	items = models.Dedupe(items)
	if len(items) > UpcomingLimit {
		items = items[:UpcomingLimit]
	}

	added := 0
	for _, item := range items {
		message := "New release on the way."
		if item.ReleaseDate != "" {
			message = "Releases " + item.ReleaseDate + "."
		}
		for _, userID := range users {
			created, err := n.notifications.Create(userID, "upcoming:"+item.Key(), &models.Notification{
				Title:     "Coming soon: " + item.DisplayTitle(),
				Message:   message,
				TMDBID:    item.ID,
				MediaType: item.MediaType,
				Poster:    item.PosterPath,
			})
			if err != nil {
				n.logger.Warn("failed to create notification", "user", userID, "item", item.Key(), "error", err)
				continue
			}
			if created {
				added++
			}
		}
	}
	return added, nil
}
