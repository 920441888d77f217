package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// ReminderRepository persists release reminders.
type ReminderRepository struct {
	db *sql.DB
}

// NewReminderRepository creates a new [ReminderRepository] with the given database connection
func NewReminderRepository(db *sql.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Upsert creates a reminder or refreshes title, poster and release date of an existing one.
func (r *ReminderRepository) Upsert(reminder *models.Reminder) error {
	if err := reminder.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if reminder.ID() == "" {
		reminder.SetID(shared.GenerateID())
	}

	query := `
		INSERT INTO reminders (id, user_id, tmdb_id, media_type, title, poster_path, release_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, tmdb_id, media_type) DO UPDATE SET
			title = excluded.title,
			poster_path = excluded.poster_path,
			release_date = excluded.release_date,
			updated_at = excluded.updated_at
	`
	_, err := r.db.Exec(query,
		reminder.ID(), reminder.UserID(), reminder.TMDBID(), string(reminder.MediaType()),
		reminder.Title(), reminder.PosterPath(), reminder.ReleaseDate(), reminder.CreatedAt(), reminder.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reminder: %w", err)
	}
	return nil
}

// Pending returns every reminder that has not produced a notification yet.
func (r *ReminderRepository) Pending() ([]*models.Reminder, error) {
	query := `
		SELECT id, user_id, tmdb_id, media_type, title, poster_path, release_date, notified_at, created_at, updated_at
		FROM reminders
		WHERE notified_at IS NULL
		ORDER BY release_date, created_at
	`
	return r.query(query)
}

// List returns a user's reminders ordered by release date.
func (r *ReminderRepository) List(userID string) ([]*models.Reminder, error) {
	query := `
		SELECT id, user_id, tmdb_id, media_type, title, poster_path, release_date, notified_at, created_at, updated_at
		FROM reminders
		WHERE user_id = ?
		ORDER BY release_date, created_at
	`
	return r.query(query, userID)
}

// MarkNotified records that the reminder has been delivered.
func (r *ReminderRepository) MarkNotified(id string, at time.Time) error {
	result, err := r.db.Exec("UPDATE reminders SET notified_at = ?, updated_at = ? WHERE id = ?", at, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder notified: %w", err)
	}
	return expectAffected(result, "reminder")
}

func (r *ReminderRepository) query(query string, args ...any) ([]*models.Reminder, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		var (
			id, userID, tmdbID, mediaType, title string
			poster, releaseDate                  sql.NullString
			notifiedAt                           sql.NullTime
			createdAt, updatedAt                 time.Time
		)
		err := rows.Scan(&id, &userID, &tmdbID, &mediaType, &title, &poster, &releaseDate, &notifiedAt, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}

		reminder := models.NewReminder(userID, tmdbID, models.MediaType(mediaType), title, poster.String, releaseDate.String)
		reminder.SetID(id)
		reminder.SetCreatedAt(createdAt)
		reminder.SetUpdatedAt(updatedAt)
		if notifiedAt.Valid {
			reminder.SetNotifiedAt(&notifiedAt.Time)
		}
		reminders = append(reminders, reminder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return reminders, nil
}
