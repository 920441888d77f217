package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// NotificationRepository persists per-user notifications for the reference backend.
//
// Each notification carries a dedupe key; creating a second notification with the same key
// for the same user is silently ignored (UNIQUE constraint violations).
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new [NotificationRepository] with the given database connection
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts n for userID unless a notification with dedupeKey already exists.
// Reports whether a row was inserted.
func (r *NotificationRepository) Create(userID, dedupeKey string, n *models.Notification) (bool, error) {
	if userID == "" || dedupeKey == "" {
		return false, fmt.Errorf("%w: user id and dedupe key are required", shared.ErrInvalidInput)
	}
	if n.Title == "" {
		return false, fmt.Errorf("%w: notification title is required", shared.ErrInvalidInput)
	}

	var exists bool
	err := r.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM notifications WHERE user_id = ? AND dedupe_key = ?)", userID, dedupeKey,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification: %w", err)
	}
	if exists {
		return false, nil
	}

	sequence, err := NextSequence(r.db, "notifications")
	if err != nil {
		return false, fmt.Errorf("failed to generate sequence: %w", err)
	}

	n.ID = shared.GenerateID()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO notifications (id, sequence, user_id, title, message, tmdb_id, media_type, poster_path, dedupe_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		n.ID, sequence, userID, n.Title, n.Message, n.TMDBID, string(n.MediaType), n.Poster, dedupeKey, n.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}

	return true, nil
}

// List returns up to limit notifications for userID, newest first. A non-positive limit returns all.
func (r *NotificationRepository) List(userID string, limit int) ([]models.Notification, error) {
	query := `
		SELECT id, title, message, tmdb_id, media_type, poster_path, read_at, created_at
		FROM notifications
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY sequence DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var (
			n         models.Notification
			tmdbID    sql.NullString
			mediaType sql.NullString
			poster    sql.NullString
			readAt    sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &tmdbID, &mediaType, &poster, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.TMDBID = tmdbID.String
		n.MediaType = models.MediaType(mediaType.String)
		n.Poster = poster.String
		n.Read = readAt.Valid
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return notifications, nil
}

// MarkRead marks one notification as read
func (r *NotificationRepository) MarkRead(userID, id string) error {
	result, err := r.db.Exec(
		"UPDATE notifications SET read_at = COALESCE(read_at, ?) WHERE id = ? AND user_id = ? AND deleted_at IS NULL",
		time.Now(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return expectAffected(result, "notification")
}

// MarkAllRead marks every unread notification for userID as read and returns how many changed.
func (r *NotificationRepository) MarkAllRead(userID string) (int, error) {
	result, err := r.db.Exec(
		"UPDATE notifications SET read_at = ? WHERE user_id = ? AND read_at IS NULL AND deleted_at IS NULL",
		time.Now(), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

// Delete soft-deletes one notification
func (r *NotificationRepository) Delete(userID, id string) error {
	result, err := r.db.Exec(
		"UPDATE notifications SET deleted_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NULL",
		time.Now(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return expectAffected(result, "notification")
}

// UnreadCount returns the number of unread notifications for userID.
func (r *NotificationRepository) UnreadCount(userID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read_at IS NULL AND deleted_at IS NULL", userID,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}
