package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// ListEntryRepository persists the per-user named collections served by the reference backend.
type ListEntryRepository struct {
	db *sql.DB
}

// NewListEntryRepository creates a new [ListEntryRepository] with the given database connection
func NewListEntryRepository(db *sql.DB) *ListEntryRepository {
	return &ListEntryRepository{db: db}
}

// Upsert adds entry to its collection or refreshes the existing one.
//
// Re-adding a title moves it to the front (a new sequence) and restores soft-deleted rows.
func (r *ListEntryRepository) Upsert(entry *models.ListEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "list_entries")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if entry.ID() == "" {
		entry.SetID(shared.GenerateID())
	}
	entry.SetSequence(sequence)

	var data any
	if len(entry.Data()) > 0 {
		data = string(entry.Data())
	}

	query := `
		INSERT INTO list_entries (id, sequence, user_id, collection, tmdb_id, media_type, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, collection, tmdb_id, media_type) DO UPDATE SET
			sequence = excluded.sequence,
			data = COALESCE(excluded.data, list_entries.data),
			updated_at = excluded.updated_at,
			deleted_at = NULL
	`

	_, err = r.db.Exec(query,
		entry.ID(), sequence, entry.UserID(), string(entry.Collection()), entry.TMDBID(), string(entry.MediaType()),
		data, entry.CreatedAt(), entry.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert list entry: %w", err)
	}

	return nil
}

// Get retrieves one entry, excluding soft-deleted rows
func (r *ListEntryRepository) Get(userID string, collection models.Collection, tmdbID string, mediaType models.MediaType) (*models.ListEntry, error) {
	query := `
		SELECT id, sequence, user_id, collection, tmdb_id, media_type, data, created_at, updated_at, deleted_at
		FROM list_entries
		WHERE user_id = ? AND collection = ? AND tmdb_id = ? AND media_type = ? AND deleted_at IS NULL
	`

	entry, err := r.scan(r.db.QueryRow(query, userID, string(collection), tmdbID, string(mediaType)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("list entry %s:%s: %w", mediaType, tmdbID, shared.ErrNotFound)
	}
	return entry, err
}

// Delete soft-deletes one entry from a user's collection
func (r *ListEntryRepository) Delete(userID string, collection models.Collection, tmdbID string, mediaType models.MediaType) error {
	query := `
		UPDATE list_entries
		SET deleted_at = ?
		WHERE user_id = ? AND collection = ? AND tmdb_id = ? AND media_type = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), userID, string(collection), tmdbID, string(mediaType))
	if err != nil {
		return fmt.Errorf("failed to delete list entry: %w", err)
	}

	return expectAffected(result, "list entry")
}

// List returns a user's collection newest-first, excluding soft-deleted rows
func (r *ListEntryRepository) List(userID string, collection models.Collection) ([]*models.ListEntry, error) {
	query := `
		SELECT id, sequence, user_id, collection, tmdb_id, media_type, data, created_at, updated_at, deleted_at
		FROM list_entries
		WHERE user_id = ? AND collection = ? AND deleted_at IS NULL
		ORDER BY sequence DESC
	`

	rows, err := r.db.Query(query, userID, string(collection))
	if err != nil {
		return nil, fmt.Errorf("failed to query list entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.ListEntry
	for rows.Next() {
		entry, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// Users returns every user id with at least one live entry.
func (r *ListEntryRepository) Users() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT user_id FROM list_entries WHERE deleted_at IS NULL ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads a list_entries row from either [sql.Row] or [sql.Rows]
func (r *ListEntryRepository) scan(row scanner) (*models.ListEntry, error) {
	var (
		id         string
		sequence   int
		userID     string
		collection string
		tmdbID     string
		mediaType  string
		data       sql.NullString
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &userID, &collection, &tmdbID, &mediaType, &data, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan list entry: %w", err)
	}

	var payload []byte
	if data.Valid {
		payload = []byte(data.String)
	}

	entry := models.NewListEntry(userID, models.Collection(collection), tmdbID, models.MediaType(mediaType), payload)
	entry.SetID(id)
	entry.SetSequence(sequence)
	entry.SetCreatedAt(createdAt)
	entry.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		entry.SetDeletedAt(&deletedAt.Time)
	}

	return entry, nil
}
