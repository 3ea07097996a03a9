package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/podmill/podmill-go/internal/models"
)

// CreateFeed adds a feed to check for new podcast material. Creating a
// feed with an already registered URL returns the existing row instead
// of an error.
func (s *Store) CreateFeed(title, url, sourceType, voice string) (*models.Feed, error) {
	var feed models.Feed
	query := `
        INSERT INTO feeds (title, url, source_type, voice, created_at, last_checked_at)
        VALUES (?, ?, ?, ?, ?, NULL)
        ON CONFLICT(url) DO NOTHING
        RETURNING id, title, url, source_type, voice, created_at;
    `
	err := s.db.QueryRow(query, title, url, sourceType, voice, time.Now()).Scan(
		&feed.ID, &feed.Title, &feed.URL, &feed.SourceType, &feed.Voice, &feed.CreatedAt,
	)
	if err == sql.ErrNoRows {
		// The feed already existed, which is not an error. Fetch the
		// existing one to return it.
		return s.getFeedByURL(url)
	}
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

func (s *Store) getFeedByURL(url string) (*models.Feed, error) {
	var feed models.Feed
	var lastChecked sql.NullTime
	err := s.db.QueryRow(`
        SELECT id, title, url, source_type, voice, last_checked_at, created_at
        FROM feeds WHERE url = ?`, url).Scan(
		&feed.ID, &feed.Title, &feed.URL, &feed.SourceType, &feed.Voice, &lastChecked, &feed.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastChecked.Valid {
		feed.LastCheckedAt = &lastChecked.Time
	}
	return &feed, nil
}

// GetAllFeeds retrieves all registered feeds, sorted by title.
func (s *Store) GetAllFeeds() ([]*models.Feed, error) {
	rows, err := s.db.Query(`
        SELECT id, title, url, source_type, voice, last_checked_at, created_at
        FROM feeds ORDER BY title ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []*models.Feed
	for rows.Next() {
		var feed models.Feed
		var lastChecked sql.NullTime
		if err := rows.Scan(&feed.ID, &feed.Title, &feed.URL, &feed.SourceType, &feed.Voice, &lastChecked, &feed.CreatedAt); err != nil {
			return nil, err
		}
		if lastChecked.Valid {
			feed.LastCheckedAt = &lastChecked.Time
		}
		feeds = append(feeds, &feed)
	}
	return feeds, rows.Err()
}

// GetFeedByID retrieves a single feed by its primary key.
func (s *Store) GetFeedByID(id int64) (*models.Feed, error) {
	var feed models.Feed
	var lastChecked sql.NullTime
	err := s.db.QueryRow(`
        SELECT id, title, url, source_type, voice, last_checked_at, created_at
        FROM feeds WHERE id = ?`, id).Scan(
		&feed.ID, &feed.Title, &feed.URL, &feed.SourceType, &feed.Voice, &lastChecked, &feed.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastChecked.Valid {
		feed.LastCheckedAt = &lastChecked.Time
	}
	return &feed, nil
}

// DeleteFeed removes a feed from the database.
func (s *Store) DeleteFeed(id int64) error {
	result, err := s.db.Exec("DELETE FROM feeds WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("feed with id %d not found", id)
	}
	return nil
}

// TouchFeedChecked sets the last_checked_at timestamp to the current time.
func (s *Store) TouchFeedChecked(id int64) error {
	_, err := s.db.Exec("UPDATE feeds SET last_checked_at = ? WHERE id = ?", time.Now(), id)
	return err
}
