// To handle all database interactions. This is our
// data access layer, keeping SQL queries separate from business logic.

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/podmill/podmill-go/internal/models"
)

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const podcastColumns = `id, title, source_type, source_ref, voice, status, progress,
	current_step, error_message, estimated_completion, audio_path, transcript_path,
	cover_thumbnail, duration_seconds, checksum, started_at, created_at, updated_at`

// scanPodcast scans a database row into a Podcast. The scanner argument
// accepts both *sql.Row and *sql.Rows.
func scanPodcast(row interface{ Scan(dest ...any) error }) (*models.Podcast, error) {
	var p models.Podcast
	var errMsg, audioPath, transcriptPath, coverThumb, checksum sql.NullString
	var estimate, startedAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.Title, &p.SourceType, &p.SourceRef, &p.Voice, &p.Status, &p.Progress,
		&p.CurrentStep, &errMsg, &estimate, &audioPath, &transcriptPath,
		&coverThumb, &p.DurationSeconds, &checksum, &startedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ErrorMessage = errMsg.String
	p.AudioPath = audioPath.String
	p.TranscriptPath = transcriptPath.String
	p.CoverThumbnail = coverThumb.String
	p.Checksum = checksum.String
	if estimate.Valid {
		p.EstimatedCompletion = &estimate.Time
	}
	if startedAt.Valid {
		p.StartedAt = &startedAt.Time
	}
	return &p, nil
}

// CreatePodcast inserts a new podcast in the processing state. When the
// ID is empty a fresh UUID is assigned. The struct is updated in place
// with the generated ID and timestamps.
func (s *Store) CreatePodcast(p *models.Podcast) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Voice == "" {
		p.Voice = "narrator"
	}
	now := time.Now()
	p.Status = models.StatusProcessing
	p.Progress = 0
	p.CurrentStep = "Queued for generation"
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
        INSERT INTO podcasts (id, title, source_type, source_ref, voice, status, progress, current_step, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.Exec(query, p.ID, p.Title, p.SourceType, p.SourceRef, p.Voice,
		p.Status, p.Progress, p.CurrentStep, p.CreatedAt, p.UpdatedAt)
	return err
}

// GetPodcast retrieves a single podcast by ID.
func (s *Store) GetPodcast(id string) (*models.Podcast, error) {
	query := "SELECT " + podcastColumns + " FROM podcasts WHERE id = ?"
	return scanPodcast(s.db.QueryRow(query, id))
}

// ListPodcasts retrieves all podcasts, newest first.
func (s *Store) ListPodcasts() ([]*models.Podcast, error) {
	query := "SELECT " + podcastColumns + " FROM podcasts ORDER BY created_at DESC, id DESC"
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var podcasts []*models.Podcast
	for rows.Next() {
		p, err := scanPodcast(rows)
		if err != nil {
			return nil, err
		}
		podcasts = append(podcasts, p)
	}
	return podcasts, rows.Err()
}

// DeletePodcast removes a podcast row.
func (s *Store) DeletePodcast(id string) error {
	_, err := s.db.Exec("DELETE FROM podcasts WHERE id = ?", id)
	return err
}

// GetUnclaimedPodcasts retrieves a limited number of processing podcasts
// that no worker has claimed yet, oldest first.
func (s *Store) GetUnclaimedPodcasts(limit int) ([]*models.Podcast, error) {
	query := "SELECT " + podcastColumns + ` FROM podcasts
        WHERE status = 'processing' AND started_at IS NULL
        ORDER BY created_at ASC LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var podcasts []*models.Podcast
	for rows.Next() {
		p, err := scanPodcast(rows)
		if err != nil {
			return nil, err
		}
		podcasts = append(podcasts, p)
	}
	return podcasts, rows.Err()
}

// ClaimPodcast marks a podcast as taken by a worker. It reports false
// when another worker already holds the claim.
func (s *Store) ClaimPodcast(id string) (bool, error) {
	result, err := s.db.Exec(
		"UPDATE podcasts SET started_at = ?, updated_at = ? WHERE id = ? AND started_at IS NULL AND status = 'processing'",
		time.Now(), time.Now(), id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateProgress records the current pipeline position of a podcast.
// The estimate may be nil when no projection is available yet.
func (s *Store) UpdateProgress(id string, progress int, step string, estimate *time.Time) error {
	query := "UPDATE podcasts SET progress = ?, current_step = ?, estimated_completion = ?, updated_at = ? WHERE id = ?"
	_, err := s.db.Exec(query, progress, step, estimate, time.Now(), id)
	return err
}

// MarkCompleted transitions a podcast to its final successful state and
// records the artifact locations.
func (s *Store) MarkCompleted(id, audioPath, transcriptPath string, durationSeconds int, checksum string) error {
	query := `
        UPDATE podcasts SET status = 'completed', progress = 100, current_step = '',
            error_message = '', estimated_completion = NULL,
            audio_path = ?, transcript_path = ?, duration_seconds = ?, checksum = ?, updated_at = ?
        WHERE id = ?
    `
	result, err := s.db.Exec(query, audioPath, transcriptPath, durationSeconds, checksum, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("podcast with ID %s not found", id)
	}
	return nil
}

// MarkFailed transitions a podcast to its final failed state. Progress
// is left at its last value for display.
func (s *Store) MarkFailed(id string, message string) error {
	query := "UPDATE podcasts SET status = 'failed', error_message = ?, estimated_completion = NULL, updated_at = ? WHERE id = ?"
	result, err := s.db.Exec(query, message, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("podcast with ID %s not found", id)
	}
	return nil
}

// RetryPodcast requeues a specific failed podcast.
func (s *Store) RetryPodcast(id string) error {
	query := `
        UPDATE podcasts SET status = 'processing', progress = 0, current_step = 'Queued for generation',
            error_message = '', estimated_completion = NULL, started_at = NULL, updated_at = ?
        WHERE id = ? AND status = 'failed'
    `
	result, err := s.db.Exec(query, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("podcast with ID %s not found or not in failed status", id)
	}
	return nil
}

// RetryAllFailed requeues every failed podcast and returns how many were
// affected.
func (s *Store) RetryAllFailed() (int64, error) {
	query := `
        UPDATE podcasts SET status = 'processing', progress = 0, current_step = 'Queued for generation',
            error_message = '', estimated_completion = NULL, started_at = NULL, updated_at = ?
        WHERE status = 'failed'
    `
	result, err := s.db.Exec(query, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ResetStalledClaims releases claims older than the timeout so another
// worker can pick the podcast up, e.g. after a crashed generation.
func (s *Store) ResetStalledClaims(timeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-timeout)
	query := `
        UPDATE podcasts SET started_at = NULL, current_step = 'Queued for generation', updated_at = ?
        WHERE status = 'processing' AND started_at IS NOT NULL AND started_at < ?
    `
	result, err := s.db.Exec(query, time.Now(), cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// UpdateCoverThumbnail stores the rendered cover data URI for a podcast.
func (s *Store) UpdateCoverThumbnail(id string, thumbnail string) error {
	result, err := s.db.Exec("UPDATE podcasts SET cover_thumbnail = ?, updated_at = ? WHERE id = ?",
		thumbnail, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("podcast with ID %s not found", id)
	}
	return nil
}

// SetChecksum records the artifact checksum for a podcast.
func (s *Store) SetChecksum(id string, checksum string) error {
	_, err := s.db.Exec("UPDATE podcasts SET checksum = ? WHERE id = ?", checksum, id)
	return err
}

// ExistsForSource reports whether any podcast was already generated from
// the given source reference. Used by the feed checker to avoid
// generating the same item twice.
func (s *Store) ExistsForSource(sourceType, sourceRef string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM podcasts WHERE source_type = ? AND source_ref = ?",
		sourceType, sourceRef).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
