// This file defines the core data structures (models) for our application.
// These structs represent the podcasts tracked by the generation queue.

package models

import "time"

// PodcastStatus is the closed set of states a podcast moves through.
// A freshly accepted podcast is already "processing"; queue position is
// internal and never widens this enum on the wire.
type PodcastStatus string

const (
	StatusProcessing PodcastStatus = "processing"
	StatusCompleted  PodcastStatus = "completed"
	StatusFailed     PodcastStatus = "failed"
)

// IsTerminal reports whether no further transitions can occur.
func (s PodcastStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Podcast represents a single generation job and its artifact.
type Podcast struct {
	ID                  string        `json:"podcastId"`
	Title               string        `json:"title"`
	SourceType          string        `json:"sourceType"`
	SourceRef           string        `json:"sourceRef"`
	Voice               string        `json:"voice"`
	Status              PodcastStatus `json:"status"`
	Progress            int           `json:"progressPercentage"`
	CurrentStep         string        `json:"currentStep"`
	ErrorMessage        string        `json:"errorMessage,omitempty"`
	EstimatedCompletion *time.Time    `json:"estimatedCompletion,omitempty"`
	AudioURL            string        `json:"audioUrl,omitempty"`
	DurationSeconds     int           `json:"durationSeconds,omitempty"`
	Checksum            string        `json:"checksum,omitempty"`
	CoverThumbnail      string        `json:"coverThumbnail,omitempty"`
	AudioPath           string        `json:"-"` // Hide filesystem paths from JSON responses
	TranscriptPath      string        `json:"-"`
	StartedAt           *time.Time    `json:"-"` // Worker claim marker, nil while waiting in queue
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// StatusSnapshot is one immutable observation of a podcast's progress,
// as served by the status endpoint and consumed by the tracker.
type StatusSnapshot struct {
	PodcastID           string        `json:"podcastId"`
	Status              PodcastStatus `json:"status"`
	Progress            int           `json:"progressPercentage"`
	CurrentStep         string        `json:"currentStep"`
	UpdatedAt           time.Time     `json:"updatedAt"`
	ErrorMessage        string        `json:"errorMessage,omitempty"`
	EstimatedCompletion *time.Time    `json:"estimatedCompletion,omitempty"`
}

// DisplayStep returns CurrentStep, or a placeholder derived from the
// status when the server sent an empty label.
func (s *StatusSnapshot) DisplayStep() string {
	if s.CurrentStep != "" {
		return s.CurrentStep
	}
	switch s.Status {
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return "Generating podcast"
	}
}

// Feed is a subscribed content feed that is periodically checked for new
// items to turn into podcasts.
type Feed struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	SourceType    string     `json:"sourceType"`
	Voice         string     `json:"voice"`
	LastCheckedAt *time.Time `json:"lastCheckedAt,omitempty"` // Nullable, when the feed was last checked for new items
	CreatedAt     time.Time  `json:"createdAt"`
}
