package models

type ProgressUpdate struct {
	JobID     string  `json:"jobId"`
	PodcastID string  `json:"podcastId,omitempty"`
	Message   string  `json:"message"`
	Progress  float64 `json:"progress"`
	Status    string  `json:"status"` // e.g. "processing", "completed", "failed"
	Done      bool    `json:"done"`
}
