package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/podmill/podmill-go/internal/artifacts"
	"github.com/podmill/podmill-go/internal/generator/sources"
	"github.com/podmill/podmill-go/internal/models"
	"github.com/podmill/podmill-go/internal/util"
)

// decoratePodcast fills the derived fields a client needs but the
// database does not store, currently just the audio download URL.
func decoratePodcast(p *models.Podcast) *models.Podcast {
	if p.Status == models.StatusCompleted && p.AudioPath != "" {
		p.AudioURL = "/api/podcasts/" + p.ID + "/audio"
	}
	return p
}

func (s *Server) handleCreatePodcast(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title      string `json:"title"`
		SourceType string `json:"sourceType"`
		SourceRef  string `json:"sourceRef"`
		Voice      string `json:"voice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if payload.SourceRef == "" {
		RespondWithError(w, http.StatusBadRequest, "A source reference is required")
		return
	}
	if _, ok := sources.Get(payload.SourceType); !ok {
		RespondWithError(w, http.StatusBadRequest, "Unknown source type: "+payload.SourceType)
		return
	}
	if payload.Voice == "" {
		payload.Voice = s.app.Config().Generation.DefaultVoice
	}

	podcast := &models.Podcast{
		Title:      payload.Title,
		SourceType: payload.SourceType,
		SourceRef:  payload.SourceRef,
		Voice:      payload.Voice,
	}
	if err := s.store.CreatePodcast(podcast); err != nil {
		log.Printf("Failed to create podcast: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to create podcast")
		return
	}

	RespondWithJSON(w, http.StatusCreated, decoratePodcast(podcast))
}

func (s *Server) handleListPodcasts(w http.ResponseWriter, r *http.Request) {
	podcasts, err := s.store.ListPodcasts()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve podcasts")
		return
	}
	for _, p := range podcasts {
		decoratePodcast(p)
	}
	if podcasts == nil {
		podcasts = []*models.Podcast{}
	}

	RespondWithJSON(w, http.StatusOK, map[string]interface{}{"podcasts": podcasts})
}

func (s *Server) handleGetPodcast(w http.ResponseWriter, r *http.Request) {
	podcast, err := s.store.GetPodcast(chi.URLParam(r, "podcastID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondWithError(w, http.StatusNotFound, "Podcast not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve podcast")
		return
	}
	RespondWithJSON(w, http.StatusOK, decoratePodcast(podcast))
}

// handleGetPodcastStatus serves the polling contract used by trackers:
// a success flag plus the current progress snapshot.
func (s *Server) handleGetPodcastStatus(w http.ResponseWriter, r *http.Request) {
	podcast, err := s.store.GetPodcast(chi.URLParam(r, "podcastID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondWithError(w, http.StatusNotFound, "Podcast not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve podcast status")
		return
	}

	response := struct {
		Success bool `json:"success"`
		models.StatusSnapshot
	}{
		Success: true,
		StatusSnapshot: models.StatusSnapshot{
			PodcastID:           podcast.ID,
			Status:              podcast.Status,
			Progress:            podcast.Progress,
			CurrentStep:         podcast.CurrentStep,
			UpdatedAt:           podcast.UpdatedAt,
			ErrorMessage:        podcast.ErrorMessage,
			EstimatedCompletion: podcast.EstimatedCompletion,
		},
	}
	RespondWithJSON(w, http.StatusOK, response)
}

func (s *Server) handleDeletePodcast(w http.ResponseWriter, r *http.Request) {
	podcast, err := s.store.GetPodcast(chi.URLParam(r, "podcastID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondWithError(w, http.StatusNotFound, "Podcast not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve podcast")
		return
	}

	if err := s.store.DeletePodcast(podcast.ID); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete podcast")
		return
	}
	// Artifact removal is best-effort; a leftover file is picked up as an
	// orphan by the sync job.
	for _, path := range []string{podcast.AudioPath, podcast.TranscriptPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove artifact %s: %v", path, err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetryPodcast(w http.ResponseWriter, r *http.Request) {
	podcast, err := s.store.GetPodcast(chi.URLParam(r, "podcastID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondWithError(w, http.StatusNotFound, "Podcast not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve podcast")
		return
	}
	if podcast.Status != models.StatusFailed {
		RespondWithError(w, http.StatusConflict, "Only failed podcasts can be retried")
		return
	}

	if err := s.store.RetryPodcast(podcast.ID); err != nil {
		log.Printf("Failed to retry podcast %s: %v", podcast.ID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to retry podcast")
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Podcast queued for retry."})
}

// handleGetPodcastAudio serves the generated WAV file. The stored path
// is checked against the artifacts root before anything leaves disk.
func (s *Server) handleGetPodcastAudio(w http.ResponseWriter, r *http.Request) {
	podcast, err := s.store.GetPodcast(chi.URLParam(r, "podcastID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondWithError(w, http.StatusNotFound, "Podcast not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve podcast")
		return
	}
	if podcast.Status != models.StatusCompleted || podcast.AudioPath == "" {
		RespondWithError(w, http.StatusNotFound, "Audio is not available for this podcast")
		return
	}

	root, err := filepath.Abs(s.app.Config().Artifacts.Path)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to resolve artifacts directory")
		return
	}
	audioPath, err := filepath.Abs(podcast.AudioPath)
	if err != nil || !strings.HasPrefix(audioPath, root+string(os.PathSeparator)) {
		log.Printf("Refusing to serve audio outside artifacts root: %s", podcast.AudioPath)
		RespondWithError(w, http.StatusNotFound, "Audio is not available for this podcast")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, audioPath)
}

// handleExportPodcast streams a zip bundle with the audio, transcript
// and metadata for a completed podcast.
func (s *Server) handleExportPodcast(w http.ResponseWriter, r *http.Request) {
	podcast, err := s.store.GetPodcast(chi.URLParam(r, "podcastID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondWithError(w, http.StatusNotFound, "Podcast not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve podcast")
		return
	}
	if podcast.Status != models.StatusCompleted || podcast.AudioPath == "" {
		RespondWithError(w, http.StatusConflict, "Podcast has no artifacts to export yet")
		return
	}

	base := util.SanitizeFilename(podcast.Title)
	if base == "" {
		base = podcast.ID
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+base+`.zip"`)

	if err := artifacts.ExportBundle(r.Context(), w, decoratePodcast(podcast)); err != nil {
		// Headers are already gone; all we can do is log.
		log.Printf("Failed to export podcast %s: %v", podcast.ID, err)
	}
}

// handleUploadPodcastCover accepts a multipart image upload and stores
// a resized thumbnail as a data URI on the podcast.
func (s *Server) handleUploadPodcastCover(w http.ResponseWriter, r *http.Request) {
	podcast, err := s.store.GetPodcast(chi.URLParam(r, "podcastID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondWithError(w, http.StatusNotFound, "Podcast not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve podcast")
		return
	}

	file, _, err := r.FormFile("cover_file")
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "A cover_file upload is required")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	thumbnail, err := artifacts.GenerateCoverThumbnail(imageData)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Could not decode uploaded image")
		return
	}
	if err := s.store.UpdateCoverThumbnail(podcast.ID, thumbnail); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to store cover thumbnail")
		return
	}

	podcast.CoverThumbnail = thumbnail
	RespondWithJSON(w, http.StatusOK, decoratePodcast(podcast))
}
