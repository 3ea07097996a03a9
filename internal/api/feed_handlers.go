package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/podmill/podmill-go/internal/feeds"
	"github.com/podmill/podmill-go/internal/generator/sources"
	"github.com/podmill/podmill-go/internal/models"
)

func (s *Server) handleCreateFeed(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title      string `json:"title"`
		URL        string `json:"url"`
		SourceType string `json:"sourceType"`
		Voice      string `json:"voice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if payload.URL == "" {
		RespondWithError(w, http.StatusBadRequest, "A feed URL is required")
		return
	}
	source, ok := sources.Get(payload.SourceType)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Unknown source type: "+payload.SourceType)
		return
	}
	if _, ok := source.(models.Discoverer); !ok {
		RespondWithError(w, http.StatusBadRequest, "Source '"+payload.SourceType+"' does not support feed discovery")
		return
	}
	if payload.Voice == "" {
		payload.Voice = s.app.Config().Generation.DefaultVoice
	}

	feed, err := s.store.CreateFeed(payload.Title, payload.URL, payload.SourceType, payload.Voice)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create feed")
		return
	}

	RespondWithJSON(w, http.StatusCreated, feed)
}

func (s *Server) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	feedList, err := s.store.GetAllFeeds()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve feeds")
		return
	}
	if feedList == nil {
		feedList = []*models.Feed{}
	}
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{"feeds": feedList})
}

func (s *Server) handleDeleteFeed(w http.ResponseWriter, r *http.Request) {
	feedID, err := strconv.ParseInt(chi.URLParam(r, "feedID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid feed ID")
		return
	}
	if err := s.store.DeleteFeed(feedID); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete feed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecheckFeed(w http.ResponseWriter, r *http.Request) {
	feedID, err := strconv.ParseInt(chi.URLParam(r, "feedID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid feed ID")
		return
	}
	if _, err := s.store.GetFeedByID(feedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondWithError(w, http.StatusNotFound, "Feed not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve feed")
		return
	}

	// Run the check in a background goroutine so the API call returns immediately.
	go func() {
		feedService := feeds.NewService(s.app)
		feedService.CheckFeed(feedID)
	}()

	RespondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Feed re-check has been initiated."})
}

func (s *Server) handleRecheckAllFeeds(w http.ResponseWriter, r *http.Request) {
	go func() {
		feedService := feeds.NewService(s.app)
		feedService.CheckAllFeeds()
	}()

	RespondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Re-check of all feeds has been initiated."})
}
