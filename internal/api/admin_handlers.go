// Admin endpoints: version info plus manual triggers for the
// registered background jobs and the failed-queue requeue.

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version()})
}

func (s *Server) handleGetAdminJobsStatus(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.JobManager().GetStatus())
}

func (s *Server) handleRunAdminJob(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		JobName string `json:"job_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	// The manager runs one job at a time; a busy manager is a conflict,
	// not a server error.
	if err := s.app.JobManager().RunJob(payload.JobName, s.app); err != nil {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]string{
		"message": fmt.Sprintf("Job '%s' started.", payload.JobName),
	})
}

func (s *Server) handleRetryAllFailed(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.RetryAllFailed()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to requeue failed podcasts")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Requeued %d failed podcast(s).", count),
	})
}
