package api

import (
	"net/http"

	"github.com/podmill/podmill-go/internal/generator/sources"
)

// handleListSources returns the info of all registered content sources.
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, sources.GetAll())
}
