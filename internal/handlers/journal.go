package handlers

import (
	"net/http"

	"github.com/lehigh-university-libraries/tapsight/internal/journal"
)

// HandleJournal lists recorded sightings, oldest first
func (h *Handler) HandleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sightings := h.pipeline.Journal.Sightings()
	if sightings == nil {
		sightings = []journal.Sighting{}
	}
	h.writeJSON(w, http.StatusOK, sightings)
}
