package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// HandleSpeak starts narration. An empty text narrates the live session's description.
func (h *Handler) HandleSpeak(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Text string `json:"text"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	text := strings.TrimSpace(request.Text)
	if text == "" {
		session, ok := h.pipeline.Controller.Current()
		if !ok || session.Result == nil {
			h.writeError(w, "Nothing to narrate", http.StatusConflict)
			return
		}
		text = session.Result.Description
	}

	h.pipeline.Speech.Speak(text)
	w.WriteHeader(http.StatusAccepted)
}
