package handlers

import (
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/tapsight/internal/geometry"
	"github.com/lehigh-university-libraries/tapsight/internal/models"
	"github.com/lehigh-university-libraries/tapsight/internal/overlay"
)

type sessionResponse struct {
	Session      overlay.Session     `json:"session"`
	DisplayImage string              `json:"display_image,omitempty"`
	Placement    *geometry.Placement `json:"placement,omitempty"`
}

// HandleCurrentSession reports or dismisses the live session
func (h *Handler) HandleCurrentSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		session, ok := h.pipeline.Controller.Current()
		if !ok {
			h.writeError(w, "No active session", http.StatusNotFound)
			return
		}
		h.writeSession(w, r, session)
	case "DELETE":
		h.pipeline.Controller.Close()
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSessions lists recent sessions, newest first
func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, http.StatusOK, h.pipeline.Sessions.GetAll())
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSessionDetail reports a session by id. DELETE dismisses the live
// session, or drops a finished one from history.
func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/api/sessions/")

	switch r.Method {
	case "GET":
		session, ok := h.pipeline.Sessions.Get(sessionID)
		if !ok {
			h.writeError(w, "Session not found", http.StatusNotFound)
			return
		}
		h.writeSession(w, r, session)
	case "DELETE":
		if h.pipeline.Controller.CloseSession(sessionID) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if _, ok := h.pipeline.Sessions.Get(sessionID); !ok {
			h.writeError(w, "Session not found", http.StatusNotFound)
			return
		}
		h.pipeline.Sessions.Delete(sessionID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// writeSession attaches a placement when the request names a viewport and the
// session is not closed. Placement is recomputed per request so a resized
// client gets a fresh layout.
func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, session overlay.Session) {
	response := sessionResponse{
		Session:      session,
		DisplayImage: session.DisplayImage(),
	}

	query := r.URL.Query()
	if query.Get("width") != "" && session.Status != overlay.StatusClosed {
		width, errW := floatParam(query.Get("width"), 0)
		height, errH := floatParam(query.Get("height"), 0)
		if errW != nil || errH != nil || width <= 0 {
			h.writeError(w, "width and height must be positive numbers", http.StatusBadRequest)
			return
		}
		placement := geometry.Compute(session.Tap, models.Viewport{Width: width, Height: height}, h.pipeline.Config.Overlay.CardWidth)
		response.Placement = &placement
	}

	h.writeJSON(w, http.StatusOK, response)
}
