package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/tapsight/internal/images"
	"github.com/lehigh-university-libraries/tapsight/internal/models"
)

// defaultTap is used when a request omits a coordinate
const defaultTap = 50.0

type tapRequest struct {
	Image    string   `json:"image"`
	MIMEType string   `json:"mime_type"`
	ImageURL string   `json:"image_url"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
}

type tapResponse struct {
	SessionID  string `json:"session_id"`
	Generation uint64 `json:"generation"`
	Status     string `json:"status"`
}

// HandleTaps opens a session for a captured frame, superseding any live one
func (h *Handler) HandleTaps(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleJSONTap(w, r)
		return
	}

	h.handleFileTap(w, r)
}

func (h *Handler) handleJSONTap(w http.ResponseWriter, r *http.Request) {
	var request tapRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 2*images.MaxFrameBytes)).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	tap := models.TapPoint{X: defaultTap, Y: defaultTap}
	if request.X != nil {
		tap.X = *request.X
	}
	if request.Y != nil {
		tap.Y = *request.Y
	}

	var img models.EncodedImage
	switch {
	case request.Image != "":
		raw, mimeType, err := models.EncodedImage{Data: request.Image, MIMEType: request.MIMEType}.Decode()
		if err != nil {
			h.writeError(w, "Invalid image: "+err.Error(), http.StatusBadRequest)
			return
		}
		frame, err := images.FromBytes(raw)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if frame.MIMEType == "application/octet-stream" && mimeType != "" {
			frame.MIMEType = mimeType
		}
		img = frame.Encoded()
	case request.ImageURL != "":
		frame, err := h.fetcher.Download(r.Context(), request.ImageURL)
		if err != nil {
			h.writeError(w, "Failed to fetch image: "+err.Error(), http.StatusBadRequest)
			return
		}
		img = frame.Encoded()
	default:
		h.writeError(w, "image or image_url is required", http.StatusBadRequest)
		return
	}

	h.open(w, img, tap)
}

func (h *Handler) handleFileTap(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		file, _, err = r.FormFile("files")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	x, errX := floatParam(r.FormValue("x"), defaultTap)
	y, errY := floatParam(r.FormValue("y"), defaultTap)
	if errX != nil || errY != nil {
		h.writeError(w, "x and y must be numbers", http.StatusBadRequest)
		return
	}

	frame, err := images.Read(file)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.open(w, frame.Encoded(), models.TapPoint{X: x, Y: y})
}

func (h *Handler) open(w http.ResponseWriter, img models.EncodedImage, tap models.TapPoint) {
	session := h.pipeline.Controller.Open(img, tap)
	h.writeJSON(w, http.StatusAccepted, tapResponse{
		SessionID:  session.ID,
		Generation: session.Generation,
		Status:     session.Status.String(),
	})
}
