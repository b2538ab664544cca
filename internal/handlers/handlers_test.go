package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/tapsight/internal/config"
	"github.com/lehigh-university-libraries/tapsight/internal/images"
	"github.com/lehigh-university-libraries/tapsight/internal/journal"
	"github.com/lehigh-university-libraries/tapsight/internal/overlay"
	"github.com/lehigh-university-libraries/tapsight/internal/pipeline"
	"github.com/lehigh-university-libraries/tapsight/internal/providers"
)

const recognized = `{"name":"Clock Tower","category":"LANDMARK","description":"A tall clock tower.","funFact":"It chimes hourly.","visualPrompt":"clock tower","confidence":0.85}`

type fakeBackend struct{}

func (fakeBackend) Recognize(ctx context.Context, req providers.RecognizeRequest) (string, error) {
	return recognized, nil
}

func (fakeBackend) GenerateImage(ctx context.Context, req providers.ImageRequest) (*providers.Image, error) {
	return &providers.Image{Data: []byte("png"), MIMEType: "image/png"}, nil
}

func (fakeBackend) SynthesizeSpeech(ctx context.Context, req providers.SpeechRequest) (*providers.Audio, error) {
	return &providers.Audio{PCM: []byte{0, 0}, SampleRate: 24000, Channels: 1}, nil
}

func newTestHandler(t *testing.T) (*Handler, *pipeline.Pipeline) {
	t.Helper()
	cfg := &config.Config{
		Provider: config.ProviderGemini,
		Speech:   config.SpeechConfig{OutputDir: filepath.Join(t.TempDir(), "narrations")},
		Overlay:  config.OverlayConfig{CardWidth: 400},
	}
	p, err := pipeline.NewWithBackend(cfg, fakeBackend{})
	if err != nil {
		t.Fatalf("Failed to build pipeline: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return New(p), p
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func do(h *Handler, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func postTap(t *testing.T, h *Handler, x, y float64) tapResponse {
	t.Helper()
	payload, _ := json.Marshal(map[string]interface{}{
		"image":     base64.StdEncoding.EncodeToString(pngBytes(t)),
		"mime_type": "image/png",
		"x":         x,
		"y":         y,
	})
	rec := do(h, "POST", "/api/taps", bytes.NewBuffer(payload), "application/json")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp tapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestHealthcheck(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := do(h, "GET", "/healthcheck", nil, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("Expected OK, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestTapThenSessionWithPlacement(t *testing.T) {
	h, p := newTestHandler(t)

	tap := postTap(t, h, 10, 30)
	if tap.SessionID == "" || tap.Status != "recognizing" {
		t.Errorf("Unexpected tap response %+v", tap)
	}
	p.Controller.Wait()

	rec := do(h, "GET", "/api/session?width=1100&height=800", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Session struct {
			ID         string `json:"id"`
			Status     string `json:"status"`
			ImageState string `json:"image_state"`
			Result     struct {
				Name string `json:"name"`
			} `json:"result"`
		} `json:"session"`
		DisplayImage string `json:"display_image"`
		Placement    *struct {
			TranslateX   string `json:"translateX"`
			TranslateY   string `json:"translateY"`
			TetherHeight string `json:"tetherHeight"`
		} `json:"placement"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if resp.Session.ID != tap.SessionID || resp.Session.Status != "ready" || resp.Session.ImageState != "ready" {
		t.Errorf("Unexpected session %+v", resp.Session)
	}
	if resp.Session.Result.Name != "Clock Tower" {
		t.Errorf("Expected Clock Tower, got %q", resp.Session.Result.Name)
	}
	if !strings.HasPrefix(resp.DisplayImage, "data:image/png;base64,") {
		t.Errorf("Expected data URI display image, got %q", resp.DisplayImage)
	}
	if resp.Placement == nil {
		t.Fatal("Expected placement")
	}
	if resp.Placement.TranslateX != "0%" || resp.Placement.TranslateY != "40px" || resp.Placement.TetherHeight != "40px" {
		t.Errorf("Unexpected placement %+v", resp.Placement)
	}
}

func TestSessionWithoutViewportOmitsPlacement(t *testing.T) {
	h, p := newTestHandler(t)
	postTap(t, h, 50, 50)
	p.Controller.Wait()

	rec := do(h, "GET", "/api/session", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "placement") {
		t.Errorf("Expected no placement, got %s", rec.Body.String())
	}

	rec = do(h, "GET", "/api/session?width=abc", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad width, got %d", rec.Code)
	}
}

func TestTapErrors(t *testing.T) {
	imageBody := func(data []byte) string {
		return `{"image":"` + base64.StdEncoding.EncodeToString(data) + `","x":1,"y":2}`
	}
	oversized := append(pngBytes(t), make([]byte, images.MaxFrameBytes)...)

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{name: "wrong method", method: "GET", want: http.StatusMethodNotAllowed},
		{name: "invalid json", method: "POST", body: "{", contentType: "application/json", want: http.StatusBadRequest},
		{name: "no image", method: "POST", body: `{"x":1,"y":2}`, contentType: "application/json", want: http.StatusBadRequest},
		{name: "bad base64", method: "POST", body: `{"image":"!!!","x":1,"y":2}`, contentType: "application/json", want: http.StatusBadRequest},
		{name: "not an image", method: "POST", body: imageBody([]byte("hello world")), contentType: "application/json", want: http.StatusBadRequest},
		{name: "oversized frame", method: "POST", body: imageBody(oversized), contentType: "application/json", want: http.StatusBadRequest},
		{name: "no file", method: "POST", body: "", contentType: "multipart/form-data; boundary=x", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, p := newTestHandler(t)
			rec := do(h, tt.method, "/api/taps", bytes.NewBufferString(tt.body), tt.contentType)
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if _, ok := p.Controller.Current(); ok {
				t.Error("Expected no session to be opened")
			}
		})
	}
}

func TestMultipartTap(t *testing.T) {
	h, p := newTestHandler(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "frame.png")
	fw.Write(pngBytes(t))
	mw.WriteField("x", "80")
	mw.WriteField("y", "90")
	mw.Close()

	rec := do(h, "POST", "/api/taps", &body, mw.FormDataContentType())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	p.Controller.Wait()

	s, ok := p.Controller.Current()
	if !ok || s.Tap.X != 80 || s.Tap.Y != 90 {
		t.Errorf("Unexpected session %+v", s)
	}
}

func TestDismissal(t *testing.T) {
	h, p := newTestHandler(t)

	if rec := do(h, "GET", "/api/session", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without a session, got %d", rec.Code)
	}

	postTap(t, h, 20, 20)
	p.Controller.Wait()

	for i := 0; i < 2; i++ {
		if rec := do(h, "DELETE", "/api/session", nil, ""); rec.Code != http.StatusNoContent {
			t.Errorf("Expected 204 on delete %d, got %d", i, rec.Code)
		}
	}
	if rec := do(h, "GET", "/api/session", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after dismissal, got %d", rec.Code)
	}
}

func TestSessionHistory(t *testing.T) {
	h, p := newTestHandler(t)

	first := postTap(t, h, 10, 10)
	second := postTap(t, h, 90, 90)
	p.Controller.Wait()

	rec := do(h, "GET", "/api/sessions/"+first.SessionID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"closed"`) {
		t.Errorf("Expected superseded session to be closed, got %s", rec.Body.String())
	}

	rec = do(h, "GET", "/api/sessions", nil, "")
	var list []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0]["id"] != second.SessionID {
		t.Errorf("Expected newest session first, got %v", list)
	}

	if rec := do(h, "GET", "/api/sessions/unknown", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown session, got %d", rec.Code)
	}

	if rec := do(h, "DELETE", "/api/sessions/"+second.SessionID, nil, ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if _, ok := p.Controller.Current(); ok {
		t.Error("Expected live session to be dismissed by id")
	}
	if _, ok := p.Sessions.Get(second.SessionID); !ok {
		t.Error("Expected dismissed live session to stay in history")
	}
}

func TestDeleteFinishedSessionDropsHistory(t *testing.T) {
	h, p := newTestHandler(t)

	first := postTap(t, h, 10, 10)
	second := postTap(t, h, 90, 90)
	p.Controller.Wait()

	if rec := do(h, "DELETE", "/api/sessions/"+first.SessionID, nil, ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if rec := do(h, "GET", "/api/sessions/"+first.SessionID, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after dropping from history, got %d", rec.Code)
	}
	if current, ok := p.Controller.Current(); !ok || current.ID != second.SessionID {
		t.Errorf("Expected live session %s to be untouched, got %+v", second.SessionID, current)
	}
	if rec := do(h, "DELETE", "/api/sessions/"+first.SessionID, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an already dropped session, got %d", rec.Code)
	}
}

func TestClosedSessionHasNoPlacement(t *testing.T) {
	h, p := newTestHandler(t)

	first := postTap(t, h, 10, 30)
	postTap(t, h, 90, 90)
	p.Controller.Wait()

	rec := do(h, "GET", "/api/sessions/"+first.SessionID+"?width=1100&height=800", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["placement"]; ok {
		t.Errorf("Expected no placement for a closed session, got %s", body["placement"])
	}
}

func TestSpeak(t *testing.T) {
	h, p := newTestHandler(t)

	if rec := do(h, "POST", "/api/speak", nil, ""); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 without text or session, got %d", rec.Code)
	}
	if rec := do(h, "POST", "/api/speak", bytes.NewBufferString(`{"text":"hello"}`), "application/json"); rec.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", rec.Code)
	}

	postTap(t, h, 50, 50)
	p.Controller.Wait()
	if rec := do(h, "POST", "/api/speak", bytes.NewBufferString(`{}`), "application/json"); rec.Code != http.StatusAccepted {
		t.Errorf("Expected 202 narrating the session, got %d", rec.Code)
	}
	if rec := do(h, "GET", "/api/speak", nil, ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
	p.Speech.Wait()
}

func TestJournal(t *testing.T) {
	h, p := newTestHandler(t)

	rec := do(h, "GET", "/api/journal", nil, "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("Expected empty list, got %d %s", rec.Code, rec.Body.String())
	}

	postTap(t, h, 50, 50)
	p.Controller.Wait()

	rec = do(h, "GET", "/api/journal", nil, "")
	var sightings []journal.Sighting
	if err := json.Unmarshal(rec.Body.Bytes(), &sightings); err != nil {
		t.Fatal(err)
	}
	if len(sightings) != 1 || sightings[0].Name != "Clock Tower" || sightings[0].Status != overlay.StatusReady.String() {
		t.Errorf("Unexpected sightings %+v", sightings)
	}
}
