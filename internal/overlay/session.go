package overlay

import (
	"fmt"
	"time"

	"github.com/lehigh-university-libraries/tapsight/internal/models"
)

// Status is the outer session state
type Status int

const (
	StatusIdle Status = iota
	StatusRecognizing
	StatusReady
	StatusFailed
	StatusClosed
)

var statusNames = map[Status]string{
	StatusIdle:        "idle",
	StatusRecognizing: "recognizing",
	StatusReady:       "ready",
	StatusFailed:      "failed",
	StatusClosed:      "closed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText renders the status name in JSON and YAML
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ImageState is the illustration sub-state, only meaningful while Ready.
// ImageNone means the sub-state was never entered, either because the
// session is not Ready or because an override supplied the image.
type ImageState int

const (
	ImageNone ImageState = iota
	ImagePending
	ImageReady
	ImageQuotaExceeded
	ImageUnavailable
)

var imageStateNames = map[ImageState]string{
	ImageNone:          "none",
	ImagePending:       "pending",
	ImageReady:         "ready",
	ImageQuotaExceeded: "quota_exceeded",
	ImageUnavailable:   "unavailable",
}

func (s ImageState) String() string {
	if name, ok := imageStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("image_state(%d)", int(s))
}

// MarshalText renders the image state name in JSON and YAML
func (s ImageState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FailureReason tells the UI which failure message to render
type FailureReason string

const (
	FailureNone          FailureReason = ""
	FailureConfig        FailureReason = "config"
	FailureQuotaExceeded FailureReason = "quota_exceeded"
	FailureRecognition   FailureReason = "recognition_failure"
)

// Session is a snapshot of one tap-triggered interaction.
// Revision increases with every change to the same session.
type Session struct {
	ID         string                    `json:"id" yaml:"id"`
	Generation uint64                    `json:"generation" yaml:"generation"`
	Revision   uint64                    `json:"revision" yaml:"revision"`
	Tap        models.TapPoint           `json:"tap" yaml:"tap"`
	Status     Status                    `json:"status" yaml:"status"`
	Result     *models.RecognitionResult `json:"result,omitempty" yaml:"result,omitempty"`
	ImageState ImageState                `json:"image_state" yaml:"imagestate"`
	Visual     models.VisualAsset        `json:"visual" yaml:"visual"`
	Failure    FailureReason             `json:"failure,omitempty" yaml:"failure,omitempty"`
	Error      string                    `json:"error,omitempty" yaml:"error,omitempty"`
	OpenedAt   time.Time                 `json:"opened_at" yaml:"openedat"`
}

// DisplayImage returns the image the card shows: the override's reference
// image first, then a generated one. Empty when neither is available.
func (s Session) DisplayImage() string {
	if s.Result != nil && s.Result.ReferenceImage != "" {
		return s.Result.ReferenceImage
	}
	if s.Visual.IsImage() {
		return s.Visual.URI
	}
	return ""
}

// Settled reports whether the session expects no further async results
func (s Session) Settled() bool {
	switch s.Status {
	case StatusFailed, StatusClosed:
		return true
	case StatusReady:
		return s.ImageState != ImagePending
	default:
		return false
	}
}

func imageStateFor(asset models.VisualAsset) ImageState {
	switch {
	case asset.IsAbsent():
		return ImageUnavailable
	case asset.IsQuotaExceeded():
		return ImageQuotaExceeded
	default:
		return ImageReady
	}
}
