package models

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// TapPoint is a tap position in viewport-relative percentages, each in [0,100]
type TapPoint struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Clamp returns the tap point with both coordinates forced into [0,100]
func (p TapPoint) Clamp() TapPoint {
	return TapPoint{X: clampPercent(p.X), Y: clampPercent(p.Y)}
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// Viewport is the rendering surface size in pixels
type Viewport struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// EncodedImage is a captured camera frame as base64 text.
// Data may also be a data URI ("data:image/jpeg;base64,...").
type EncodedImage struct {
	Data     string `json:"data"`
	MIMEType string `json:"mime_type"`
}

// Decode returns the raw image bytes and the effective mime type
func (e EncodedImage) Decode() ([]byte, string, error) {
	data := strings.TrimSpace(e.Data)
	mimeType := e.MIMEType

	if strings.HasPrefix(data, "data:") {
		header, payload, ok := strings.Cut(data, ",")
		if !ok {
			return nil, "", fmt.Errorf("malformed data URI")
		}
		header = strings.TrimPrefix(header, "data:")
		header = strings.TrimSuffix(header, ";base64")
		if mimeType == "" && header != "" {
			mimeType = header
		}
		data = payload
	}

	if data == "" {
		return nil, "", fmt.Errorf("empty image payload")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return raw, mimeType, nil
}

// RecognitionResult is the identification of the object at a tap point.
// Override, ReferenceImage and WeatherFacts are only set when an override matched.
type RecognitionResult struct {
	Name           string  `json:"name" yaml:"name"`
	Category       string  `json:"category" yaml:"category"`
	Description    string  `json:"description" yaml:"description"`
	FunFact        string  `json:"funFact" yaml:"funfact"`
	VisualPrompt   string  `json:"visualPrompt" yaml:"visualprompt"`
	Confidence     float64 `json:"confidence" yaml:"confidence"`
	ReferenceImage string  `json:"referenceImage,omitempty" yaml:"referenceimage,omitempty"`
	WeatherFacts   string  `json:"weatherFacts,omitempty" yaml:"weatherfacts,omitempty"`
	Override       string  `json:"override,omitempty" yaml:"override,omitempty"`
}

// AssetKind distinguishes the three shapes a VisualAsset can take
type AssetKind string

const (
	AssetAbsent        AssetKind = "absent"
	AssetImage         AssetKind = "image"
	AssetQuotaExceeded AssetKind = "quota_exceeded"
)

// VisualAsset is either an image reference, the quota sentinel, or absent.
// The zero value is absent.
type VisualAsset struct {
	Kind AssetKind `json:"kind" yaml:"kind"`
	URI  string    `json:"uri,omitempty" yaml:"uri,omitempty"`
}

// ImageAsset wraps an image URL or data URI
func ImageAsset(uri string) VisualAsset {
	if uri == "" {
		return VisualAsset{Kind: AssetAbsent}
	}
	return VisualAsset{Kind: AssetImage, URI: uri}
}

// QuotaExceededAsset is the sentinel for an exhausted image generation quota
func QuotaExceededAsset() VisualAsset {
	return VisualAsset{Kind: AssetQuotaExceeded}
}

// IsImage reports whether the asset carries a renderable image
func (a VisualAsset) IsImage() bool {
	return a.Kind == AssetImage && a.URI != ""
}

// IsQuotaExceeded reports whether the asset is the quota sentinel
func (a VisualAsset) IsQuotaExceeded() bool {
	return a.Kind == AssetQuotaExceeded
}

// IsAbsent reports whether there is no asset
func (a VisualAsset) IsAbsent() bool {
	return !a.IsImage() && !a.IsQuotaExceeded()
}
