package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
)

var (
	// ErrMissingCredential is returned before any network call when no API key is configured
	ErrMissingCredential = errors.New("missing API credential")
	// ErrQuotaExceeded marks resource exhaustion reported by the backend
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrUnsupported is returned by backends that cannot serve an operation
	ErrUnsupported = errors.New("operation not supported by provider")
)

// Image is a binary image payload
type Image struct {
	Data     []byte
	MIMEType string
}

// Audio is signed 16-bit little-endian PCM, interleaved by channel
type Audio struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// FieldType is the JSON type of a structured response field
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
)

// Field describes one property of the structured recognition response
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
}

// RecognizeRequest asks the backend to identify the object in an image
type RecognizeRequest struct {
	Image  Image
	Prompt string
	Fields []Field
}

// ImageRequest asks the backend for a generated illustration
type ImageRequest struct {
	Prompt      string
	AspectRatio string
}

// SpeechRequest asks the backend for narration audio
type SpeechRequest struct {
	Text  string
	Voice string
}

// Recognizer returns the raw JSON text of a structured recognition response
type Recognizer interface {
	Recognize(ctx context.Context, req RecognizeRequest) (string, error)
}

// ImageGenerator returns a generated image
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*Image, error)
}

// SpeechSynthesizer returns synthesized narration
type SpeechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, req SpeechRequest) (*Audio, error)
}

// Backend is the generative AI collaborator behind the pipeline
type Backend interface {
	Recognizer
	ImageGenerator
	SpeechSynthesizer
}

// IsQuotaExceeded reports whether err signals resource exhaustion:
// the sentinel, an HTTP 429 from either Google client flavour, or a
// RESOURCE_EXHAUSTED status in the error text.
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}

	var aerr *apierror.APIError
	if errors.As(err, &aerr) && aerr.HTTPCode() == http.StatusTooManyRequests {
		return true
	}

	return strings.Contains(strings.ToUpper(err.Error()), "RESOURCE_EXHAUSTED")
}

// CheckResponse converts a non-200 REST response into an error,
// wrapping ErrQuotaExceeded for 429s and RESOURCE_EXHAUSTED payloads.
func CheckResponse(statusCode int, body []byte) error {
	if statusCode == http.StatusOK {
		return nil
	}
	if statusCode == http.StatusTooManyRequests || strings.Contains(strings.ToUpper(string(body)), "RESOURCE_EXHAUSTED") {
		return fmt.Errorf("%w: status %d: %s", ErrQuotaExceeded, statusCode, string(body))
	}
	return fmt.Errorf("received non-200 status code: %d - %s", statusCode, string(body))
}
