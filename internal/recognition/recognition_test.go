package recognition

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/tapsight/internal/models"
	"github.com/lehigh-university-libraries/tapsight/internal/overrides"
	"github.com/lehigh-university-libraries/tapsight/internal/providers"
	"google.golang.org/api/googleapi"
)

type fakeRecognizer struct {
	response string
	err      error
	calls    int
	last     providers.RecognizeRequest
}

func (f *fakeRecognizer) Recognize(ctx context.Context, req providers.RecognizeRequest) (string, error) {
	f.calls++
	f.last = req
	return f.response, f.err
}

var frame = models.EncodedImage{Data: base64.StdEncoding.EncodeToString([]byte("jpeg bytes")), MIMEType: "image/jpeg"}

func resultJSON(name string) string {
	return fmt.Sprintf(`{"name":%q,"category":"Object","description":"A thing.","funFact":"It exists.","visualPrompt":"a thing","confidence":0.92}`, name)
}

func TestIdentify(t *testing.T) {
	backend := &fakeRecognizer{response: resultJSON("Coffee Mug")}
	client := NewClient(backend, overrides.Default())

	result, err := client.Identify(context.Background(), frame, models.TapPoint{X: 12.4, Y: 87.6})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Name != "Coffee Mug" || result.Category != "Object" || result.Confidence != 0.92 {
		t.Errorf("Unexpected result %+v", result)
	}
	if result.ReferenceImage != "" || result.WeatherFacts != "" {
		t.Errorf("Expected no override fields, got %+v", result)
	}

	if string(backend.last.Image.Data) != "jpeg bytes" || backend.last.Image.MIMEType != "image/jpeg" {
		t.Errorf("Expected decoded image in request, got %+v", backend.last.Image)
	}
	if !strings.Contains(backend.last.Prompt, "(12%, 88%)") {
		t.Errorf("Expected rounded tap coordinates in prompt, got %q", backend.last.Prompt)
	}
	if !strings.Contains(backend.last.Prompt, "SPECIAL OVERRIDES") {
		t.Errorf("Expected override hints in prompt, got %q", backend.last.Prompt)
	}
	if len(backend.last.Fields) != 6 {
		t.Errorf("Expected 6 schema fields, got %d", len(backend.last.Fields))
	}
}

func TestIdentifyOverrides(t *testing.T) {
	tests := []struct {
		name         string
		rawName      string
		wantName     string
		wantCategory string
		wantWeather  bool
	}{
		{name: "iad13 rack", rawName: "iad13 rack", wantName: "IAD13 Data Center", wantCategory: "CRITICAL_INFRASTRUCTURE", wantWeather: true},
		{name: "white house mixed case", rawName: "The wHiTe HoUsE lawn", wantName: "The White House", wantCategory: "GOVERNMENT_HUB", wantWeather: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(&fakeRecognizer{response: resultJSON(tt.rawName)}, overrides.Default())
			result, err := client.Identify(context.Background(), frame, models.TapPoint{X: 50, Y: 50})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result.Name != tt.wantName || result.Category != tt.wantCategory {
				t.Errorf("Expected %s/%s, got %s/%s", tt.wantName, tt.wantCategory, result.Name, result.Category)
			}
			if result.ReferenceImage == "" {
				t.Error("Expected reference image")
			}
			if (result.WeatherFacts != "") != tt.wantWeather {
				t.Errorf("Expected weather facts=%v, got %q", tt.wantWeather, result.WeatherFacts)
			}
		})
	}
}

func TestIdentifyErrors(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		image    models.EncodedImage
		want     error
	}{
		{name: "missing credential", err: fmt.Errorf("GEMINI_API_KEY not set: %w", providers.ErrMissingCredential), want: ErrConfig},
		{name: "quota sentinel", err: fmt.Errorf("%w: 429", providers.ErrQuotaExceeded), want: ErrQuotaExceeded},
		{name: "googleapi 429", err: &googleapi.Error{Code: 429}, want: ErrQuotaExceeded},
		{name: "resource exhausted payload", err: errors.New(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`), want: ErrQuotaExceeded},
		{name: "network failure", err: errors.New("connection refused"), want: ErrRecognitionFailure},
		{name: "empty body", response: "   ", want: ErrRecognitionFailure},
		{name: "malformed json", response: `{"name":`, want: ErrRecognitionFailure},
		{name: "missing required field", response: `{"name":"x","category":"y"}`, want: ErrRecognitionFailure},
		{name: "blank name", response: `{"name":" ","category":"c","description":"d","funFact":"f","visualPrompt":"v","confidence":1}`, want: ErrRecognitionFailure},
		{name: "undecodable image", image: models.EncodedImage{Data: "!!"}, want: ErrRecognitionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image := frame
			if tt.image.Data != "" {
				image = tt.image
			}
			client := NewClient(&fakeRecognizer{response: tt.response, err: tt.err}, overrides.Default())
			_, err := client.Identify(context.Background(), image, models.TapPoint{})
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			for _, other := range []error{ErrConfig, ErrQuotaExceeded, ErrRecognitionFailure} {
				if other != tt.want && errors.Is(err, other) {
					t.Errorf("Error %v must not also match %v", err, other)
				}
			}
		})
	}
}

func TestParseResultStripsCodeFence(t *testing.T) {
	result, err := parseResult("```json\n" + resultJSON("Lamp") + "\n```")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Name != "Lamp" {
		t.Errorf("Expected Lamp, got %s", result.Name)
	}
}

func TestNormalizeConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 0.5, want: 0.5},
		{in: 1, want: 1},
		{in: 87, want: 0.87},
		{in: -0.2, want: 0},
		{in: 250, want: 1},
	}

	for _, tt := range tests {
		if got := normalizeConfidence(tt.in); got != tt.want {
			t.Errorf("normalizeConfidence(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestIdentifyWithoutOverrides(t *testing.T) {
	backend := &fakeRecognizer{response: resultJSON("white house")}
	client := NewClient(backend, nil)

	result, err := client.Identify(context.Background(), frame, models.TapPoint{X: 50, Y: 50})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Name != "white house" || result.ReferenceImage != "" {
		t.Errorf("Expected raw result, got %+v", result)
	}
	if strings.Contains(backend.last.Prompt, "SPECIAL OVERRIDES") {
		t.Error("Expected no override hints without a table")
	}
}
