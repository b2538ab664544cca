package geometry

import (
	"math"
	"testing"

	"github.com/lehigh-university-libraries/tapsight/internal/models"
)

func TestComputeHorizontalAnchor(t *testing.T) {
	// 1100px wide: the 220px clearance (200 + 20 margin) lands exactly on 20% and 80%.
	viewport := models.Viewport{Width: 1100, Height: 800}

	for x := 0.0; x < 20; x += 0.5 {
		if got := Compute(models.TapPoint{X: x, Y: 60}, viewport, 400).TranslateX; got != AnchorLeft {
			t.Errorf("x=%v: expected %s, got %s", x, AnchorLeft, got)
		}
	}
	for x := 20.0; x <= 80; x += 0.5 {
		if got := Compute(models.TapPoint{X: x, Y: 60}, viewport, 400).TranslateX; got != AnchorCenter {
			t.Errorf("x=%v: expected %s, got %s", x, AnchorCenter, got)
		}
	}
	for x := 80.5; x <= 100; x += 0.5 {
		if got := Compute(models.TapPoint{X: x, Y: 60}, viewport, 400).TranslateX; got != AnchorRight {
			t.Errorf("x=%v: expected %s, got %s", x, AnchorRight, got)
		}
	}
}

func TestComputeVerticalAnchor(t *testing.T) {
	viewport := models.Viewport{Width: 1200, Height: 800}

	for y := 0.0; y < 50; y += 2.5 {
		p := Compute(models.TapPoint{X: 50, Y: y}, viewport, 400)
		if !p.TetherDown || p.TetherHeight != "40px" || p.TranslateY != "40px" {
			t.Errorf("y=%v: expected downward 40px tether, got %+v", y, p)
		}
		if p.TetherBottom != "auto" {
			t.Errorf("y=%v: expected tether anchored by top, got bottom %s", y, p.TetherBottom)
		}
	}
	for y := 50.0; y <= 100; y += 2.5 {
		p := Compute(models.TapPoint{X: 50, Y: y}, viewport, 400)
		if p.TetherDown || p.TetherHeight != "100px" || p.TranslateY != "-115%" {
			t.Errorf("y=%v: expected upward 100px tether, got %+v", y, p)
		}
		if p.TetherTop != "auto" {
			t.Errorf("y=%v: expected tether anchored by bottom, got top %s", y, p.TetherTop)
		}
	}
}

func TestComputeScenarios(t *testing.T) {
	tests := []struct {
		name         string
		tap          models.TapPoint
		viewport     models.Viewport
		cardWidth    float64
		translateX   string
		translateY   string
		tetherTop    string
		tetherBottom string
		tetherHeight string
		tiltX        float64
		tiltY        float64
	}{
		{
			name:         "upper left tap on a phone",
			tap:          models.TapPoint{X: 10, Y: 30},
			viewport:     models.Viewport{Width: 375, Height: 800},
			cardWidth:    400,
			translateX:   "0%",
			translateY:   "40px",
			tetherTop:    "30%",
			tetherBottom: "auto",
			tetherHeight: "40px",
			tiltX:        -3,
			tiltY:        6,
		},
		{
			name:         "lower left tap on a phone",
			tap:          models.TapPoint{X: 10, Y: 70},
			viewport:     models.Viewport{Width: 375, Height: 800},
			cardWidth:    400,
			translateX:   "0%",
			translateY:   "-115%",
			tetherTop:    "auto",
			tetherBottom: "30%",
			tetherHeight: "100px",
			tiltX:        3,
			tiltY:        6,
		},
		{
			name:         "centered tap on desktop",
			tap:          models.TapPoint{X: 50, Y: 50},
			viewport:     models.Viewport{Width: 1920, Height: 1080},
			cardWidth:    0,
			translateX:   "-50%",
			translateY:   "-115%",
			tetherTop:    "auto",
			tetherBottom: "50%",
			tetherHeight: "100px",
		},
		{
			name:         "right edge tap",
			tap:          models.TapPoint{X: 95, Y: 12.5},
			viewport:     models.Viewport{Width: 1280, Height: 720},
			cardWidth:    400,
			translateX:   "-100%",
			translateY:   "40px",
			tetherTop:    "12.5%",
			tetherBottom: "auto",
			tetherHeight: "40px",
			tiltX:        -5.625,
			tiltY:        -6.75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Compute(tt.tap, tt.viewport, tt.cardWidth)
			if p.TranslateX != tt.translateX {
				t.Errorf("Expected translateX %s, got %s", tt.translateX, p.TranslateX)
			}
			if p.TranslateY != tt.translateY {
				t.Errorf("Expected translateY %s, got %s", tt.translateY, p.TranslateY)
			}
			if p.TetherTop != tt.tetherTop || p.TetherBottom != tt.tetherBottom || p.TetherHeight != tt.tetherHeight {
				t.Errorf("Expected tether %s/%s/%s, got %s/%s/%s",
					tt.tetherTop, tt.tetherBottom, tt.tetherHeight, p.TetherTop, p.TetherBottom, p.TetherHeight)
			}
			if math.Abs(p.TiltX-tt.tiltX) > 1e-9 || math.Abs(p.TiltY-tt.tiltY) > 1e-9 {
				t.Errorf("Expected tilt %v/%v, got %v/%v", tt.tiltX, tt.tiltY, p.TiltX, p.TiltY)
			}
		})
	}
}

func TestRenderedWidth(t *testing.T) {
	tests := []struct {
		name      string
		viewport  float64
		cardWidth float64
		expected  float64
	}{
		{name: "desktop keeps card width", viewport: 1920, cardWidth: 400, expected: 400},
		{name: "phone caps at 92 percent", viewport: 375, cardWidth: 400, expected: 345},
		{name: "zero selects default", viewport: 1920, cardWidth: 0, expected: DefaultCardWidth},
		{name: "unknown viewport", viewport: 0, cardWidth: 300, expected: 300},
		{name: "oversized card capped at 400", viewport: 1920, cardWidth: 600, expected: 400},
		{name: "oversized card on phone", viewport: 375, cardWidth: 600, expected: 345},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderedWidth(tt.viewport, tt.cardWidth); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestComputeIsPure(t *testing.T) {
	tap := models.TapPoint{X: 33, Y: 66}
	viewport := models.Viewport{Width: 800, Height: 600}

	first := Compute(tap, viewport, 400)
	second := Compute(tap, viewport, 400)
	if first != second {
		t.Errorf("Expected identical placements, got %+v and %+v", first, second)
	}

	// Placement follows the viewport it is given; a resize recomputes.
	narrow := Compute(tap, models.Viewport{Width: 320, Height: 600}, 400)
	if narrow.CardWidth == first.CardWidth {
		t.Errorf("Expected resized viewport to change card width, got %v", narrow.CardWidth)
	}
}

func TestComputeCapsConfiguredCardWidth(t *testing.T) {
	p := Compute(models.TapPoint{X: 50, Y: 60}, models.Viewport{Width: 1920, Height: 1080}, 600)
	if p.CardWidth != DefaultCardWidth {
		t.Errorf("Expected card width %v, got %v", DefaultCardWidth, p.CardWidth)
	}
	if p.TranslateX != AnchorCenter {
		t.Errorf("Expected centered card, got %s", p.TranslateX)
	}
}

func TestComputeClampsOutOfRangeTap(t *testing.T) {
	p := Compute(models.TapPoint{X: -10, Y: 140}, models.Viewport{Width: 1000, Height: 1000}, 400)
	if p.TranslateX != AnchorLeft {
		t.Errorf("Expected %s, got %s", AnchorLeft, p.TranslateX)
	}
	if p.TetherBottom != "0%" {
		t.Errorf("Expected tether bottom 0%%, got %s", p.TetherBottom)
	}
}
