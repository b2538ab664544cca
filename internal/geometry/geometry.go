package geometry

import (
	"strconv"

	"github.com/lehigh-university-libraries/tapsight/internal/models"
)

const (
	// DefaultCardWidth is the assumed card width in pixels and the widest a card renders
	DefaultCardWidth = 400.0
	// Margin is the minimum gap kept between the card and a viewport edge
	Margin = 20.0
	// MaxViewportFraction caps the rendered card width relative to the viewport
	MaxViewportFraction = 0.92

	belowOffset       = "40px"
	aboveOffset       = "-115%"
	tetherBelowLength = 40.0
	tetherAboveLength = 100.0
	tiltFactor        = 0.15
)

// Anchor values for the horizontal translate
const (
	AnchorLeft   = "0%"
	AnchorCenter = "-50%"
	AnchorRight  = "-100%"
)

// Placement holds the CSS-ready transforms for one render of the card
type Placement struct {
	TranslateX string  `json:"translateX" yaml:"translatex"`
	TranslateY string  `json:"translateY" yaml:"translatey"`
	TiltX      float64 `json:"tiltX" yaml:"tiltx"`
	TiltY      float64 `json:"tiltY" yaml:"tilty"`

	TetherTop    string `json:"tetherTop" yaml:"tethertop"`
	TetherBottom string `json:"tetherBottom" yaml:"tetherbottom"`
	TetherHeight string `json:"tetherHeight" yaml:"tetherheight"`
	// TetherDown is true when the card sits below the tap and the line hangs downward
	TetherDown bool `json:"tetherDown" yaml:"tetherdown"`

	// CardWidth is the width actually rendered, in pixels
	CardWidth float64 `json:"cardWidth" yaml:"cardwidth"`
}

// RenderedWidth returns the card width capped to min(92% of viewport, cardWidth, 400px).
// A non-positive cardWidth selects DefaultCardWidth.
func RenderedWidth(viewportWidth, cardWidth float64) float64 {
	if cardWidth <= 0 || cardWidth > DefaultCardWidth {
		cardWidth = DefaultCardWidth
	}
	if viewportWidth > 0 {
		if limit := viewportWidth * MaxViewportFraction; limit < cardWidth {
			return limit
		}
	}
	return cardWidth
}

// Compute resolves the card placement for a tap
func Compute(tap models.TapPoint, viewport models.Viewport, cardWidth float64) Placement {
	tap = tap.Clamp()
	width := RenderedWidth(viewport.Width, cardWidth)

	p := Placement{
		TranslateX: horizontalAnchor(tap.X, viewport.Width, width),
		TiltX:      (tap.Y - 50) * tiltFactor,
		TiltY:      (tap.X - 50) * -tiltFactor,
		CardWidth:  width,
	}

	// Taps in the upper half open the card below them.
	if tap.Y < 50 {
		p.TranslateY = belowOffset
		p.TetherDown = true
		p.TetherTop = percent(tap.Y)
		p.TetherBottom = "auto"
		p.TetherHeight = pixels(tetherBelowLength)
	} else {
		p.TranslateY = aboveOffset
		p.TetherTop = "auto"
		p.TetherBottom = percent(100 - tap.Y)
		p.TetherHeight = pixels(tetherAboveLength)
	}

	return p
}

// horizontalAnchor keeps the card inside the viewport. When the viewport is
// too narrow for either side to fit, the right-edge anchor wins.
func horizontalAnchor(x, viewportWidth, cardWidth float64) string {
	pixelX := x * viewportWidth / 100
	clearance := cardWidth/2 + Margin

	anchor := AnchorCenter
	if pixelX < clearance {
		anchor = AnchorLeft
	}
	if pixelX > viewportWidth-clearance {
		anchor = AnchorRight
	}
	return anchor
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

func pixels(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
