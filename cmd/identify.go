package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/tapsight/internal/geometry"
	"github.com/lehigh-university-libraries/tapsight/internal/images"
	"github.com/lehigh-university-libraries/tapsight/internal/models"
	"github.com/lehigh-university-libraries/tapsight/internal/overlay"
	"github.com/lehigh-university-libraries/tapsight/internal/pipeline"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// identifyOutput is the YAML report printed by identify
type identifyOutput struct {
	SessionID    string              `yaml:"session_id"`
	Status       string              `yaml:"status"`
	Failure      string              `yaml:"failure,omitempty"`
	Error        string              `yaml:"error,omitempty"`
	Name         string              `yaml:"name,omitempty"`
	Category     string              `yaml:"category,omitempty"`
	Description  string              `yaml:"description,omitempty"`
	FunFact      string              `yaml:"fun_fact,omitempty"`
	Confidence   float64             `yaml:"confidence,omitempty"`
	WeatherFacts string              `yaml:"weather_facts,omitempty"`
	Override     string              `yaml:"override,omitempty"`
	Image        string              `yaml:"image"`
	Placement    *geometry.Placement `yaml:"placement,omitempty"`
}

func newIdentifyCmd(a *app) *cobra.Command {
	var x, y, width, height float64
	var imageOut string
	var narrate bool

	cmd := &cobra.Command{
		Use:   "identify <image-path-or-url>",
		Short: "Identify the object at a tap point in one image",
		Long: `Runs one tap session against an image file or URL and prints the result
as YAML: the recognized object, the illustration outcome and, when a viewport
is given, where the info card would be placed.`,
		Example: `  # Identify whatever is in the middle of the frame
  tapsight identify frame.jpg

  # Tap near the top-left of a 1100x800 viewport and save the illustration
  tapsight identify frame.jpg --x 10 --y 30 --width 1100 --height 800 --image-out card.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipeline.New(a.cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := p.Close(); err != nil {
					slog.Error("Failed to flush journal", "err", err)
				}
			}()

			frame, err := images.NewFetcher().Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			p.Controller.Open(frame.Encoded(), models.TapPoint{X: x, Y: y})
			p.Controller.Wait()

			session, ok := p.Controller.Current()
			if !ok {
				return fmt.Errorf("session was closed before it settled")
			}

			out := buildIdentifyOutput(session)
			if width > 0 {
				placement := geometry.Compute(session.Tap, models.Viewport{Width: width, Height: height}, a.cfg.Overlay.CardWidth)
				out.Placement = &placement
			}

			if imageOut != "" && session.Visual.IsImage() {
				if err := saveImage(session.Visual.URI, imageOut); err != nil {
					return err
				}
				out.Image = imageOut
			}

			if err := writeYAML(cmd.OutOrStdout(), out); err != nil {
				return err
			}

			if narrate && session.Result != nil {
				if err := p.Speech.Narrate(cmd.Context(), session.Result.Description); err != nil {
					slog.Warn("TTS error", "err", err)
				}
			}

			if session.Status == overlay.StatusFailed {
				return fmt.Errorf("recognition failed: %s", session.Failure)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&x, "x", 50, "Tap x position, percent of viewport width")
	cmd.Flags().Float64Var(&y, "y", 50, "Tap y position, percent of viewport height")
	cmd.Flags().Float64Var(&width, "width", 0, "Viewport width in pixels; enables placement output")
	cmd.Flags().Float64Var(&height, "height", 0, "Viewport height in pixels")
	cmd.Flags().StringVar(&imageOut, "image-out", "", "Write the generated illustration to this file")
	cmd.Flags().BoolVar(&narrate, "speak", false, "Narrate the description after identifying")

	return cmd
}

func buildIdentifyOutput(s overlay.Session) identifyOutput {
	out := identifyOutput{
		SessionID: s.ID,
		Status:    s.Status.String(),
		Failure:   string(s.Failure),
		Error:     s.Error,
	}
	if r := s.Result; r != nil {
		out.Name = r.Name
		out.Category = r.Category
		out.Description = r.Description
		out.FunFact = r.FunFact
		out.Confidence = r.Confidence
		out.WeatherFacts = r.WeatherFacts
		out.Override = r.Override
	}

	switch {
	case s.Result != nil && s.Result.ReferenceImage != "":
		out.Image = s.Result.ReferenceImage
	case s.Visual.IsImage():
		out.Image = "generated"
	default:
		out.Image = s.ImageState.String()
	}
	return out
}

func saveImage(dataURI, path string) error {
	data, _, err := models.EncodedImage{Data: dataURI}.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode illustration: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write illustration: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}
