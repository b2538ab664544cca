package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/tapsight/internal/pipeline"
	"github.com/lehigh-university-libraries/tapsight/internal/speech"
	"github.com/spf13/cobra"
)

func newSpeakCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "speak <text>",
		Short: "Synthesize narration to a WAV file",
		Long: `Sends text to the configured speech backend, decodes the returned
16-bit PCM and writes it as a WAV file.`,
		Example: `  tapsight speak "The White House, seat of the executive branch" --out narration.wav`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("text is required")
			}

			backend, err := pipeline.NewBackend(a.cfg)
			if err != nil {
				return err
			}
			client := speech.NewClient(backend, nil, pipeline.Voice(a.cfg))

			buf, err := client.Synthesize(cmd.Context(), text)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()

			if err := speech.WriteWAV(f, buf); err != nil {
				return err
			}

			slog.Info("Narration written", "path", out, "duration", buf.Duration(), "sample_rate", buf.SampleRate)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "narration.wav", "Output WAV file")

	return cmd
}
