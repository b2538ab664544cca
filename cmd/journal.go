package cmd

import (
	"github.com/lehigh-university-libraries/tapsight/internal/journal"
	"github.com/spf13/cobra"
)

func newJournalCmd(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print the sighting journal as YAML",
		Example: `  # Print the configured journal
  tapsight journal

  # Print a specific file
  tapsight journal --path ./archive/sightings.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = a.cfg.Journal.Path
			}

			sightings, err := journal.Read(path)
			if err != nil {
				return err
			}
			if sightings == nil {
				sightings = []journal.Sighting{}
			}
			return writeYAML(cmd.OutOrStdout(), sightings)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Journal parquet file (default from config)")

	return cmd
}
