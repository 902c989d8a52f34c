package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shelfscout/shelfscout/internal/server"
)

func newScrapeCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one harvest and exit",
		Long: `Scrapes a single URL (or the configured default), ingests the
results into the catalog, and prints a summary.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := server.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := app.Close(); cerr != nil {
					zap.L().Warn("app close failed", zap.Error(cerr))
				}
			}()

			report, err := app.ScrapeOnce(cmd.Context(), url)
			if err != nil {
				return err
			}
			zap.L().Info("scrape finished",
				zap.String("url", report.SourceURL),
				zap.Int("discovered", report.Discovered),
				zap.Int("persisted", report.Persisted),
				zap.Strings("titles", report.Titles))
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "target URL (defaults to scraper.default_url)")
	return cmd
}
