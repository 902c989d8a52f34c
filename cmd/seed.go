package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shelfscout/shelfscout/internal/seed"
	"github.com/shelfscout/shelfscout/internal/server"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.csv>",
		Short: "Import catalog rows from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer func() {
				if cerr := f.Close(); cerr != nil {
					zap.L().Warn("seed file close failed", zap.Error(cerr))
				}
			}()

			importer := seed.NewImporter(app.Store(), zap.L().Named("seed"))
			count, err := importer.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			zap.L().Info("seed finished", zap.Int("imported", count))
			return nil
		},
	}
}
