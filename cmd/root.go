package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nypl/scsbxml/internal/config"
)

func NewRootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "scsbxml",
		Short: "Export catalog records to ReCAP as SCSB XML",
		Long: `scsbxml converts MARC bibliographic records and their items into the
SCSB XML exchange format used by the ReCAP shared collection.

Records can be converted in bulk from a binary MARC file, or on demand
through an HTTP API backed by the catalog data API.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			if verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newConvertCmd(&configPath))
	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newBarcodesCmd(&configPath))
	cmd.AddCommand(newClassifyCmd(&configPath))

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		slog.Debug("Loaded config file", "path", path)
	}
	return cfg, nil
}
