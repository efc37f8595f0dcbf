package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nypl/scsbxml/internal/directory"
)

func newBarcodesCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "barcodes",
		Short: "Manage the barcode directory",
	}
	cmd.AddCommand(newBarcodesImportCmd(configPath))
	return cmd
}

func newBarcodesImportCmd(configPath *string) *cobra.Command {
	var store string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a barcode file into a SQL barcode store",
		Long: `Reads "barcode,CC" lines from a .csv or .txt file, or barcode and
customer_code columns from a .parquet file, and upserts them into a SQLite
file or a Postgres database. Later entries for a barcode replace earlier ones.`,
		Example: `  scsbxml barcodes import barcodes.csv --store barcodes.db
  scsbxml barcodes import barcodes.parquet --store postgres://recap@localhost/recap`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if store == "" {
				store = cfg.Barcodes
			}
			if !directory.IsStore(store) {
				return fmt.Errorf("--store must be a .db file or postgres DSN, got %q", store)
			}

			ctx := cmd.Context()
			entries, err := directory.NewLoader(args[0]).Load()
			if err != nil {
				return err
			}

			s, err := directory.OpenStore(ctx, store)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Import(ctx, entries); err != nil {
				return err
			}
			total, err := s.Count(ctx)
			if err != nil {
				return err
			}
			slog.Info("Barcodes imported", "file", args[0], "entries", len(entries), "store_size", total)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d barcodes (%d in store)\n", len(entries), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&store, "store", "", "SQLite file or postgres DSN (default: SCSB_BARCODES)")

	return cmd
}
