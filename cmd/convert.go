package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nypl/scsbxml/internal/directory"
	"github.com/nypl/scsbxml/internal/export"
	"github.com/nypl/scsbxml/internal/metrics"
	"github.com/nypl/scsbxml/internal/scsb"
)

func newConvertCmd(configPath *string) *cobra.Command {
	var (
		output       string
		barcodes     string
		fallbackCode string
		policyPath   string
		reportPath   string
		toS3         bool
	)

	cmd := &cobra.Command{
		Use:   "convert <input.mrc>",
		Short: "Convert a binary MARC file to SCSB XML",
		Long: `Reads every record of a binary MARC file and writes one SCSB XML
document holding a bibRecord per record.

Items whose barcode is not in the barcode directory are exported with the
fallback customer code. With --s3 the document is uploaded to the
configured bucket under the --output key.`,
		Example: `  # Convert to a local file
  scsbxml convert records.mrc --output recap.xml --barcodes barcodes.csv

  # Upload to S3 and keep a run report
  scsbxml convert records.mrc --s3 --output exports/recap.xml --report reports/run.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if barcodes != "" {
				cfg.Barcodes = barcodes
			}
			if fallbackCode != "" {
				cfg.FallbackCustomerCode = fallbackCode
			}
			if policyPath != "" {
				cfg.Policy = policyPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			input := args[0]
			if output == "" {
				output = trimExt(filepath.Base(input)) + ".xml"
			}

			policy, err := cfg.LoadPolicy()
			if err != nil {
				return err
			}
			dir, err := directory.LoadSource(ctx, cfg.Barcodes)
			if err != nil {
				return fmt.Errorf("failed to load barcodes: %w", err)
			}

			in, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer in.Close()

			tmp, err := os.CreateTemp("", "scsbxml-*.xml")
			if err != nil {
				return fmt.Errorf("failed to create temp file: %w", err)
			}
			defer os.Remove(tmp.Name())
			defer tmp.Close()

			tally := metrics.NewTally()
			conv := scsb.NewConverter(scsb.Options{
				Policy:               policy,
				Directory:            dir,
				FallbackCustomerCode: cfg.FallbackCustomerCode,
				InstitutionID:        cfg.InstitutionID,
				Reporter:             tally,
			})

			start := time.Now()
			slog.Info("Starting conversion", "input", input, "barcodes", dir.Len(), "policy", policy.Version)
			res, err := export.ConvertStream(ctx, in, conv, tmp)
			if err != nil {
				return fmt.Errorf("conversion stopped after %d records: %w", res.Records, err)
			}
			if _, err := tmp.Seek(0, 0); err != nil {
				return fmt.Errorf("failed to rewind output: %w", err)
			}

			var sink export.Sink = export.FileSink{Dir: filepath.Dir(output)}
			key := filepath.Base(output)
			if toS3 {
				key = filepath.ToSlash(output)
				s3Sink, err := export.NewS3Sink(ctx, export.S3Config{
					Bucket:    cfg.S3.Bucket,
					Region:    cfg.S3.Region,
					Endpoint:  cfg.S3.Endpoint,
					Prefix:    cfg.S3.Prefix,
					PathStyle: cfg.S3.PathStyle,
				})
				if err != nil {
					return err
				}
				sink = s3Sink
			}
			dest, err := sink.Put(ctx, key, tmp)
			if err != nil {
				return err
			}

			snap := tally.Snapshot()
			metrics.PrintSummary(cmd.OutOrStdout(), snap)
			slog.Info("Conversion complete",
				"output", dest,
				"records", res.Records,
				"exported", res.Exported,
				"items", res.Items,
				"failures", len(res.Failures),
				"elapsed", time.Since(start).Round(time.Millisecond))

			if reportPath != "" {
				report := export.NewReport(export.RunConfig{
					Input:                input,
					Output:               dest,
					Barcodes:             cfg.Barcodes,
					FallbackCustomerCode: cfg.FallbackCustomerCode,
					PolicyVersion:        policy.Version,
				}, snap, res.Failures)
				if err := export.WriteReport(reportPath, report); err != nil {
					return err
				}
				slog.Info("Report saved", "path", reportPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, or object key with --s3 (default: <input>.xml)")
	cmd.Flags().StringVar(&barcodes, "barcodes", "", "Barcode file or store (.csv, .txt, .parquet, .db, postgres DSN)")
	cmd.Flags().StringVar(&fallbackCode, "fallback-customer-code", "", "Customer code for barcodes missing from the directory")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Classification policy YAML (default: built-in)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a YAML run report to this path")
	cmd.Flags().BoolVar(&toS3, "s3", false, "Upload the document to the configured S3 bucket")

	return cmd
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
