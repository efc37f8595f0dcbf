package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nypl/scsbxml/internal/directory"
	"github.com/nypl/scsbxml/internal/handlers"
	"github.com/nypl/scsbxml/internal/metrics"
	"github.com/nypl/scsbxml/internal/sierra"
)

func newServeCmd(configPath *string) *cobra.Command {
	var (
		port     string
		barcodes string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SCSB XML API server",
		Long: `Starts an HTTP server that converts single bibs to SCSB XML on request.

Bibs and items are read from the catalog data API configured with the
SCSB_SIERRA_* variables. Conversion counters are exposed on /metrics.`,
		Example: `  # Start server on default port 8888
  scsbxml serve

  # Start server on custom port with a barcode directory
  scsbxml serve --port 3000 --barcodes barcodes.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if barcodes != "" {
				cfg.Barcodes = barcodes
			}
			if err := cfg.ValidateSierra(); err != nil {
				return err
			}

			ctx := cmd.Context()
			policy, err := cfg.LoadPolicy()
			if err != nil {
				return err
			}
			dir, err := directory.LoadSource(ctx, cfg.Barcodes)
			if err != nil {
				return fmt.Errorf("failed to load barcodes: %w", err)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			collector := metrics.NewCollector(reg)

			handler := handlers.New(handlers.Options{
				Catalog: sierra.NewClient(ctx, sierra.Config{
					BaseURL:      cfg.Sierra.BaseURL,
					ClientID:     cfg.Sierra.ClientID,
					ClientSecret: cfg.Sierra.ClientSecret,
					TokenURL:     cfg.Sierra.TokenURL,
					Timeout:      cfg.Sierra.Timeout,
				}),
				Policy:        policy,
				Directory:     dir,
				InstitutionID: cfg.InstitutionID,
				Reporter:      collector,
			})

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc(handlers.BibsPath, handler.HandleBibs)
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("SCSB XML API available", "addr", addr, "barcodes", dir.Len(), "policy", policy.Version)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&barcodes, "barcodes", "", "Barcode file or store (.csv, .txt, .parquet, .db, postgres DSN)")

	return cmd
}
