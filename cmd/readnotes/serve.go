package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opd-ai/readnotes/srv/api"
	"github.com/opd-ai/readnotes/srv/tlsutil"
)

var (
	serveAddr string
	serveTLS  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the export HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := cfg.Server
		if cmd.Flags().Changed("addr") {
			server.Addr = serveAddr
		}
		if cmd.Flags().Changed("tls") {
			server.TLS = serveTLS
		}

		logger := slog.Default()
		handler := api.NewServer(newCompiler(cfg.Export), server, cfg.Export.OutputDir, api.WithLogger(logger))
		defer handler.Close()

		httpServer := &http.Server{
			Addr:              server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errc := make(chan error, 1)
		go func() {
			logger.Info("server starting", "addr", server.Addr, "tls", server.TLS)
			if server.TLS {
				errc <- tlsutil.ListenAndServeTLS(httpServer, server.CertFile, server.KeyFile)
				return
			}
			errc <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8081", "Listen address")
	serveCmd.Flags().BoolVar(&serveTLS, "tls", false, "Serve HTTPS, generating a self-signed certificate if needed")
}
