package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/digital-twin/internal/api"
	"github.com/Veraticus/digital-twin/internal/certs"
	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/config"
	"github.com/Veraticus/digital-twin/internal/simulation"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulator over HTTP",
		Long: `Start the HTTP API. Description parsing is enabled when an API key for the
configured language model provider is available.

Endpoints:
  GET  /health
  GET  /metrics
  GET  /api/catalog
  POST /api/parse
  POST /api/simulate
  GET  /api/runs/{run_id}/twins/{customer_id}`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	v := viper.GetViper()

	engine, cleanup, err := newEngine(simulation.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer cleanup()

	opts := []api.Option{
		api.WithLogger(slog.Default()),
		api.WithDefaults(config.LoadSimulation(v)),
	}
	parser, err := newParser()
	switch {
	case err == nil:
		defer parser.Close()
		opts = append(opts, api.WithParser(parser))
	case errors.Is(err, common.ErrMissingConfig):
		slog.Warn("Campaign parsing disabled", "error", err)
	default:
		return err
	}

	serverCfg := config.LoadServer(v)
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           api.NewServer(engine, opts...).Routes(),
		ReadTimeout:       serverCfg.ReadTimeout,
		ReadHeaderTimeout: serverCfg.ReadTimeout,
		WriteTimeout:      serverCfg.WriteTimeout,
	}

	if serverCfg.TLS {
		tlsCfg, err := serverTLS(serverCfg.Addr)
		if err != nil {
			return err
		}
		srv.TLSConfig = tlsCfg
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", serverCfg.Addr, "tls", serverCfg.TLS)
		if serverCfg.TLS {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// serverTLS loads or creates the certificate under the config directory,
// covering the listen host when one is given.
func serverTLS(addr string) (*tls.Config, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}

	var hosts []string
	if host, _, splitErr := net.SplitHostPort(addr); splitErr == nil && host != "" {
		hosts = append(hosts, host)
	}

	tlsCfg, err := certs.NewStore(filepath.Join(dir, "certs")).TLSConfig(hosts...)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare TLS certificate: %w", err)
	}
	return tlsCfg, nil
}
