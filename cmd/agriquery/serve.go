package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/agriquery/pkg/api"
	"github.com/hazyhaar/agriquery/pkg/source"
)

func (a *app) service() (*api.Service, error) {
	acquire, err := a.acquire()
	if err != nil {
		return nil, err
	}
	return &api.Service{Engine: a.engine, Acquire: acquire, Sources: a.db, Logger: a.logger}, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve GET /v1/ask?q=, POST /v1/ask, GET /v1/regions and GET /v1/health.
When a source table is configured, dataset locations are also checked
every check interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.service()
			if err != nil {
				return err
			}

			// SIGINT/SIGTERM: graceful shutdown.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if a.db != nil {
				go source.NewChecker(a.db, a.logger, a.cfg.CheckInterval).Start(ctx)
			}

			srv := &http.Server{
				Addr:              a.cfg.Addr,
				Handler:           api.NewRouter(svc),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("agriquery listening", "addr", a.cfg.Addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				return err
			}
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8430)")
	return cmd
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ask and list_regions tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.service()
			if err != nil {
				return err
			}
			return server.ServeStdio(api.NewMCPServer(svc, Version))
		},
	}
}
