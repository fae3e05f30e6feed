package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"

	"taskdeck/internal/api"
	"taskdeck/internal/logging"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger, err := logging.New(os.Stderr, cfg.Log)
			if err != nil {
				return err
			}

			srv, err := openServer(cfg.Server, logger, false)
			if err != nil {
				return err
			}
			defer srv.Close()

			httpServer := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           api.NewServer(srv.auth, srv.tasks, logger).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			listenErr := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", cfg.Server.Addr, "db", cfg.Server.DBPath)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					listenErr <- err
				}
			}()

			wait := gfshutdown.GracefulShutdown(
				context.Background(),
				shutdownTimeout,
				map[string]gfshutdown.Operation{
					"http-server": func(ctx context.Context) error {
						logger.Info("shutting down")
						return httpServer.Shutdown(ctx)
					},
				},
			)

			select {
			case err := <-listenErr:
				return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
			case code := <-wait:
				if code != 0 {
					return fmt.Errorf("shutdown finished with exit code %d", code)
				}
				logger.Info("shutdown complete")
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
