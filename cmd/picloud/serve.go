package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/picloud/picloud"
	"github.com/picloud/picloud/internal/presentation/tui"
	httpAdapter "github.com/picloud/picloud/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Opens the store (Redis or a data path when configured, memory otherwise), serves it over
HTTP and flushes snapshots periodically until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		app, err := picloud.Open(ctx, cfg, picloud.WithLogger(logger), picloud.WithRegisterer(reg))
		if err != nil {
			return err
		}
		defer app.Close()

		server := httpAdapter.NewServer(app.Store,
			httpAdapter.WithRecorder(app.Recorder),
			httpAdapter.WithGatherer(reg),
			httpAdapter.WithMediaRoot(cfg.MediaPath),
			httpAdapter.WithVersion(picloud.Version),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithAuthSecret([]byte(cfg.AuthSecret)),
		)
		defer server.Close()

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		tui.PrintBanner(cmd.ErrOrStderr(), picloud.Version)
		logger.Info("Starting server", "addr", srv.Addr, "media", cfg.MediaPath)

		// The flusher outlives the server so its final flush sees drained requests.
		flushCtx, stopFlush := context.WithCancel(context.WithoutCancel(ctx))
		defer stopFlush()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			return app.Flusher().Run(flushCtx)
		})
		g.Go(func() error {
			<-gctx.Done()
			defer stopFlush()
			logger.Info("Shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				return srv.Close()
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on; overrides the config")
}
