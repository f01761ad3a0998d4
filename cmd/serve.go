package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cratehq/enrich-cli/internal/batch"
	"github.com/cratehq/enrich-cli/internal/telemetry"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control-plane API and batch worker",
	Long:  "Serves the dashboard-facing HTTP API with Prometheus metrics and runs the batch worker loop in the same process, so one writer owns the store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		reg := prometheus.NewRegistry()
		metrics := telemetry.NewMetrics(reg)
		sink := telemetry.Multi(env.Webhook, metrics)

		orch := batch.New(env.Store, env.Pipeline.Run, cfg, sink)

		api := newAPIServer(env.Store, env.Pipeline, orch, sink,
			promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			cfg.Pipeline.ArtistTimeout,
		)

		addr := serveAddr
		if addr == "" {
			addr = cfg.Telemetry.Listen
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           api.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return orch.Work(gctx)
		})
		g.Go(func() error {
			zap.L().Info("starting server", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "listen", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
