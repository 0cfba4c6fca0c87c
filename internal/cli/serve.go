package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/quotawatch/quotawatch/internal/metrics"
	"github.com/quotawatch/quotawatch/internal/scheduler"
	"github.com/quotawatch/quotawatch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic evaluation loop and HTTP API",
	Long: `Run evaluation passes at the configured check interval and serve the
latest snapshot, history, alerts and Prometheus metrics over HTTP.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	runner, store, err := initRunner(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runner.SetObserver(metrics.New(prometheus.DefaultRegisterer))

	apiServer := server.NewServer(store, runner, cfg.Monitor.HistoryLimit, logger)

	readTimeout, _ := time.ParseDuration(cfg.Server.ReadTimeout)
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout, _ := time.ParseDuration(cfg.Server.WriteTimeout)
	if writeTimeout == 0 {
		writeTimeout = 60 * time.Second
	}

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(runner, cfg.CheckInterval(), logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("quotawatch started",
			"listen", cfg.Server.Listen,
			"check_interval", cfg.CheckInterval().String(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := sched.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", "error", err)
		return err
	}
	return nil
}
