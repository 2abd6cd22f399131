package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deltaLens/internal/metrics"
	"deltaLens/internal/storage"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the pool snapshot on an interval",
		RunE:  runWatch,
	}
	addRPCFlags(cmd.Flags())
	addStoreFlags(cmd.Flags())
	addLogFlags(cmd.Flags())
	cmd.Flags().String("account", "", "account address (defaults to the session wallet)")
	cmd.Flags().StringSlice("assets", nil, "assets to aggregate, in order (default: all)")
	cmd.Flags().Int("concurrency", 4, "maximum concurrent asset reads")
	cmd.Flags().Duration("interval", 30*time.Second, "refresh interval")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9102)")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Interval <= 0 {
		return errors.New("interval must be positive")
	}

	// The loop runs until interrupted; --timeout bounds each pass instead.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.connect(ctx); err != nil {
		return err
	}
	if err := a.openStore(ctx); err != nil {
		return err
	}

	m := metrics.Default()
	if a.cfg.MetricsAddr != "" {
		server := &http.Server{Addr: a.cfg.MetricsAddr, Handler: metricsMux()}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		a.logger.Info("metrics listening", zap.String("addr", a.cfg.MetricsAddr))
	}

	a.logger.Info("watch start", zap.Duration("interval", a.cfg.Interval))

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		watchPass(ctx, a, m)

		select {
		case <-ctx.Done():
			a.logger.Info("watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func watchPass(ctx context.Context, a *app, m *metrics.Metrics) {
	passCtx := ctx
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		passCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	snapshot, err := refreshPools(passCtx, a, m)
	switch {
	case err == nil:
		a.logger.Debug("watch pass", zap.Uint64("seq", snapshot.Seq))
	case errors.Is(err, storage.ErrStaleSnapshot):
	case ctx.Err() != nil:
	default:
		a.logger.Warn("watch pass failed", zap.Error(err))
	}
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
