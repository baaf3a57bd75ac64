package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/document-intake/internal/bootstrap"
	"github.com/kirillkom/document-intake/internal/config"
	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/infrastructure/notify"
	"github.com/kirillkom/document-intake/internal/observability/logging"
)

// The worker relays notices published by the API to the log sink and
// exports relay metrics.
func main() {
	cfg := config.Load()
	logger := logging.New("intake-relay", cfg.LogLevel, cfg.LogFormat)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relay, err := bootstrap.NewRelay(cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer relay.Close()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", relay.Metrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("relay_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("relay_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	sink := notify.NewLogNotifier(logger)
	logger.Info("relay_subscribed", "subject", cfg.NATSNoticeSubject)
	err = relay.Bus.SubscribeNotices(ctx, func(handlerCtx context.Context, notice domain.Notice) error {
		err := sink.Notify(handlerCtx, notice)
		relay.Metrics.ObserveNotice(notice, time.Now().UTC(), err)
		return err
	})
	if err != nil {
		logger.Error("relay_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
