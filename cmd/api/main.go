package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trade-reporter/internal/config"
	"trade-reporter/internal/db"
	"trade-reporter/internal/health"
	"trade-reporter/internal/httpserver"
	"trade-reporter/internal/logging"
	"trade-reporter/internal/notify"
	"trade-reporter/internal/orders"
	"trade-reporter/internal/pipeline"
	"trade-reporter/internal/report"
	"trade-reporter/internal/reports"
	"trade-reporter/internal/tracing"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := tracing.Init(ctx, os.Stdout, version)
		if err != nil {
			logger.Warn("tracing disabled", zap.Error(err))
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(sctx)
			}()
		}
	}

	conn := db.NewConnector(cfg.DBDSN, cfg.DBRetryInterval, logger)
	connected := make(chan struct{})
	defer func() {
		stop()
		<-connected
		conn.Close()
	}()
	go func() {
		defer close(connected)
		if err := conn.Connect(ctx); err != nil {
			logger.Warn("store connect aborted", zap.Error(err))
		}
	}()

	telegramMode := "disabled"
	notifier := notify.New(notify.TelegramConfig{
		BotToken:   cfg.TelegramBotToken,
		ChatID:     cfg.TelegramChatID,
		APIBaseURL: cfg.TelegramAPIBase,
		Timeout:    cfg.TelegramTimeout,
	})
	if _, ok := notifier.(*notify.Telegram); ok {
		telegramMode = "telegram"
	}

	store := orders.NewStore(conn, cfg.DBSchema)
	sink := report.NewSink(cfg.ReportRoot)
	runner := pipeline.Default(store, sink, notifier, logger)

	limiter := httpserver.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				limiter.Prune()
			}
		}
	}()

	router := httpserver.NewRouter(httpserver.RouterDeps{
		ReportsHandler: reports.NewHandler(runner, conn, cfg.ReportRoot, cfg.MaxBodyBytes, logger),
		HealthHandler:  health.NewHandler(conn, time.Now(), telegramMode, cfg.HTTPAddr),
		RateLimiter:    limiter,
		Logger:         logger,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("server listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("report_root", cfg.ReportRoot),
		zap.String("telegram", telegramMode))
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
