package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cybergutta/akademitrack-agent/internal/handler"
	"github.com/cybergutta/akademitrack-agent/internal/iskole"
	"github.com/cybergutta/akademitrack-agent/internal/repository"
	"github.com/cybergutta/akademitrack-agent/internal/service"
	"github.com/cybergutta/akademitrack-agent/pkg/config"
	"github.com/cybergutta/akademitrack-agent/pkg/credstore"
	"github.com/cybergutta/akademitrack-agent/pkg/logger"
	reqidmiddleware "github.com/cybergutta/akademitrack-agent/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := service.SystemClock()
	store := credstore.New(cfg.Auth.KeyringUser, cfg.Storage.DataDir, logr)
	client := iskole.NewClient(iskole.Config{
		BaseURL:     cfg.Portal.BaseURL,
		PublicIPURL: cfg.Portal.PublicIPURL,
		Timeout:     cfg.Portal.Timeout,
	}, logr)

	registry := repository.NewSessionRegistry(cfg.Storage.DataDir, clock, logr)
	history := repository.NewHistoryLog(cfg.Storage.DataDir, logr)

	authSvc := service.NewAuthService(cfg.Auth.HelperCommand, cfg.Auth.HelperTimeout, store, logr)
	notifier := service.NewNotificationService(
		[]service.NotificationSink{service.LogSink{Logger: logr}},
		clock,
		service.NotificationServiceConfig{
			Workers:    cfg.Notify.Workers,
			MaxRetries: cfg.Notify.MaxRetries,
			RetryDelay: cfg.Notify.RetryDelay,
			Cooldown:   cfg.Automation.NotifyCooldown,
		},
		logr,
	)
	notifier.Start(ctx)
	defer notifier.Stop()

	automation := service.NewAutomationService(
		client, client, authSvc,
		registry, history,
		service.NewOverlapResolver(logr),
		notifier,
		service.NewMetricsService(),
		clock,
		cfg.Automation,
		logr,
	)
	exportSvc := service.NewExportService(history, logr)

	if !client.Probe(ctx) {
		logr.Sugar().Warnw("portal unreachable at startup, continuing anyway")
	}

	if cfg.Automation.AutoStart {
		if err := automation.Start(ctx); err != nil {
			logr.Sugar().Warnw("autostart failed", "error", err)
		}
	}

	automationHandler := handler.NewAutomationHandler(ctx, automation, notifier)
	historyHandler := handler.NewHistoryHandler(history, exportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(automation.Metrics().Handler()))
	r.GET("/status", automationHandler.Status)
	r.POST("/automation/start", automationHandler.Start)
	r.POST("/automation/stop", automationHandler.Stop)
	r.GET("/notifications", automationHandler.Notifications)
	r.GET("/history", historyHandler.List)
	r.GET("/history/export", historyHandler.Export)

	// Loopback only: the control API drives the tray UI on this machine.
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("control api starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("control api failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	_ = automation.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("control api shutdown", "error", err)
	}
}
