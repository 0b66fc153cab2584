package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"tuckshop/internal/config"
	httpapi "tuckshop/internal/http"
	"tuckshop/internal/notify"
	"tuckshop/internal/repository"
	"tuckshop/internal/service"

	_ "tuckshop/docs"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.Load()

	var (
		users    repository.UserRepository
		products repository.ProductRepository
		orders   repository.OrderRepository
		resets   repository.PasswordResetRepository
	)
	if cfg.DBPath != "" {
		store, err := repository.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening database")
		}
		defer store.Close()
		users = repository.NewSQLiteUsers(store)
		products = store
		orders = repository.NewSQLiteOrders(store)
		resets = repository.NewSQLiteResets(store)
		logger.Info().Str("path", cfg.DBPath).Msg("using sqlite store")
	} else {
		store := repository.NewMemoryStore()
		users = repository.NewMemoryUsers(store)
		products = store
		orders = repository.NewMemoryOrders(store)
		resets = repository.NewMemoryResets(store)
		logger.Warn().Msg("DB_PATH not set; using in-memory store, data will not survive a restart")
	}

	var mailer notify.Mailer
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.PublicBaseURL)
	} else {
		mailer = notify.NewLogMailer(logger, cfg.PublicBaseURL)
		logger.Warn().Msg("SMTP_HOST not set; email is logged instead of delivered")
	}

	authSvc := service.NewAuthService(users, mailer, logger, cfg.JWTSecret)
	catalogSvc := service.NewCatalogService(products)
	orderSvc := service.NewOrderService(products, orders, mailer, logger, cfg.StrictStock)
	passwordSvc := service.NewPasswordService(users, resets, mailer, logger)

	// Expired reset tokens are also rejected at use time; the sweep just
	// bounds table growth.
	sched := cron.New()
	if _, err := sched.AddFunc("@hourly", func() {
		n, err := passwordSvc.PurgeExpired(context.Background())
		if err != nil {
			logger.Error().Err(err).Msg("reset token purge failed")
			return
		}
		if n > 0 {
			logger.Info().Int64("deleted", n).Msg("purged expired reset tokens")
		}
	}); err != nil {
		logger.Fatal().Err(err).Msg("scheduling reset token purge")
	}
	sched.Start()
	defer sched.Stop()

	srv := httpapi.NewServer(authSvc, catalogSvc, orderSvc, passwordSvc, logger)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
