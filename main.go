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

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/p1m/productivity-suite/internal/client"
	"github.com/p1m/productivity-suite/internal/config"
	"github.com/p1m/productivity-suite/internal/db"
	"github.com/p1m/productivity-suite/internal/handler"
	"github.com/p1m/productivity-suite/internal/logger"
	"github.com/p1m/productivity-suite/internal/service"
)

// @title Productivity Suite Auth API
// @version 1.0
// @description Authentication and password recovery for the productivity suite.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	// 설정 로드 (JWT_SECRET_KEY 없으면 기동하지 않음)
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(config.LogConfig{})
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.Log)
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB 연결 및 스키마 생성
	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer pool.Close()

	store := db.NewPostgres(pool)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	mailer := client.NewMailClient(cfg.Mail, logger.Component(log, "mail"))
	if !mailer.IsConfigured() {
		log.Warn().Msg("MAIL_API_URL not set, notification mails will only be logged")
	}

	authService, err := service.NewAuthService(store, service.NewBcryptHasher(), mailer, cfg.Auth, logger.Component(log, "auth"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init auth service")
	}

	router, err := handler.NewRouter(cfg.Server, authService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		authService.RunJanitor(gctx, cfg.Auth.JanitorInterval)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}

	// 발송 중인 메일이 끝날 때까지 대기
	authService.Drain()
}
