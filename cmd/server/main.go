package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagedrop/internal/auth"
	"github.com/pagedrop/internal/config"
	"github.com/pagedrop/internal/db"
	"github.com/pagedrop/internal/handler"
	"github.com/pagedrop/internal/logger"
	"github.com/pagedrop/internal/metrics"
	"github.com/pagedrop/internal/router"
	"github.com/pagedrop/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", slog.String("error", err.Error()))
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.UsesDefaultSecrets() {
		logger.Warn("running with default admin password or JWT secret; set ADMIN_PASSWORD and JWT_SECRET")
	}
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	gdb, err := db.Open(cfg.Database, db.WithLogLevel(logger.GormLevel(cfg.LogLevel)))
	if err != nil {
		logger.Fatal("failed to initialize database", slog.String("error", err.Error()))
	}
	defer db.Close(gdb)

	sqlDB, err := gdb.DB()
	if err != nil {
		logger.Fatal("failed to access connection pool", slog.String("error", err.Error()))
	}
	poolStats := metrics.NewPoolStatsCollector(sqlDB)
	poolStats.Start(15 * time.Second)
	defer poolStats.Stop()

	gate, err := auth.NewGate(auth.Config{
		AdminPassword: cfg.AdminPassword,
		SigningKey:    cfg.JWTSecret,
		TTL:           cfg.TokenTTL,
	})
	if err != nil {
		logger.Fatal("failed to initialize auth", slog.String("error", err.Error()))
	}

	store := db.NewPageStore(gdb)
	api := handler.NewAPI(service.NewPageService(store), gate, store)
	r := router.SetupRouter(api, router.Options{
		MaxBodyBytes:   cfg.MaxBodyBytes,
		StaticDir:      cfg.StaticDir,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.ListenAddr),
			slog.String("db_driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to run server", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", slog.String("error", err.Error()))
	}
	logger.Info("server exited")
}
