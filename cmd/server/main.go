package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/zenith-cms/config"
	"github.com/d60-Lab/zenith-cms/internal/api/handler"
	"github.com/d60-Lab/zenith-cms/internal/api/router"
	"github.com/d60-Lab/zenith-cms/internal/repository"
	"github.com/d60-Lab/zenith-cms/internal/service"
	"github.com/d60-Lab/zenith-cms/internal/web"
	"github.com/d60-Lab/zenith-cms/pkg/errreport"
	"github.com/d60-Lab/zenith-cms/pkg/logger"
	"github.com/d60-Lab/zenith-cms/pkg/tracing"
)

// @title Zenith CMS API
// @version 1.0
// @description 博客文章的增删改查接口
// @BasePath /
func main() {
	if err := run(); err != nil {
		logger.Error("server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if _, err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flush, err := errreport.Init(cfg.Sentry)
	if err != nil {
		return err
	}
	defer flush()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}

	repo, closeRepo, err := repository.OpenCached(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("storage ready", zap.String("driver", cfg.Database.Driver))

	templates, err := web.NewTemplates()
	if err != nil {
		return err
	}
	postService := service.NewPostService(repo)
	h := handler.NewHandler(postService, handler.WithErrorDetails(cfg.Server.ExposeErrorDetails))
	engine := router.Setup(cfg, h, web.NewPages(templates, postService))

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: engine,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			_ = closeRepo(context.Background())
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := closeRepo(shutdownCtx); err != nil {
		logger.Warn("close storage", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
	return nil
}
