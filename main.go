package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/chaos-io/bgremove/config"
	"github.com/chaos-io/bgremove/logger"
	"github.com/chaos-io/bgremove/model"
	"github.com/chaos-io/bgremove/rembg"
	"github.com/chaos-io/bgremove/server"
	"github.com/chaos-io/bgremove/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "bgremove:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, log, newRemover(cfg.Model), (*server.Server).Run)
}

// serve 初始化模型后才开始监听；模型不可用时直接返回，listen 不会被调用
func serve(ctx context.Context, cfg *config.Config, log *zap.Logger, remover rembg.Remover, listen func(*server.Server) error) error {
	holder := model.NewHolder(rembg.NewSegmenter(remover), log)
	if err := holder.Initialize(ctx); err != nil {
		log.Error("Failed to load model", zap.String("backend", cfg.Model.Backend), zap.Error(err))
		return err
	}
	defer holder.Shutdown()

	if cfg.Model.HeartbeatSchedule != "" {
		heartbeat, err := model.NewHeartbeat(holder, cfg.Model.HeartbeatSchedule, cfg.Model.Timeout, log)
		if err != nil {
			return err
		}
		heartbeat.Start()
		defer heartbeat.Stop()
	}

	pool, err := worker.NewPool(cfg.Server.WorkerPoolSize)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, server.NewHandler(holder, pool, log), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Application shutdown complete")
	return nil
}

func newRemover(cfg config.ModelConfig) rembg.Remover {
	switch cfg.Backend {
	case config.BackendCommand:
		return rembg.NewCommandRemover(cfg.Command, rembg.RembgArgs(cfg.Name)...)
	default:
		return rembg.NewHTTPRemover(cfg.URL, cfg.Name, cfg.Timeout)
	}
}
