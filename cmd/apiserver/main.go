package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reeta-042/salmonella-amr-api/pkg/config"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

var (
	configPath = flag.String("config", "./config/worker.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. 初始化应用（包含 HTTP Server 和 Consumer）
	app, cleanup, err := InitializeApp(cfg, zapLogger)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	defer cleanup()

	ctx := context.Background()
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: app.Engine,
	}

	// 3. 启动 Consumer
	consumerCtx, cancelConsumer := context.WithCancel(ctx)
	consumerErrChan := make(chan error, 1)
	go func() {
		consumerErrChan <- app.CallbackConsumer.Start(consumerCtx)
	}()

	// 4. 启动 HTTP Server
	serverErrChan := make(chan error, 1)
	go func() {
		zapLogger.Infof(ctx, "[Main] HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	// 5. 优雅停机
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		zapLogger.Infof(ctx, "[Main] Received shutdown signal")
	case err := <-serverErrChan:
		zapLogger.Errorf(ctx, "[Main] HTTP server error: %v", err)
	case err := <-consumerErrChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Errorf(ctx, "[Main] Consumer error: %v", err)
		}
	}

	gracefulShutdown(ctx, server, cancelConsumer, consumerErrChan, zapLogger)
}

// gracefulShutdown 先停消费者，再停 HTTP Server
func gracefulShutdown(ctx context.Context, server *http.Server, cancelConsumer context.CancelFunc, consumerDone <-chan error, log logger.Logger) {
	cancelConsumer()
	select {
	case <-consumerDone:
	case <-time.After(5 * time.Second):
		log.Warnf(ctx, "[Main] Consumer did not stop in time")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf(ctx, "[Main] HTTP server shutdown error: %v", err)
		return
	}
	log.Infof(ctx, "[Main] All services stopped gracefully")
}
