package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/reeta-042/salmonella-amr-api/internal/business/sample/predict/services"
	"github.com/reeta-042/salmonella-amr-api/internal/worker"
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
	if err := cfg.ValidateWorker(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	// 2. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()
	zapLogger.Infof(ctx, "[Main] Config loaded: app=%s, env=%s, workers=%d", cfg.App.Name, cfg.App.Env, len(cfg.Workers))

	// 3. 加载模板与模型（只加载一次，所有 worker 共享）
	handler, err := services.BuildCompositeHandler(cfg.Engine, zapLogger)
	if err != nil {
		zapLogger.Errorf(ctx, "[Main] Build prediction engine failed: %v", err)
		os.Exit(1)
	}
	zapLogger.Infof(ctx, "[Main] Prediction engine ready: antibiotics=%v", handler.Antibiotics())

	// 4. 创建 Manager
	mgr, err := worker.NewManagerInstance(cfg, handler, zapLogger)
	if err != nil {
		zapLogger.Errorf(ctx, "[Main] Create manager failed: %v", err)
		os.Exit(1)
	}

	// 5. 启动 Manager
	errCh := make(chan error, 1)
	go func() {
		errCh <- mgr.Start()
	}()

	zapLogger.Infof(ctx, "[Main] Worker started, press Ctrl+C to shutdown")

	// 6. 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLogger.Infof(ctx, "[Main] Received signal %v, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			zapLogger.Errorf(ctx, "[Main] Manager start failed: %v", err)
			mgr.Shutdown()
			os.Exit(1)
		}
		<-sigCh
	}

	// 7. 优雅关闭 Manager
	mgr.Shutdown()
	zapLogger.Infof(ctx, "[Main] Worker exited gracefully, stats=%+v", mgr.Stats())
}
