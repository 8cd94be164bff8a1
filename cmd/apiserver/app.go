package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reeta-042/salmonella-amr-api/internal/app/consumer"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/modules/mdprediction"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/repo/rpprediction"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/services/svcallback"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/services/svprediction"
	"github.com/reeta-042/salmonella-amr-api/internal/app/server/handlers/prediction"
	"github.com/reeta-042/salmonella-amr-api/internal/app/server/routers"
	"github.com/reeta-042/salmonella-amr-api/pkg/config"
	"github.com/reeta-042/salmonella-amr-api/pkg/infra/mysql"
	"github.com/reeta-042/salmonella-amr-api/pkg/infra/redis"
	"github.com/reeta-042/salmonella-amr-api/pkg/lmstfy"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// App apiserver 运行所需的组件
type App struct {
	Engine           *gin.Engine
	CallbackConsumer *consumer.CallbackConsumer
}

// InitializeApp 按依赖顺序组装 apiserver
func InitializeApp(cfg *config.Config, log logger.Logger) (*App, func(), error) {
	ctx := context.Background()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// 1. 基础设施
	var repo rpprediction.PredictionRepository
	if cfg.MySQL.DSN != "" {
		db, err := mysql.Open(cfg.MySQL.DSN)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { _ = mysql.Close(db) })
		if err := mysql.Migrate(db); err != nil {
			cleanup()
			return nil, func() {}, err
		}
		repo = rpprediction.NewPredictionRepository(db)
		log.Infof(ctx, "[App] Database connected")
	} else {
		repo = rpprediction.NewMemoryRepository()
		log.Warnf(ctx, "[App] mysql.dsn is empty, predictions are kept in memory")
	}

	pubsub, err := redis.NewPubSub(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	closers = append(closers, func() { _ = pubsub.Close() })
	log.Infof(ctx, "[App] Redis connected")

	lmstfyClient, err := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	// 2. Module / Service
	module := mdprediction.NewPredictionModule(lmstfyClient, pubsub, cfg.Lmstfy.Queue)
	predictionService := svprediction.NewPredictionService(repo, module, cfg.Server.MaxWait, log)
	callbackService := svcallback.NewCallbackService(repo, module, log)

	// 3. HTTP 与回调消费者
	engine := routers.SetupRoutes(prediction.NewPredictionHandler(predictionService, log), log)
	callbackConsumer := consumer.NewCallbackConsumer(lmstfyClient, callbackService, &consumer.Config{
		QueueName:    cfg.Lmstfy.CallbackQueue,
		Timeout:      3 * time.Second,
		TTR:          cfg.Server.CallbackTTR,
		PollInterval: time.Second,
	}, log)

	return &App{Engine: engine, CallbackConsumer: callbackConsumer}, cleanup, nil
}
