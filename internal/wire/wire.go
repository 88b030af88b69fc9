//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"tattoo-ai-api/internal/config"
	"tattoo-ai-api/internal/interfaces/http/handler"
	"tattoo-ai-api/internal/interfaces/http/router"
)

// InitializeApp 初始化 API 网关
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		EngineSet,
		GatewayDataSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeWorker 初始化 record-worker，PostgreSQL 与 Redis 均为必需
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		ProvideRedisClient,
		ProvidePromptRecordRepository,
		ProvideCache,
		ProvideRecordConsumer,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// EngineSet 规则表与三个引擎
var EngineSet = wire.NewSet(
	ProvideCatalogStore,
	ProvideCatalogWatcher,
	ProvideStageConfig,
	ProvidePipeline,
	ProvideTransferEngine,
)

// GatewayDataSet 网关侧可选的存储、缓存与记录投递
var GatewayDataSet = wire.NewSet(
	ProvidePostgresClientOptional,
	ProvideRedisClientOptional,
	ProvidePromptRecordRepository,
	ProvideCache,
	ProvideHistoryReader,
	ProvideMessagingProducer,
	ProvideRecordSink,
	ProvideNotifier,
)

// RouterSet 服务、处理器与路由
var RouterSet = wire.NewSet(
	ProvideServiceOptions,
	ProvideDesignService,
	ProvideRateLimiter,
	ProvideHealthHandler,
	handler.NewPromptHandler,
	handler.NewStyleHandler,
	handler.NewModelHandler,
	handler.NewCatalogHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
