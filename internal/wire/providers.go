// Package wire 提供依赖注入配置
package wire

import (
	stderrors "errors"
	"time"

	"tattoo-ai-api/internal/application/design"
	"tattoo-ai-api/internal/config"
	"tattoo-ai-api/internal/domain/repository"
	"tattoo-ai-api/internal/infrastructure/messaging"
	"tattoo-ai-api/internal/infrastructure/persistence/postgres"
	"tattoo-ai-api/internal/infrastructure/persistence/redis"
	"tattoo-ai-api/internal/interfaces/http/handler"
	"tattoo-ai-api/internal/interfaces/http/middleware"
	"tattoo-ai-api/internal/interfaces/http/router"
	"tattoo-ai-api/internal/workflow/catalog"
	"tattoo-ai-api/internal/workflow/pipeline"
	"tattoo-ai-api/internal/workflow/transfer"
	"tattoo-ai-api/pkg/errors"
)

// RecordEventsChannel record.logged 事件的 Redis 频道
const RecordEventsChannel = "events:prompt:records"

const recordSinkTimeout = 3 * time.Second

// App API 网关运行所需的组件
type App struct {
	Router   *router.Router
	Store    *catalog.Store
	Watcher  *catalog.Watcher
	Sink     design.RecordSink
	Notifier *design.Notifier
}

// Drain 等待已提交的记录写完
func (a *App) Drain() {
	if w, ok := a.Sink.(interface{ Wait() }); ok {
		w.Wait()
	}
}

// Worker record-worker 运行所需的组件
type Worker struct {
	Consumer *messaging.Consumer
	Repo     repository.PromptRecordRepository
	Cache    *redis.Cache
}

// ProvideCatalogStore 加载规则表；配置了外部文件时以其为准
func ProvideCatalogStore(cfg *config.Config) (*catalog.Store, error) {
	var (
		tables *catalog.Tables
		err    error
	)
	if cfg.Engine.RulesFile != "" {
		tables, err = catalog.LoadFile(cfg.Engine.RulesFile)
	} else {
		tables, err = catalog.LoadDefault()
	}
	if err != nil {
		return nil, errors.ErrRulesLoadFailed.WithDetail(err.Error()).WithError(err)
	}
	return catalog.NewStore(tables), nil
}

// ProvideCatalogWatcher 只有外部规则表且开启 watch_rules 时才监听
func ProvideCatalogWatcher(cfg *config.Config, store *catalog.Store) (*catalog.Watcher, func(), error) {
	if !cfg.Engine.WatchRules || cfg.Engine.RulesFile == "" {
		return nil, func() {}, nil
	}
	w, err := catalog.NewWatcher(store, cfg.Engine.RulesFile, catalog.DefaultDebounce)
	if err != nil {
		return nil, nil, err
	}
	return w, func() { _ = w.Close() }, nil
}

// ProvideStageConfig 校验阶段配置，未知阶段名在启动时拒绝
func ProvideStageConfig(cfg *config.Config) (pipeline.StageConfig, error) {
	overrides := make(map[string]pipeline.StageOverride, len(cfg.Engine.Stages))
	for name, sc := range cfg.Engine.Stages {
		overrides[name] = pipeline.StageOverride{Enabled: sc.Enabled, Weight: sc.Weight}
	}
	stages, err := pipeline.NewStageConfig(overrides)
	if err != nil {
		if stderrors.Is(err, pipeline.ErrUnknownStage) {
			return nil, errors.ErrUnknownStage.WithDetail(err.Error()).WithError(err)
		}
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "invalid stage configuration")
	}
	return stages, nil
}

func defaultBackend(cfg *config.Config) string {
	if cfg.Engine.DefaultBackend == "" {
		return pipeline.DefaultBackend
	}
	return cfg.Engine.DefaultBackend
}

func ProvidePipeline(cfg *config.Config, store *catalog.Store, stages pipeline.StageConfig) *pipeline.Pipeline {
	return pipeline.New(store,
		pipeline.WithStageConfig(stages),
		pipeline.WithDefaultBackend(defaultBackend(cfg)),
	)
}

func ProvideTransferEngine(cfg *config.Config, store *catalog.Store) *transfer.Engine {
	return transfer.New(store, defaultBackend(cfg))
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvidePostgresClientOptional 关闭记录持久化时不连接数据库
func ProvidePostgresClientOptional(cfg *config.Config) (*postgres.Client, func(), error) {
	if !cfg.Features.RecordPersistence.Enabled {
		return nil, func() {}, nil
	}
	return ProvidePostgresClient(cfg)
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideRedisClientOptional 持久化与限流都关闭时不连接 Redis
func ProvideRedisClientOptional(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Features.RecordPersistence.Enabled && !cfg.Security.RateLimit.Enabled {
		return nil, func() {}, nil
	}
	return ProvideRedisClient(cfg)
}

func ProvidePromptRecordRepository(pg *postgres.Client) repository.PromptRecordRepository {
	if pg == nil {
		return nil
	}
	return postgres.NewPromptRecordRepository(pg)
}

func ProvideCache(rdb *redis.Client) *redis.Cache {
	if rdb == nil {
		return nil
	}
	return redis.NewCache(rdb)
}

// ProvideHistoryReader 无记录库时没有历史；缓存不可用时直接读库
func ProvideHistoryReader(cfg *config.Config, repo repository.PromptRecordRepository, cache *redis.Cache) design.HistoryReader {
	if repo == nil {
		return nil
	}
	if cache == nil {
		return design.NewCachedHistory(repo, nil, cfg.Engine.HistoryCacheTTL)
	}
	return design.NewCachedHistory(repo, cache, cfg.Engine.HistoryCacheTTL)
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(cfg *config.Config, rdb *redis.Client) *messaging.Producer {
	if rdb == nil {
		return nil
	}
	return messaging.NewProducer(rdb.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideRecordSink async 时发布到 Stream 由 record-worker 落库，否则网关直接写库
func ProvideRecordSink(cfg *config.Config, repo repository.PromptRecordRepository, producer *messaging.Producer, cache *redis.Cache) design.RecordSink {
	feature := cfg.Features.RecordPersistence
	switch {
	case !feature.Enabled || repo == nil:
		return design.NoopSink{}
	case feature.Async && producer != nil:
		return design.NewStreamSink(producer, recordSinkTimeout)
	case cache != nil:
		return design.NewDirectSink(repo, cache, recordSinkTimeout)
	default:
		return design.NewDirectSink(repo, nil, recordSinkTimeout)
	}
}

// ProvideNotifier 有 Redis 时事件同时发布到 RecordEventsChannel
func ProvideNotifier(rdb *redis.Client) *design.Notifier {
	if rdb == nil {
		return design.NewNotifier(nil, "")
	}
	return design.NewNotifier(rdb, RecordEventsChannel)
}

func ProvideServiceOptions(cfg *config.Config) design.Options {
	return design.Options{
		Personalize:  cfg.Engine.Personalize,
		HistoryLimit: cfg.Engine.HistoryLimit,
	}
}

// ProvideDesignService catalog.Store 作为规则表来源
func ProvideDesignService(
	store *catalog.Store,
	p *pipeline.Pipeline,
	te *transfer.Engine,
	sink design.RecordSink,
	history design.HistoryReader,
	notifier *design.Notifier,
	opts design.Options,
) *design.Service {
	return design.NewService(store, p, te, sink, history, notifier, opts)
}

// ProvideRateLimiter 限流关闭或无 Redis 时返回 nil
func ProvideRateLimiter(cfg *config.Config, rdb *redis.Client) middleware.RateLimiter {
	if !cfg.Security.RateLimit.Enabled || rdb == nil {
		return nil
	}
	return redis.NewRateLimiter(rdb)
}

// ProvideHealthHandler 只探测已连接的依赖
func ProvideHealthHandler(cfg *config.Config, store *catalog.Store, pg *postgres.Client, rdb *redis.Client) *handler.HealthHandler {
	deps := map[string]handler.Pinger{}
	if pg != nil {
		deps["postgres"] = pg
	}
	if rdb != nil {
		deps["redis"] = rdb
	}
	return handler.NewHealthHandler(cfg.App.Version, store, deps)
}

// ProvideRecordConsumer record-worker 的 Stream 消费者，消息写库后使历史缓存失效
func ProvideRecordConsumer(cfg *config.Config, rdb *redis.Client, repo repository.PromptRecordRepository, cache *redis.Cache) *messaging.Consumer {
	sc := cfg.Messaging.RedisStream
	consumer := messaging.NewConsumer(rdb.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamPromptRecords,
		Group:         messaging.ConsumerGroupRecordWriter.WithPrefix(sc.ConsumerGroupPrefix),
		BlockTimeout:  sc.BlockTimeout,
		ClaimInterval: sc.ClaimInterval,
		RetryLimit:    sc.RetryLimit,
		Backoff:       messaging.BackoffFromConfig(sc.RetryBackoff),
	})
	var invalidator messaging.HistoryInvalidator
	if cache != nil {
		invalidator = cache
	}
	consumer.RegisterHandler(messaging.MessageTypePromptRecord, messaging.RecordWriter(repo, invalidator))
	return consumer
}
