//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"mam-search-api/internal/application/assetsearch"
	"mam-search-api/internal/application/faceindex"
	"mam-search-api/internal/application/search"
	"mam-search-api/internal/config"
	"mam-search-api/internal/domain/repository"
	"mam-search-api/internal/infrastructure/persistence/postgres"
	"mam-search-api/internal/infrastructure/persistence/redis"
	"mam-search-api/internal/interfaces/http/handler"
	"mam-search-api/internal/interfaces/http/router"
)

// InitializeApp 初始化 API 网关（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		MilvusAppSet,
		SearchSet,
		JobSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化 job-worker 依赖
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MilvusWorkerSet,
		ProvideIndexer,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializeBootstrap 初始化 bootstrap 依赖
func InitializeBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, func(), error) {
	wire.Build(
		PostgresSet,
		MilvusAppSet,
		wire.Struct(new(Bootstrap), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewTenantContext,
	postgres.NewTenantRepository,
	postgres.NewJobRepository,
	postgres.NewFaceRepository,
	ProvideSearchRepository,
	ProvideAssetRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.TenantContextManager), new(*postgres.TenantContext)),
	wire.Bind(new(repository.TenantRepository), new(*postgres.TenantRepository)),
	wire.Bind(new(repository.JobRepository), new(*postgres.JobRepository)),
	wire.Bind(new(repository.FaceRepository), new(*postgres.FaceRepository)),
	wire.Bind(new(repository.AssetRepository), new(*postgres.AssetRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	ProvideJobPublisher,
)

// MilvusAppSet API 网关可选 Milvus（未启用或不可达时不阻塞启动）
var MilvusAppSet = wire.NewSet(
	ProvideMilvusClientOptional,
	ProvideMilvusRepositoryOptional,
)

// MilvusWorkerSet job-worker 必需 Milvus
var MilvusWorkerSet = wire.NewSet(
	ProvideMilvusClient,
	ProvideMilvusRepository,
)

// SearchSet 检索服务提供者集合
var SearchSet = wire.NewSet(
	ProvideFaceEmbedderOptional,
	ProvideFaceIndex,
	ProvideSearchService,
	ProvideSuggestionService,
	assetsearch.NewService,
)

// JobSet 任务服务提供者集合
var JobSet = wire.NewSet(
	faceindex.NewJobService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	wire.Bind(new(handler.MultimodalSearcher), new(*search.Service)),
	wire.Bind(new(handler.Suggester), new(*search.SuggestionService)),
	wire.Bind(new(handler.AssetSearcher), new(*assetsearch.Service)),
	wire.Bind(new(handler.JobManager), new(*faceindex.JobService)),
	handler.NewSearchHandler,
	handler.NewJobHandler,
	ProvideAssetSearchHandler,
	ProvideHealthHandler,
	ProvideRouterDeps,
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)
